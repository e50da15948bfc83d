package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/user/product-image-updater/internal/entity"
	"github.com/user/product-image-updater/internal/repository"
)

// productStore is an in-memory product table shared by fakeSource and
// fakeWriter. A product is pending while it has no image.
type productStore struct {
	mu       sync.Mutex
	records  map[int64]entity.PendingRecord
	images   map[int64]string
	queries  []entity.PendingQuery
	fetchErr error
}

func newProductStore(records ...entity.PendingRecord) *productStore {
	s := &productStore{records: map[int64]entity.PendingRecord{}, images: map[int64]string{}}
	for _, r := range records {
		s.records[r.ID] = r
	}
	return s
}

func (s *productStore) Fetch(_ context.Context, q entity.PendingQuery) ([]entity.PendingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}

	ids := make([]int64, 0, len(s.records))
	for id := range s.records {
		if _, done := s.images[id]; done {
			continue
		}
		if q.FilterID != 0 && id != q.FilterID {
			continue
		}
		if q.FilterID == 0 && id <= q.AfterID {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > q.Limit {
		ids = ids[:q.Limit]
	}

	out := make([]entity.PendingRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.records[id])
	}
	return out, nil
}

type fakeWriter struct {
	store *productStore
	// errs makes Persist fail for the given product.
	errs map[int64]error
	// raced marks products whose image is set by someone else just before
	// our write lands.
	raced map[int64]bool
	calls []int64
}

func (w *fakeWriter) Persist(_ context.Context, productID int64, imageURL string, dryRun bool) (bool, error) {
	w.calls = append(w.calls, productID)
	if err := w.errs[productID]; err != nil {
		return false, err
	}
	if dryRun {
		return true, nil
	}

	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	if w.raced[productID] {
		w.store.images[productID] = "someone-else.png"
	}
	if _, done := w.store.images[productID]; done {
		return false, nil
	}
	w.store.images[productID] = imageURL
	return true, nil
}

type fakeRequester struct {
	outcomes map[int64]entity.RequestOutcome
	calls    []int64
}

func (r *fakeRequester) Request(_ context.Context, record entity.PendingRecord) entity.RequestOutcome {
	r.calls = append(r.calls, record.ID)
	if outcome, ok := r.outcomes[record.ID]; ok {
		return outcome
	}
	return entity.Failure("unexpected status 500", 500, 1)
}

type fakeLedger struct {
	saved   []*entity.FailedRecord
	deleted []int64
	err     error
}

func (l *fakeLedger) SaveOrUpdate(_ context.Context, failed *entity.FailedRecord) error {
	l.saved = append(l.saved, failed)
	return l.err
}

func (l *fakeLedger) ListRecent(_ context.Context, _ int) ([]*entity.FailedRecord, error) {
	return nil, errors.New("not implemented")
}

func (l *fakeLedger) Delete(_ context.Context, productID int64) error {
	l.deleted = append(l.deleted, productID)
	return l.err
}

type recordingSleeper struct {
	waits []time.Duration
	err   error
}

func (s *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return s.err
}

type fakeCache struct {
	entries map[string]string
	getErr  error
	setErr  error
	sets    int
}

func (c *fakeCache) Get(_ context.Context, key string) (string, error) {
	if c.getErr != nil {
		return "", c.getErr
	}
	url, ok := c.entries[key]
	if !ok {
		return "", repository.ErrCacheMiss
	}
	return url, nil
}

func (c *fakeCache) Set(_ context.Context, key, imageURL string, _ time.Duration) error {
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[key] = imageURL
	return nil
}

var (
	_ repository.RecordSource           = (*productStore)(nil)
	_ repository.ImageWriter            = (*fakeWriter)(nil)
	_ repository.ImageRequester         = (*fakeRequester)(nil)
	_ repository.FailedRecordRepository = (*fakeLedger)(nil)
	_ repository.ImageCache             = (*fakeCache)(nil)
)
