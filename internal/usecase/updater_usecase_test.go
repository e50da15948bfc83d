package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/product-image-updater/internal/entity"
	"github.com/user/product-image-updater/internal/repository"
)

type harness struct {
	store     *productStore
	requester *fakeRequester
	writer    *fakeWriter
	ledger    *fakeLedger
	sleeper   *recordingSleeper
	updater   *imageUpdaterUseCase
}

func newHarness(settings Settings, records ...entity.PendingRecord) *harness {
	h := &harness{
		store:     newProductStore(records...),
		requester: &fakeRequester{outcomes: map[int64]entity.RequestOutcome{}},
		ledger:    &fakeLedger{},
		sleeper:   &recordingSleeper{},
	}
	h.writer = &fakeWriter{store: h.store, errs: map[int64]error{}, raced: map[int64]bool{}}
	h.updater = newImageUpdater(h.store, h.requester, h.writer, h.ledger, settings, h.sleeper.sleep)
	h.updater.now = func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }
	return h
}

func (h *harness) succeed(ids ...int64) {
	for _, id := range ids {
		h.requester.outcomes[id] = entity.Success(fmt.Sprintf("http://img/%d.png", id), 1)
	}
}

func records(ids ...int64) []entity.PendingRecord {
	out := make([]entity.PendingRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, entity.PendingRecord{ID: id, Category: "Tools", Brand: "Acme", Description: "Item"})
	}
	return out
}

func batchSettings(size int) Settings {
	return Settings{BatchSize: size, SleepBetweenCalls: time.Second}
}

func TestRunUpdatesSuccessfulRecords(t *testing.T) {
	h := newHarness(batchSettings(10), records(1, 2)...)
	h.succeed(1)
	h.requester.outcomes[2] = entity.Failure("unexpected status 500: boom", 500, 1)

	summary, err := h.updater.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalProcessed)
	assert.Equal(t, 1, summary.TotalUpdated)
	assert.Equal(t, 1, summary.TotalFailed)
	assert.Equal(t, "http://img/1.png", h.store.images[1])
	assert.NotContains(t, h.store.images, int64(2))
	assert.Equal(t, []int64{1}, h.writer.calls)

	// A short first page ends the run without another query.
	assert.Len(t, h.store.queries, 1)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, h.sleeper.waits)

	require.Len(t, h.ledger.saved, 1)
	assert.Equal(t, int64(2), h.ledger.saved[0].ProductID)
	assert.Equal(t, 500, h.ledger.saved[0].HTTPStatusCode)
	assert.Equal(t, h.updater.now().Add(failureCooldown), h.ledger.saved[0].NextRetryAt)
	assert.Equal(t, []int64{1}, h.ledger.deleted)
}

func TestRunPagesWithCursor(t *testing.T) {
	tests := []struct {
		name        string
		ids         []int64
		batchSize   int
		wantQueries []int64
	}{
		{name: "exact multiple needs a final empty page", ids: []int64{1, 2, 3, 4}, batchSize: 2, wantQueries: []int64{0, 2, 4}},
		{name: "short last page stops", ids: []int64{1, 2, 3, 4, 5}, batchSize: 2, wantQueries: []int64{0, 2, 4}},
		{name: "nothing pending", batchSize: 3, wantQueries: []int64{0}},
		{name: "sparse ids", ids: []int64{7, 19, 23}, batchSize: 2, wantQueries: []int64{0, 19}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(batchSettings(tt.batchSize), records(tt.ids...)...)
			h.succeed(tt.ids...)

			summary, err := h.updater.Run(context.Background())
			require.NoError(t, err)

			var after []int64
			for _, q := range h.store.queries {
				assert.Equal(t, tt.batchSize, q.Limit)
				after = append(after, q.AfterID)
			}
			assert.Equal(t, tt.wantQueries, after)
			assert.Equal(t, len(tt.ids), summary.TotalProcessed)
			assert.Equal(t, len(tt.ids), summary.TotalUpdated)
			assert.Len(t, h.sleeper.waits, len(tt.ids))
		})
	}
}

func TestRunDoesNotRevisitFailedRecords(t *testing.T) {
	h := newHarness(batchSettings(2), records(1, 2, 3, 4)...)
	h.succeed(3)

	summary, err := h.updater.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 3, 4}, h.requester.calls)
	assert.Equal(t, 4, summary.TotalProcessed)
	assert.Equal(t, 1, summary.TotalUpdated)
	assert.Equal(t, 3, summary.TotalFailed)
}

func TestRunSingleRecord(t *testing.T) {
	h := newHarness(Settings{BatchSize: 10, ProductID: 3}, records(1, 3, 5)...)
	h.succeed(1, 3, 5)

	summary, err := h.updater.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []entity.PendingQuery{{Limit: 1, FilterID: 3}}, h.store.queries)
	assert.Equal(t, []int64{3}, h.requester.calls)
	assert.Equal(t, 1, summary.TotalProcessed)
	assert.Equal(t, 1, summary.TotalUpdated)
	assert.Empty(t, h.sleeper.waits)
}

func TestRunSingleRecordNotFound(t *testing.T) {
	h := newHarness(Settings{BatchSize: 10, ProductID: 42}, records(1, 2)...)

	summary, err := h.updater.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.TotalProcessed)
	assert.Empty(t, h.requester.calls)
	assert.Empty(t, h.writer.calls)
	assert.Empty(t, h.ledger.saved)
}

func TestRunSingleRecordReportsCancellation(t *testing.T) {
	h := newHarness(Settings{BatchSize: 10, ProductID: 3}, records(3)...)
	h.requester.outcomes[3] = entity.Failure("request cancelled: context canceled", 0, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := h.updater.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 1, summary.TotalProcessed)
	assert.Equal(t, 1, summary.TotalFailed)
}

func TestRunSharedCacheKeepsDistinctCodesApart(t *testing.T) {
	first := entity.PendingRecord{ID: 1, Category: "Books", Brand: "Penguin", Description: "Paperback novel", ISBN: "9780141184425"}
	second := entity.PendingRecord{ID: 2, Category: "Books", Brand: "Penguin", Description: "Paperback novel", ISBN: "9780141439518"}
	h := newHarness(batchSettings(10), first, second)
	h.succeed(1, 2)
	cached := NewCachedRequester(h.requester, &fakeCache{entries: map[string]string{}}, time.Hour)
	updater := newImageUpdater(h.store, cached, h.writer, h.ledger, batchSettings(10), h.sleeper.sleep)

	summary, err := updater.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalUpdated)
	assert.Equal(t, []int64{1, 2}, h.requester.calls)
	assert.Equal(t, "http://img/1.png", h.store.images[1])
	assert.Equal(t, "http://img/2.png", h.store.images[2])
}

func TestRunCountsConcurrentWriteAsNotUpdated(t *testing.T) {
	h := newHarness(batchSettings(10), records(1, 2)...)
	h.succeed(1, 2)
	h.writer.raced[2] = true

	summary, err := h.updater.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalProcessed)
	assert.Equal(t, 1, summary.TotalUpdated)
	assert.Equal(t, 0, summary.TotalFailed)
	assert.Equal(t, "someone-else.png", h.store.images[2])
}

func TestRunDryRunChangesNothing(t *testing.T) {
	settings := batchSettings(2)
	settings.DryRun = true
	h := newHarness(settings, records(1, 2, 3, 4)...)
	h.succeed(1, 2, 3)

	summary, err := h.updater.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, summary.TotalProcessed)
	assert.Equal(t, 3, summary.TotalUpdated)
	assert.Empty(t, h.store.images)
	assert.Empty(t, h.ledger.saved)
	assert.Empty(t, h.ledger.deleted)
	assert.Len(t, h.store.queries, 3)
}

func TestRunContinuesAfterPersistError(t *testing.T) {
	h := newHarness(batchSettings(10), records(1, 2)...)
	h.succeed(1, 2)
	h.writer.errs[1] = errors.New("connection reset")

	summary, err := h.updater.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalProcessed)
	assert.Equal(t, 1, summary.TotalUpdated)
	assert.Equal(t, 1, summary.TotalFailed)
	require.Len(t, h.ledger.saved, 1)
	assert.Contains(t, h.ledger.saved[0].FailureReason, "connection reset")
}

func TestRunStopsOnAmbiguousUpdate(t *testing.T) {
	h := newHarness(batchSettings(10), records(1, 2)...)
	h.succeed(1, 2)
	h.writer.errs[1] = fmt.Errorf("product 1: %w", repository.ErrAmbiguousUpdate)

	summary, err := h.updater.Run(context.Background())
	require.ErrorIs(t, err, repository.ErrAmbiguousUpdate)

	assert.Equal(t, 1, summary.TotalProcessed)
	assert.Equal(t, []int64{1}, h.requester.calls)
}

func TestRunStopsOnFetchError(t *testing.T) {
	h := newHarness(batchSettings(10), records(1)...)
	h.store.fetchErr = errors.New("relation \"product\" does not exist")

	_, err := h.updater.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
	assert.Empty(t, h.requester.calls)
}

func TestRunStopsWhenSleepInterrupted(t *testing.T) {
	h := newHarness(batchSettings(10), records(1, 2, 3)...)
	h.succeed(1, 2, 3)
	h.sleeper.err = context.Canceled

	summary, err := h.updater.Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, summary.TotalProcessed)
}

func TestRunToleratesLedgerErrors(t *testing.T) {
	h := newHarness(batchSettings(10), records(1, 2)...)
	h.succeed(1)
	h.ledger.err = errors.New("ledger down")

	summary, err := h.updater.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalUpdated)
}

func TestRunWithoutLedger(t *testing.T) {
	store := newProductStore(records(1)...)
	requester := &fakeRequester{outcomes: map[int64]entity.RequestOutcome{}}
	writer := &fakeWriter{store: store}
	sleeper := &recordingSleeper{}
	updater := newImageUpdater(store, requester, writer, nil, batchSettings(5), sleeper.sleep)

	summary, err := updater.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalFailed)
}
