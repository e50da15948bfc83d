package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/user/product-image-updater/internal/entity"
	"github.com/user/product-image-updater/internal/repository"
	"github.com/user/product-image-updater/pkg/metrics"
	"github.com/user/product-image-updater/pkg/utils"
)

// maxKeyDescription caps how much of the description takes part in the key.
const maxKeyDescription = 100

// CachedRequester serves repeated requests for an identical product from a
// cache instead of the image API. Cache errors never fail a request.
type CachedRequester struct {
	next  repository.ImageRequester
	cache repository.ImageCache
	ttl   time.Duration
}

// NewCachedRequester wraps next with cache.
func NewCachedRequester(next repository.ImageRequester, cache repository.ImageCache, ttl time.Duration) *CachedRequester {
	return &CachedRequester{next: next, cache: cache, ttl: ttl}
}

func (r *CachedRequester) Request(ctx context.Context, record entity.PendingRecord) entity.RequestOutcome {
	key := payloadKey(record)

	imageURL, err := r.cache.Get(ctx, key)
	switch {
	case err == nil && imageURL != "":
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		slog.Info("Using cached image URL", "product_id", record.ID, "image_url", imageURL)
		outcome := entity.Success(imageURL, 0)
		outcome.Cached = true
		return outcome
	case err == nil, errors.Is(err, repository.ErrCacheMiss):
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
	default:
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		slog.Warn("Image cache lookup failed", "product_id", record.ID, "error", err)
	}

	outcome := r.next.Request(ctx, record)
	if !outcome.Succeeded {
		return outcome
	}
	if err := r.cache.Set(ctx, key, outcome.ImageURL, r.ttl); err != nil {
		slog.Warn("Failed to cache image URL", "product_id", record.ID, "error", err)
	}
	return outcome
}

// payloadKey fingerprints the attributes and codes an image is generated from.
// Products that differ only by id share one image; a different UPC or ISBN
// always yields a different key.
func payloadKey(record entity.PendingRecord) string {
	normalize := func(s string) string {
		return strings.Join(strings.Fields(strings.ToLower(s)), " ")
	}
	description := normalize(record.Description)
	if len(description) > maxKeyDescription {
		description = description[:maxKeyDescription]
	}
	return utils.HashKey(
		normalize(record.Category),
		description,
		normalize(record.Brand),
		strings.TrimSpace(record.UPC),
		strings.TrimSpace(record.ISBN),
	)
}
