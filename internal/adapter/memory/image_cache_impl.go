package memory

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/user/product-image-updater/internal/repository"
)

// ImageCacheImpl is an in-process ImageCache for runs without Redis. Entries
// live only as long as the process.
type ImageCacheImpl struct {
	cache *ttlcache.Cache[string, string]
}

// NewImageCache creates a cache holding at most capacity entries; the oldest
// entry is evicted first.
func NewImageCache(capacity uint64) *ImageCacheImpl {
	return &ImageCacheImpl{
		cache: ttlcache.New[string, string](
			ttlcache.WithCapacity[string, string](capacity),
			ttlcache.WithDisableTouchOnHit[string, string](),
		),
	}
}

func (c *ImageCacheImpl) Get(_ context.Context, key string) (string, error) {
	item := c.cache.Get(key)
	if item == nil {
		return "", repository.ErrCacheMiss
	}
	return item.Value(), nil
}

func (c *ImageCacheImpl) Set(_ context.Context, key, imageURL string, ttl time.Duration) error {
	c.cache.Set(key, imageURL, ttl)
	return nil
}

// Len reports how many entries are held, expired ones included until evicted.
func (c *ImageCacheImpl) Len() int {
	return c.cache.Len()
}
