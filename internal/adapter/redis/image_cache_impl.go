package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/product-image-updater/internal/repository"
)

const imageCachePrefix = "product-image:url:"

// ImageCacheImpl provides a concrete implementation for the ImageCache interface using Redis.
type ImageCacheImpl struct {
	client *redis.Client
}

// NewImageCache creates a new instance of ImageCacheImpl.
func NewImageCache(client *redis.Client) *ImageCacheImpl {
	return &ImageCacheImpl{client: client}
}

func (c *ImageCacheImpl) generateKey(key string) string {
	return fmt.Sprintf("%s%s", imageCachePrefix, key)
}

// Get returns the cached image URL, or repository.ErrCacheMiss.
func (c *ImageCacheImpl) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, c.generateKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", repository.ErrCacheMiss
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// Set stores the image URL with an expiry. SETEX is atomic.
func (c *ImageCacheImpl) Set(ctx context.Context, key, imageURL string, ttl time.Duration) error {
	return c.client.SetEx(ctx, c.generateKey(key), imageURL, ttl).Err()
}
