package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/product-image-updater/internal/repository"
)

var _ repository.ImageCache = (*ImageCacheImpl)(nil)

func TestImageCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache := NewImageCache(10)

	_, err := cache.Get(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)

	require.NoError(t, cache.Set(ctx, "k1", "http://img/1.png", time.Hour))
	got, err := cache.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "http://img/1.png", got)
}

func TestImageCacheExpires(t *testing.T) {
	ctx := context.Background()
	cache := NewImageCache(10)

	require.NoError(t, cache.Set(ctx, "k1", "http://img/1.png", 10*time.Millisecond))
	assert.Eventually(t, func() bool {
		_, err := cache.Get(ctx, "k1")
		return err == repository.ErrCacheMiss
	}, time.Second, 5*time.Millisecond)
}

func TestImageCacheEvictsOldest(t *testing.T) {
	ctx := context.Background()
	cache := NewImageCache(2)

	require.NoError(t, cache.Set(ctx, "a", "http://img/a.png", time.Hour))
	require.NoError(t, cache.Set(ctx, "b", "http://img/b.png", time.Hour))
	require.NoError(t, cache.Set(ctx, "c", "http://img/c.png", time.Hour))

	assert.Equal(t, 2, cache.Len())
	_, err := cache.Get(ctx, "a")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)
	got, err := cache.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "http://img/c.png", got)
}
