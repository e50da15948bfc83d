package repository

import (
	"context"
	"time"
)

// ImageCache remembers generated image URLs keyed by request fingerprint.
type ImageCache interface {
	// Get returns ErrCacheMiss when nothing is stored under key.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, imageURL string, ttl time.Duration) error
}

// RunLock guards against two updaters working the same table at once.
type RunLock interface {
	// Acquire returns ErrLockHeld when another run owns the lock.
	Acquire(ctx context.Context, token string, ttl time.Duration) error
	Release(ctx context.Context, token string) error
}
