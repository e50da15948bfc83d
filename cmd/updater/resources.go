package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/user/product-image-updater/internal/adapter/memory"
	redis_adapter "github.com/user/product-image-updater/internal/adapter/redis"
	"github.com/user/product-image-updater/internal/repository"
	"github.com/user/product-image-updater/internal/usecase"
	"github.com/user/product-image-updater/pkg/config"
)

// memoryCacheCapacity bounds the in-process result cache used without Redis.
const memoryCacheCapacity = 10_000

// cleanupStack releases resources in reverse order of acquisition.
type cleanupStack []func() error

func (s *cleanupStack) push(fn func() error) {
	*s = append(*s, fn)
}

func (s cleanupStack) run() error {
	var result *multierror.Error
	for i := len(s) - 1; i >= 0; i-- {
		if err := s[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// database is one pgx pool, also exposed through sqlx for the repositories.
type database struct {
	pool *pgxpool.Pool
	db   *sqlx.DB
}

// openDatabase opens one pgx pool and exposes it through sqlx.
func openDatabase(ctx context.Context, cfg *config.Config) (*database, func() error, error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN())
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("unable to connect to database %s on %s: %w", cfg.DBName, cfg.DBHost, err)
	}
	slog.Info("PostgreSQL connection pool established", "host", cfg.DBHost, "database", cfg.DBName)

	db := sqlx.NewDb(stdlib.OpenDBFromPool(pool), "pgx")
	closeFn := func() error {
		err := db.Close()
		pool.Close()
		slog.Info("Database connection closed")
		return err
	}
	return &database{pool: pool, db: db}, closeFn, nil
}

// openRedis returns nil when no Redis address is configured.
func openRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("unable to connect to Redis at %s: %w", cfg.RedisAddr, err)
	}
	slog.Info("Redis connection established", "addr", cfg.RedisAddr)
	return rdb, nil
}

// newRequester wraps client in the result cache when caching is enabled.
// rdb may be nil, in which case the cache lives in process memory.
func newRequester(cfg *config.Config, client repository.ImageRequester, rdb *redis.Client) repository.ImageRequester {
	if !cfg.CacheEnabled {
		return client
	}
	var cache repository.ImageCache
	if rdb != nil {
		cache = redis_adapter.NewImageCache(rdb)
	} else {
		cache = memory.NewImageCache(memoryCacheCapacity)
	}
	slog.Info("Image result cache enabled", "shared", rdb != nil, "ttl", cfg.CacheTTL)
	return usecase.NewCachedRequester(client, cache, cfg.CacheTTL)
}
