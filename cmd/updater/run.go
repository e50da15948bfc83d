package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/user/product-image-updater/internal/adapter/imageapi"
	"github.com/user/product-image-updater/internal/adapter/postgres"
	"github.com/user/product-image-updater/internal/adapter/postgres/migrations"
	redis_adapter "github.com/user/product-image-updater/internal/adapter/redis"
	"github.com/user/product-image-updater/internal/usecase"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Generate images for every product that lacks one",
		Example: `  # Process all pending products in batches of 25
  updater run --batch-size 25

  # Try a single product without touching the database
  updater run --product-id 42 --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := setup(cmd)
			if err != nil {
				return err
			}
			defer s.logFile.Close()
			return runUpdate(cmd.Context(), s)
		},
	}
}

func runUpdate(ctx context.Context, s *session) (err error) {
	cfg := s.cfg
	var cleanup cleanupStack
	defer func() {
		if cerr := cleanup.run(); cerr != nil {
			slog.Warn("Failed to release resources", "error", cerr)
			err = multierror.Append(err, cerr).ErrorOrNil()
		}
	}()

	slog.Info("Starting product image update", "config", cfg)
	if cfg.DryRun {
		slog.Info("DRY RUN MODE: No database updates will be made")
	}
	if cfg.SingleRecord() {
		slog.Info("Single product mode", "product_id", cfg.ProductID)
	}

	client, err := imageapi.NewClient(imageapi.Options{
		BaseURL:    cfg.APIBaseURL,
		APIKey:     cfg.APIKey,
		Timeout:    cfg.RequestTimeout,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
	})
	if err != nil {
		return err
	}
	if cfg.CheckHealth {
		status, err := client.Health(ctx)
		if err != nil {
			return fmt.Errorf("API health check failed: %w", err)
		}
		slog.Info("API health check passed", "status", status)
	}

	conn, closeDB, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	cleanup.push(closeDB)
	db := conn.db

	if !cfg.DryRun {
		if err := migrations.RunMigrationsUp(conn.pool); err != nil {
			return err
		}
	}
	failedRepo := postgres.NewFailedRecordRepo(db)

	if cfg.MetricsAddr != "" {
		shutdown, err := startMetricsServer(cfg.MetricsAddr, failedRepo)
		if err != nil {
			return err
		}
		cleanup.push(shutdown)
	}

	rdb, err := openRedis(ctx, cfg)
	if err != nil {
		return err
	}
	if rdb != nil {
		cleanup.push(rdb.Close)

		if !cfg.DryRun {
			lock := redis_adapter.NewRunLock(rdb)
			if err := lock.Acquire(ctx, s.runID, cfg.LockTTL); err != nil {
				return err
			}
			slog.Info("Run lock acquired", "ttl", cfg.LockTTL)
			cleanup.push(func() error {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return lock.Release(releaseCtx, s.runID)
			})
		}
	}
	requester := newRequester(cfg, client, rdb)

	updater := usecase.NewImageUpdater(
		postgres.NewProductSource(db),
		requester,
		postgres.NewImageWriter(db),
		failedRepo,
		usecase.Settings{
			BatchSize:         cfg.BatchSize,
			SleepBetweenCalls: cfg.SleepBetweenCalls,
			DryRun:            cfg.DryRun,
			ProductID:         cfg.ProductID,
		},
	)

	summary, err := updater.Run(ctx)
	slog.Info("Run totals",
		"total_processed", summary.TotalProcessed,
		"total_updated", summary.TotalUpdated,
		"total_failed", summary.TotalFailed,
		"batches", summary.Batches,
	)
	if err != nil {
		slog.Error("Image update failed", "error", err)
		return err
	}
	slog.Info("Image update completed successfully")
	return nil
}
