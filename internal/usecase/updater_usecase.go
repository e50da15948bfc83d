package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/product-image-updater/internal/entity"
	"github.com/user/product-image-updater/internal/repository"
	"github.com/user/product-image-updater/pkg/metrics"
	"github.com/user/product-image-updater/pkg/utils"
)

// failureCooldown sets next_retry_at on ledger rows. The column is
// informational for operators; the record source does not filter on it.
const failureCooldown = 24 * time.Hour

// Settings is the part of the run configuration the updater needs.
type Settings struct {
	BatchSize         int
	SleepBetweenCalls time.Duration
	DryRun            bool
	// ProductID selects single-record mode when non-zero.
	ProductID int64
}

// Updater runs one pass over the products that lack an image.
type Updater interface {
	Run(ctx context.Context) (entity.RunSummary, error)
}

type recordResult int

const (
	resultUpdated recordResult = iota
	resultNotUpdated
	resultFailed
)

func (r recordResult) String() string {
	switch r {
	case resultUpdated:
		return "updated"
	case resultNotUpdated:
		return "not_updated"
	default:
		return "failed"
	}
}

func tally(summary *entity.RunSummary, result recordResult) {
	summary.TotalProcessed++
	switch result {
	case resultUpdated:
		summary.TotalUpdated++
	case resultFailed:
		summary.TotalFailed++
	}
}

type imageUpdaterUseCase struct {
	source     repository.RecordSource
	requester  repository.ImageRequester
	writer     repository.ImageWriter
	failedRepo repository.FailedRecordRepository
	settings   Settings
	sleep      utils.Sleeper
	now        func() time.Time
}

// NewImageUpdater creates a new instance of the image updater use case.
// failedRepo may be nil to skip the failure ledger.
func NewImageUpdater(
	source repository.RecordSource,
	requester repository.ImageRequester,
	writer repository.ImageWriter,
	failedRepo repository.FailedRecordRepository,
	settings Settings,
) Updater {
	return newImageUpdater(source, requester, writer, failedRepo, settings, utils.SleepContext)
}

func newImageUpdater(
	source repository.RecordSource,
	requester repository.ImageRequester,
	writer repository.ImageWriter,
	failedRepo repository.FailedRecordRepository,
	settings Settings,
	sleep utils.Sleeper,
) *imageUpdaterUseCase {
	return &imageUpdaterUseCase{
		source:     source,
		requester:  requester,
		writer:     writer,
		failedRepo: failedRepo,
		settings:   settings,
		sleep:      sleep,
		now:        time.Now,
	}
}

// Run processes a single product when one is configured, otherwise every
// pending product page by page. Only a fetch failure, an ambiguous update or
// cancellation ends the run early.
func (uc *imageUpdaterUseCase) Run(ctx context.Context) (entity.RunSummary, error) {
	if uc.settings.ProductID > 0 {
		return uc.runSingle(ctx)
	}
	return uc.runBatches(ctx)
}

func (uc *imageUpdaterUseCase) runSingle(ctx context.Context) (entity.RunSummary, error) {
	var summary entity.RunSummary
	productID := uc.settings.ProductID
	slog.Info("Processing single product", "product_id", productID)

	records, err := uc.source.Fetch(ctx, entity.PendingQuery{Limit: 1, FilterID: productID})
	if err != nil {
		return summary, fmt.Errorf("failed to fetch product %d: %w", productID, err)
	}
	metrics.BatchesTotal.Inc()
	summary.Batches++

	if len(records) == 0 {
		slog.Warn("Product not found or already has an image", "product_id", productID)
		return summary, nil
	}

	result, err := uc.processRecord(ctx, records[0])
	tally(&summary, result)
	if err != nil {
		return summary, err
	}
	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("run interrupted: %w", err)
	}
	if result == resultUpdated {
		slog.Info("Successfully processed product", "product_id", productID)
	}
	return summary, nil
}

func (uc *imageUpdaterUseCase) runBatches(ctx context.Context) (entity.RunSummary, error) {
	var summary entity.RunSummary
	var afterID int64

	for {
		records, err := uc.source.Fetch(ctx, entity.PendingQuery{Limit: uc.settings.BatchSize, AfterID: afterID})
		if err != nil {
			return summary, fmt.Errorf("failed to fetch batch after product %d: %w", afterID, err)
		}
		if len(records) == 0 {
			slog.Info("No more products without images found")
			return summary, nil
		}
		metrics.BatchesTotal.Inc()
		summary.Batches++

		for _, record := range records {
			result, err := uc.processRecord(ctx, record)
			tally(&summary, result)
			if err != nil {
				return summary, err
			}
			afterID = max(afterID, record.ID)

			// Throttle every call, successful or not.
			if err := uc.sleep(ctx, uc.settings.SleepBetweenCalls); err != nil {
				return summary, fmt.Errorf("run interrupted: %w", err)
			}
		}

		slog.Info("Processed batch",
			"batch", summary.Batches,
			"batch_size", len(records),
			"total_processed", summary.TotalProcessed,
			"total_updated", summary.TotalUpdated,
		)

		if len(records) < uc.settings.BatchSize {
			return summary, nil
		}
	}
}

// processRecord routes one record through the requester and the writer. The
// returned error is non-nil only for conditions that must stop the run.
func (uc *imageUpdaterUseCase) processRecord(ctx context.Context, record entity.PendingRecord) (recordResult, error) {
	result, err := uc.handleRecord(ctx, record)
	metrics.RecordsTotal.WithLabelValues(result.String()).Inc()
	return result, err
}

func (uc *imageUpdaterUseCase) handleRecord(ctx context.Context, record entity.PendingRecord) (recordResult, error) {
	outcome := uc.requester.Request(ctx, record)
	if !outcome.Succeeded {
		uc.handleFailure(ctx, record.ID, outcome.Reason, outcome.StatusCode)
		return resultFailed, nil
	}

	changed, err := uc.writer.Persist(ctx, record.ID, outcome.ImageURL, uc.settings.DryRun)
	if err != nil {
		if errors.Is(err, repository.ErrAmbiguousUpdate) {
			return resultFailed, err
		}
		slog.Error("Failed to persist image URL", "product_id", record.ID, "error", err)
		uc.handleFailure(ctx, record.ID, "persist: "+err.Error(), 0)
		return resultFailed, nil
	}
	if !changed {
		return resultNotUpdated, nil
	}

	uc.handleSuccess(ctx, record.ID)
	return resultUpdated, nil
}

func (uc *imageUpdaterUseCase) handleSuccess(ctx context.Context, productID int64) {
	if uc.failedRepo == nil || uc.settings.DryRun {
		return
	}
	// If the product previously failed, remove it from the ledger.
	if err := uc.failedRepo.Delete(ctx, productID); err != nil {
		// This is not a critical error, just log it.
		slog.Warn("Failed to delete product from failure ledger after successful update", "product_id", productID, "error", err)
	}
}

func (uc *imageUpdaterUseCase) handleFailure(ctx context.Context, productID int64, reason string, statusCode int) {
	slog.Warn("Skipping product", "product_id", productID, "reason", reason)
	if uc.failedRepo == nil || uc.settings.DryRun {
		return
	}

	now := uc.now()
	failed := &entity.FailedRecord{
		ProductID:            productID,
		FailureReason:        reason,
		HTTPStatusCode:       statusCode,
		LastAttemptTimestamp: now,
		NextRetryAt:          now.Add(failureCooldown),
	}
	if err := uc.failedRepo.SaveOrUpdate(ctx, failed); err != nil {
		slog.Warn("Failed to record product in failure ledger", "product_id", productID, "error", err)
	}
}
