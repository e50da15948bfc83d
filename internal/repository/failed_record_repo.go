package repository

import (
	"context"

	"github.com/user/product-image-updater/internal/entity"
)

// FailedRecordRepository defines the interface for the ledger of records whose image update failed.
type FailedRecordRepository interface {
	// SaveOrUpdate creates or updates a ledger row for a failed record.
	SaveOrUpdate(ctx context.Context, failed *entity.FailedRecord) error
	// ListRecent retrieves the most recently attempted failures.
	ListRecent(ctx context.Context, limit int) ([]*entity.FailedRecord, error)
	// Delete removes a ledger row, typically after a successful update.
	Delete(ctx context.Context, productID int64) error
}
