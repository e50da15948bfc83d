package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/user/product-image-updater/internal/entity"
)

// FailedRecordRepoImpl provides a concrete implementation for the FailedRecordRepository interface using PostgreSQL.
type FailedRecordRepoImpl struct {
	db *sqlx.DB
}

// NewFailedRecordRepo creates a new instance of FailedRecordRepoImpl.
func NewFailedRecordRepo(db *sqlx.DB) *FailedRecordRepoImpl {
	return &FailedRecordRepoImpl{db: db}
}

// SaveOrUpdate creates or updates a record for a failed product.
// It increments the retry_count on conflict.
func (r *FailedRecordRepoImpl) SaveOrUpdate(ctx context.Context, failed *entity.FailedRecord) error {
	query := `
		INSERT INTO image_update_failures (product_id, failure_reason, http_status_code, last_attempt_timestamp, retry_count, next_retry_at)
		VALUES ($1, $2, $3, $4, 1, $5)
		ON CONFLICT (product_id) DO UPDATE SET
			failure_reason = EXCLUDED.failure_reason,
			http_status_code = EXCLUDED.http_status_code,
			last_attempt_timestamp = EXCLUDED.last_attempt_timestamp,
			retry_count = image_update_failures.retry_count + 1,
			next_retry_at = EXCLUDED.next_retry_at;
	`
	_, err := r.db.ExecContext(ctx, query,
		failed.ProductID,
		failed.FailureReason,
		failed.HTTPStatusCode,
		failed.LastAttemptTimestamp,
		failed.NextRetryAt,
	)
	return err
}

// ListRecent retrieves the most recently attempted failures.
func (r *FailedRecordRepoImpl) ListRecent(ctx context.Context, limit int) ([]*entity.FailedRecord, error) {
	query := `
		SELECT product_id, failure_reason, http_status_code, last_attempt_timestamp, retry_count, next_retry_at
		FROM image_update_failures
		ORDER BY last_attempt_timestamp DESC
		LIMIT $1;
	`
	var failed []*entity.FailedRecord
	if err := r.db.SelectContext(ctx, &failed, query, limit); err != nil {
		return nil, err
	}
	return failed, nil
}

// Delete removes a failure record, typically after a successful update.
func (r *FailedRecordRepoImpl) Delete(ctx context.Context, productID int64) error {
	query := `DELETE FROM image_update_failures WHERE product_id = $1;`
	_, err := r.db.ExecContext(ctx, query, productID)
	return err
}
