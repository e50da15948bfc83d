package entity

import "time"

// FailedRecord mirrors the `image_update_failures` PostgreSQL table schema.
type FailedRecord struct {
	ProductID            int64     `db:"product_id"`
	FailureReason        string    `db:"failure_reason"`
	HTTPStatusCode       int       `db:"http_status_code"`
	LastAttemptTimestamp time.Time `db:"last_attempt_timestamp"`
	RetryCount           int       `db:"retry_count"`
	NextRetryAt          time.Time `db:"next_retry_at"`
}
