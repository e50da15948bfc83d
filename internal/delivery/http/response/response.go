package response

import (
	"time"

	"github.com/user/product-image-updater/internal/entity"
)

// FailedRecordResponse is a DTO for a failure ledger row, mirroring entity.FailedRecord
type FailedRecordResponse struct {
	ProductID            int64     `json:"product_id"`
	FailureReason        string    `json:"failure_reason"`
	HTTPStatusCode       int       `json:"http_status_code,omitempty"`
	LastAttemptTimestamp time.Time `json:"last_attempt_timestamp"`
	NextRetryAt          time.Time `json:"next_retry_at"`
	RetryCount           int       `json:"retry_count"`
}

type FailedRecordsResponse struct {
	Count   int                    `json:"count"`
	Records []FailedRecordResponse `json:"records"`
}

func NewFailedRecordsResponse(records []*entity.FailedRecord) FailedRecordsResponse {
	out := make([]FailedRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, FailedRecordResponse{
			ProductID:            r.ProductID,
			FailureReason:        r.FailureReason,
			HTTPStatusCode:       r.HTTPStatusCode,
			LastAttemptTimestamp: r.LastAttemptTimestamp,
			NextRetryAt:          r.NextRetryAt,
			RetryCount:           r.RetryCount,
		})
	}
	return FailedRecordsResponse{Count: len(out), Records: out}
}
