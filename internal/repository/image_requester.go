package repository

import (
	"context"

	"github.com/user/product-image-updater/internal/entity"
)

// ImageRequester asks the image generation service for one record's image.
// Transient failures are retried internally; the returned outcome is final.
type ImageRequester interface {
	Request(ctx context.Context, record entity.PendingRecord) entity.RequestOutcome
}
