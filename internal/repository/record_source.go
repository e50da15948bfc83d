package repository

import (
	"context"

	"github.com/user/product-image-updater/internal/entity"
)

// RecordSource yields pages of records that still lack an image.
type RecordSource interface {
	// Fetch returns at most q.Limit records ordered by id ascending. With
	// q.FilterID set the page holds at most the one matching record.
	Fetch(ctx context.Context, q entity.PendingQuery) ([]entity.PendingRecord, error)
}
