package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/user/product-image-updater/internal/repository"
)

// The IS NULL guard turns a concurrent update into a zero-row update.
const updateProductImageQuery = `
	UPDATE product
	SET image_file_name = $1
	WHERE product_id = $2
		AND image_file_name IS NULL;
`

// ImageWriterImpl provides a concrete implementation for the ImageWriter interface using PostgreSQL.
type ImageWriterImpl struct {
	db *sqlx.DB
}

// NewImageWriter creates a new instance of ImageWriterImpl.
func NewImageWriter(db *sqlx.DB) *ImageWriterImpl {
	return &ImageWriterImpl{db: db}
}

// Persist sets the product's image inside a transaction. It reports true only
// when exactly one row changed; any error rolls the transaction back.
func (w *ImageWriterImpl) Persist(ctx context.Context, productID int64, imageURL string, dryRun bool) (bool, error) {
	if dryRun {
		slog.Info("DRY RUN: would update product", "product_id", productID, "image_url", imageURL)
		return true, nil
	}

	tx, err := w.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin image update for product %d: %w", productID, err)
	}
	defer func() {
		// No-op once committed.
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, updateProductImageQuery, imageURL, productID)
	if err != nil {
		return false, fmt.Errorf("failed to update product %d: %w", productID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected for product %d: %w", productID, err)
	}

	switch {
	case affected == 0:
		slog.Warn("No rows updated for product", "product_id", productID)
		return false, nil
	case affected > 1:
		return false, fmt.Errorf("%w: product %d matched %d rows", repository.ErrAmbiguousUpdate, productID, affected)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit image update for product %d: %w", productID, err)
	}
	slog.Info("Updated product with image URL", "product_id", productID, "image_url", imageURL)
	return true, nil
}
