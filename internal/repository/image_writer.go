package repository

import "context"

// ImageWriter persists a generated image URL onto its record.
type ImageWriter interface {
	// Persist reports whether a record was changed. A dry run changes nothing and reports true.
	Persist(ctx context.Context, productID int64, imageURL string, dryRun bool) (bool, error)
}
