package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/user/product-image-updater/internal/entity"
	"github.com/user/product-image-updater/pkg/utils"
)

const pendingProductsSelect = `
	SELECT
		p.product_id AS id,
		COALESCE(pt.name, '') AS category,
		COALESCE(pl.name, '') AS brand,
		p.name AS name,
		COALESCE(p.description, '') AS description,
		COALESCE(p.upc_code, '') AS upc,
		COALESCE(p.vendor_code_default, '') AS vendor_code
	FROM product AS p
	LEFT OUTER JOIN product_type AS pt ON pt.product_type_id = p.product_type_id
	LEFT OUTER JOIN product_line AS pl ON pl.product_line_id = p.product_line_id
	WHERE p.image_file_name IS NULL
		AND p.name IS NOT NULL`

const (
	pendingProductsPageQuery = pendingProductsSelect + `
		AND p.product_id > $1
	ORDER BY p.product_id
	LIMIT $2;`

	pendingProductByIDQuery = pendingProductsSelect + `
		AND p.product_id = $1
	ORDER BY p.product_id
	LIMIT 1;`
)

type pendingRow struct {
	ID          int64  `db:"id"`
	Category    string `db:"category"`
	Brand       string `db:"brand"`
	Name        string `db:"name"`
	Description string `db:"description"`
	UPC         string `db:"upc"`
	VendorCode  string `db:"vendor_code"`
}

func (r pendingRow) toEntity() entity.PendingRecord {
	return entity.PendingRecord{
		ID:          r.ID,
		Category:    r.Category,
		Brand:       utils.NormalizeBrand(r.Brand),
		Description: utils.NormalizeDescription(r.Name, r.Description),
		UPC:         utils.NormalizeUPC(r.UPC),
		ISBN:        utils.NormalizeISBN(r.VendorCode),
	}
}

// ProductSourceImpl provides a concrete implementation for the RecordSource interface using PostgreSQL.
type ProductSourceImpl struct {
	db *sqlx.DB
}

// NewProductSource creates a new instance of ProductSourceImpl.
func NewProductSource(db *sqlx.DB) *ProductSourceImpl {
	return &ProductSourceImpl{db: db}
}

// Fetch retrieves products that have a name but no image, ordered by id.
// Every call re-reads current state, so updated products never come back.
func (s *ProductSourceImpl) Fetch(ctx context.Context, q entity.PendingQuery) ([]entity.PendingRecord, error) {
	var rows []pendingRow
	var err error
	if q.FilterID != 0 {
		err = s.db.SelectContext(ctx, &rows, pendingProductByIDQuery, q.FilterID)
	} else {
		if q.Limit < 1 {
			return nil, fmt.Errorf("fetch limit must be positive, got %d", q.Limit)
		}
		err = s.db.SelectContext(ctx, &rows, pendingProductsPageQuery, q.AfterID, q.Limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products without images: %w", err)
	}

	records := make([]entity.PendingRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toEntity())
	}
	slog.Info("Fetched products without images", "count", len(records), "after_id", q.AfterID, "filter_id", q.FilterID)
	return records, nil
}
