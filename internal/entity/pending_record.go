package entity

// PendingRecord is a product row that has no image yet. All text fields are
// normalized and never nil; absent values are empty strings.
type PendingRecord struct {
	ID          int64
	Category    string
	Brand       string
	Description string
	UPC         string
	ISBN        string
}

// PendingQuery selects a page of pending records.
type PendingQuery struct {
	Limit int
	// FilterID restricts the page to a single product when non-zero.
	FilterID int64
	// AfterID is a keyset cursor: only ids strictly greater are returned.
	AfterID int64
}
