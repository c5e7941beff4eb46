package domain

import "time"

// CatalogKind selects one of the two controlled vocabularies.
type CatalogKind string

const (
	CatalogDialect  CatalogKind = "dialect"
	CatalogCategory CatalogKind = "category"
)

// Valid reports whether k is a known catalog.
func (k CatalogKind) Valid() bool {
	return k == CatalogDialect || k == CatalogCategory
}

// CatalogItem is a row in the global dialect or category catalog.
// Global rows are shared by every user and are never deleted by unsubscribing.
type CatalogItem struct {
	ID        string      `json:"id"`
	Kind      CatalogKind `json:"kind"`
	Name      string      `json:"name"`
	CreatedAt time.Time   `json:"created_at"`
}

// Subscription links a user to a global catalog item.
type Subscription struct {
	UserID    string    `json:"user_id"`
	ItemID    string    `json:"item_id"`
	CreatedAt time.Time `json:"created_at"`
}
