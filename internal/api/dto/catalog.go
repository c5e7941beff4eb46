package dto

// CatalogRequest names a dialect or category.
type CatalogRequest struct {
	Name string `json:"name" minLength:"1" maxLength:"100" doc:"Dialect or category name"`
}
