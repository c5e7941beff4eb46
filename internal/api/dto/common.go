// Package dto provides the request and response bodies of the ArabicBase
// persistence API. The server registers them with huma for validation and
// OpenAPI output; the remote store encodes the same types on the client side.
package dto

// ListResponse is a list of items with its length.
type ListResponse[T any] struct {
	Items []T `json:"items" doc:"List of items"`
	Total int `json:"total" doc:"Number of items"`
}

// NewList wraps items, never returning a nil slice.
func NewList[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Total: len(items)}
}

// CountResponse reports how many rows an operation affected.
type CountResponse struct {
	Count int `json:"count" doc:"Rows affected"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}
