// types package contains the public API types
// that are shared between both REST and GraphQL
package types

import (
	"net/http"

	"github.com/aiidateam/aiida-data-apis/filter"
)

// DefaultPageSize is the page size used when the request does not set one.
const DefaultPageSize = 10

// Order is one sort key of a query.
type Order struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending"`
}

// QueryParams selects, sorts and pages the entities of one kind.
type QueryParams struct {
	Filters  filter.Expression `json:"filters"`
	OrderBy  []Order           `json:"order_by"`
	PageSize int               `json:"page_size" validate:"gt=0"`
	Page     int               `json:"page" validate:"gte=1"`
}

// NewQueryParams returns the parameters of an unfiltered request for the
// first page.
func NewQueryParams() QueryParams {
	return QueryParams{PageSize: DefaultPageSize, Page: 1}
}

// Offset returns the number of entities before the requested page.
func (p QueryParams) Offset() int {
	return p.PageSize * (p.Page - 1)
}

// PaginatedResult is one page of a query along with the total number of
// matching entities.
type PaginatedResult[T any] struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Results  []T   `json:"results"`
}

// Route represents a request route to be served
type Route struct {
	Method  string
	Pattern string
	Handler http.Handler
}
