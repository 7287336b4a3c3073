package storage

import (
	"errors"
	"time"

	"github.com/quietlog/loom/pkg/types"
)

var (
	// ErrNotFound indicates that the requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// PaginatedResult represents a paginated result set with type safety using
// generics. It marshals directly as an API response body.
type PaginatedResult[T any] struct {
	// Items is the slice of results for the current page.
	Items []T `json:"items"`

	// Total is the total number of items across all pages.
	Total int `json:"total"`

	// Page is the current page number (1-indexed).
	Page int `json:"page"`

	// PageSize is the number of items per page.
	PageSize int `json:"page_size"`

	// HasMore indicates whether there are more pages available.
	HasMore bool `json:"has_more"`
}

// ListOptions provides pagination and filtering options for entry listing.
type ListOptions struct {
	// Page is the page number to retrieve (1-indexed, default: 1).
	Page int

	// Limit is the number of items per page (default: 20, max: 100).
	Limit int

	// SortBy specifies the field to sort by (default: "created_at").
	SortBy string

	// SortOrder specifies the sort direction ("asc" or "desc", default: "desc").
	SortOrder string

	// Status filters by enrichment status. Empty string means no filter.
	Status types.EntryStatus

	// CreatedAfter filters to entries created at or after this time.
	// Zero value means no lower bound.
	CreatedAfter time.Time

	// CreatedBefore filters to entries created strictly before this time.
	// Zero value means no upper bound.
	CreatedBefore time.Time
}

// Normalize applies defaults and validates the ListOptions.
func (o *ListOptions) Normalize() {
	// Whitelist validation for SortBy to prevent SQL injection
	allowedSortFields := map[string]bool{
		"created_at": true,
		"id":         true,
		"status":     true,
	}

	if !allowedSortFields[o.SortBy] {
		o.SortBy = "created_at" // Default sort field
	}

	if o.SortOrder != "asc" && o.SortOrder != "desc" {
		o.SortOrder = "desc" // Default sort order
	}

	if o.Page < 1 {
		o.Page = 1
	}

	if o.Limit < 1 {
		o.Limit = 20 // Default limit
	}

	if o.Limit > 100 {
		o.Limit = 100 // Max limit
	}
}

// Offset calculates the offset for SQL queries based on page and limit.
func (o *ListOptions) Offset() int {
	return (o.Page - 1) * o.Limit
}
