package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/lts-health/exams-api/pkg/apperror"
)

// Base contains common fields for all persisted models.
type Base struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// PageRequest represents common pagination parameters. Pages are 1-indexed.
type PageRequest struct {
	Page     int `json:"page" form:"page"`
	PageSize int `json:"page_size" form:"page_size"`
}

// Normalize applies defaults and validates bounds before any query runs.
func (p *PageRequest) Normalize() error {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.PageSize == 0 {
		p.PageSize = DefaultPageSize
	}
	if p.Page < 1 {
		return apperror.Validation("page must be >= 1")
	}
	if p.PageSize < 1 {
		return apperror.Validation("page_size must be >= 1")
	}
	if p.PageSize > MaxPageSize {
		return apperror.Validation("page_size cannot exceed %d", MaxPageSize)
	}
	return nil
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Paginated is the common listing envelope.
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginated wraps items in a page envelope. total_pages is
// ceil(total/size); pages past the end carry an empty item list.
func NewPaginated[T any](items []T, total int64, page PageRequest) Paginated[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := int((total + int64(page.PageSize) - 1) / int64(page.PageSize))
	return Paginated[T]{
		Items:      items,
		TotalCount: total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: totalPages,
	}
}

// DateRange is an inclusive [From, To] filter on a date column.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Validate rejects ranges where To precedes From.
func (r DateRange) Validate() error {
	if r.From != nil && r.To != nil && r.To.Before(*r.From) {
		return apperror.Validation("end date must be on or after start date")
	}
	return nil
}
