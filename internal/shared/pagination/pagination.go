package pagination

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"content-dumper/internal/shared/apperr"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params represents pagination and search query parameters.
type Params struct {
	Page   int
	Limit  int
	Search string
}

// Offset returns the database OFFSET for the page. Pages are 1-based.
func (p Params) Offset() int {
	return CalculateOffset(p.Page, p.Limit)
}

// Metadata describes one page of a listing.
type Metadata struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// Response is a paginated response wrapper.
type Response[T any] struct {
	Data       []T      `json:"data"`
	Pagination Metadata `json:"pagination"`
}

// Parse reads page, limit and q from the query string.
func Parse(c *gin.Context) (Params, error) {
	return ParseValues(c.Query("page"), c.Query("limit"), c.Query("q"))
}

// ParseValues validates raw page, limit and search values.
func ParseValues(page, limit, q string) (Params, error) {
	params := Params{Page: DefaultPage, Limit: DefaultLimit, Search: strings.TrimSpace(q)}

	if page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			return params, apperr.Invalid("page", "must be a positive integer")
		}
		params.Page = n
	}
	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 || n > MaxLimit {
			return params, apperr.Invalid("limit", "must be between 1 and "+strconv.Itoa(MaxLimit))
		}
		params.Limit = n
	}
	// (page-1)*limit must fit in an int.
	if params.Page-1 > math.MaxInt/params.Limit {
		return params, apperr.Invalid("page", "is too large")
	}
	if len(params.Search) > 256 {
		return params, apperr.Invalid("q", "must be at most 256 characters")
	}
	return params, nil
}

// CalculateOffset calculates the OFFSET for a 1-based page.
func CalculateOffset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}

// CalculateTotalPages uses ceiling division; there is always at least one page.
func CalculateTotalPages(total int64, limit int) int {
	if total == 0 || limit <= 0 {
		return 1
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// NewMetadata builds page metadata for a listing of total rows.
func NewMetadata(p Params, total int64) Metadata {
	pages := CalculateTotalPages(total, p.Limit)
	return Metadata{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    p.Page < pages,
		HasPrev:    p.Page > 1,
	}
}

// NewResponse wraps data with metadata. A nil slice is rendered as [].
func NewResponse[T any](data []T, p Params, total int64) Response[T] {
	if data == nil {
		data = []T{}
	}
	return Response[T]{Data: data, Pagination: NewMetadata(p, total)}
}
