package product

import (
	"errors"
	"strings"

	"github.com/example/ec-cart/internal/apperr"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	SortByName      = "name"
	SortByPrice     = "price"
	SortByCreatedAt = "created_at"

	SortAsc  = "asc"
	SortDesc = "desc"
)

var (
	ErrInvalidPage      = errors.New("page must not be negative")
	ErrInvalidPageSize  = errors.New("size must be between 1 and 100")
	ErrInvalidSortField = errors.New("sort must be one of name, price, created_at")
	ErrInvalidSortOrder = errors.New("order must be asc or desc")
)

// ListQuery selects one page of the catalog. Page is zero-based. Keyword
// matches product names case-insensitively.
type ListQuery struct {
	Keyword    string
	CategoryID string
	Page       int
	Size       int
	SortBy     string
	SortOrder  string
}

// Offset is the number of matching products before the page.
func (q ListQuery) Offset() int { return q.Page * q.Size }

// normalize fills defaults and rejects values a repository could not
// honour. Repositories receive only normalized queries.
func (q ListQuery) normalize() (ListQuery, error) {
	q.Keyword = strings.TrimSpace(q.Keyword)
	if q.Page < 0 {
		return q, apperr.Invalid("Product", "page", q.Page, ErrInvalidPage)
	}
	if q.Size == 0 {
		q.Size = DefaultPageSize
	}
	if q.Size < 1 || q.Size > MaxPageSize {
		return q, apperr.Invalid("Product", "size", q.Size, ErrInvalidPageSize)
	}

	q.SortBy = strings.ToLower(q.SortBy)
	switch q.SortBy {
	case "":
		q.SortBy = SortByName
	case SortByName, SortByPrice, SortByCreatedAt:
	default:
		return q, apperr.Invalid("Product", "sort", q.SortBy, ErrInvalidSortField)
	}

	q.SortOrder = strings.ToLower(q.SortOrder)
	switch q.SortOrder {
	case "":
		q.SortOrder = SortAsc
	case SortAsc, SortDesc:
	default:
		return q, apperr.Invalid("Product", "order", q.SortOrder, ErrInvalidSortOrder)
	}
	return q, nil
}

// Page is one slice of a catalog listing plus the size of the whole result.
type Page struct {
	Products      []*Product
	Number        int
	Size          int
	TotalElements int
}

func (p *Page) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	return (p.TotalElements + p.Size - 1) / p.Size
}

func (p *Page) LastPage() bool {
	return p.Number+1 >= p.TotalPages()
}
