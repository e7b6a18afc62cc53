package product

import (
	"context"
	"errors"
	"time"

	"github.com/example/ec-cart/internal/domain/category"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidName     = errors.New("name is required")
	ErrInvalidQuantity = errors.New("quantity must not be negative")
)

// Product is the catalog's authoritative snapshot of an item for sale.
// SpecialPrice is derived from UnitPrice and DiscountPercent whenever either
// changes and is what carts capture.
type Product struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	CategoryID        string          `json:"category_id,omitempty"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	DiscountPercent   decimal.Decimal `json:"discount_percent"`
	SpecialPrice      decimal.Decimal `json:"special_price"`
	AvailableQuantity int             `json:"available_quantity"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Catalog is the read-only lookup the cart engine prices against.
type Catalog interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
}

type Repository interface {
	Catalog
	// ListProducts returns one page of products matching a normalized q.
	ListProducts(ctx context.Context, q ListQuery) (*Page, error)
	GetCategory(ctx context.Context, id string) (*category.Category, error)
	SaveProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id string) error
}

// CartSync is notified of price changes and deletions so that cart totals
// never go stale.
type CartSync interface {
	ReconcileOnCatalogChange(ctx context.Context, productID string) error
	RemoveProductFromAllCarts(ctx context.Context, productID string) error
}

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}
