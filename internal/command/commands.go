package command

import (
	"github.com/example/ec-cart/internal/domain/cart"
	"github.com/shopspring/decimal"
)

// Product Commands
type CreateProduct struct {
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	CategoryID        string          `json:"category_id,omitempty"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	DiscountPercent   decimal.Decimal `json:"discount_percent"`
	AvailableQuantity int             `json:"available_quantity"`
}

// UpdateProduct is a partial update; omitted fields keep their value.
type UpdateProduct struct {
	ProductID         string           `json:"-"`
	Name              *string          `json:"name,omitempty"`
	Description       *string          `json:"description,omitempty"`
	CategoryID        *string          `json:"category_id,omitempty"`
	UnitPrice         *decimal.Decimal `json:"unit_price,omitempty"`
	DiscountPercent   *decimal.Decimal `json:"discount_percent,omitempty"`
	AvailableQuantity *int             `json:"available_quantity,omitempty"`
}

type DeleteProduct struct {
	ProductID string `json:"product_id"`
}

// Category Commands
type CreateCategory struct {
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
}

type DeleteCategory struct {
	CategoryID string `json:"category_id"`
}

// Cart Commands
type AddToCart struct {
	OwnerID   string `json:"-"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// UpdateQuantity moves a line by Delta, or by one unit in the direction
// named by Operation ("add"/"increase" or "delete"/"decrease").
type UpdateQuantity struct {
	OwnerID   string `json:"-"`
	ProductID string `json:"product_id"`
	Operation string `json:"operation,omitempty"`
	Delta     int    `json:"delta,omitempty"`
}

type RemoveFromCart struct {
	OwnerID   string `json:"-"`
	ProductID string `json:"product_id"`
}

// RemoveCartItem addresses the cart by id rather than by owner.
type RemoveCartItem struct {
	CartID    string `json:"cart_id"`
	ProductID string `json:"product_id"`
}

type ReplaceCart struct {
	OwnerID string             `json:"-"`
	Lines   []cart.LineRequest `json:"items"`
}

type ClearCart struct {
	OwnerID string `json:"-"`
}
