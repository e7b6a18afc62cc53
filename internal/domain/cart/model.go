package cart

import (
	"time"

	"github.com/example/ec-cart/internal/pricing"
	"github.com/shopspring/decimal"
)

// Cart belongs to exactly one owner. TotalPrice is cached and must always
// equal the sum of its items' captured unit price × quantity.
type Cart struct {
	ID         string          `json:"id"`
	OwnerID    string          `json:"owner_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Items      []*Item         `json:"items"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Item is a (cart, product) line. Quantity is at least 1 while attached;
// an item that would reach zero is removed instead.
type Item struct {
	ID                string          `json:"id"`
	CartID            string          `json:"cart_id"`
	ProductID         string          `json:"product_id"`
	ProductName       string          `json:"product_name"`
	Quantity          int             `json:"quantity"`
	CapturedUnitPrice decimal.Decimal `json:"captured_unit_price"`
	CapturedDiscount  decimal.Decimal `json:"captured_discount"`
	AddedAt           time.Time       `json:"added_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// LineRequest is one entry of a bulk replace.
type LineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (i *Item) LineTotal() decimal.Decimal {
	return pricing.LineTotal(i.CapturedUnitPrice, i.Quantity)
}

func (i *Item) Clone() *Item {
	cp := *i
	return &cp
}

// Item returns the line for productID, or nil.
func (c *Cart) Item(productID string) *Item {
	for _, it := range c.Items {
		if it.ProductID == productID {
			return it
		}
	}
	return nil
}

// ComputedTotal re-derives the total from the items.
func (c *Cart) ComputedTotal() decimal.Decimal {
	lines := make([]pricing.Line, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, pricing.Line{UnitPrice: it.CapturedUnitPrice, Quantity: it.Quantity})
	}
	return pricing.Total(lines)
}

func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Items = make([]*Item, 0, len(c.Items))
	for _, it := range c.Items {
		cp.Items = append(cp.Items, it.Clone())
	}
	return &cp
}
