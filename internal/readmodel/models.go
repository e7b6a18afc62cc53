package readmodel

import (
	"time"

	"github.com/example/ec-cart/internal/domain/cart"
	"github.com/example/ec-cart/internal/domain/category"
	"github.com/example/ec-cart/internal/domain/product"
	"github.com/example/ec-cart/internal/pricing"
)

// ProductView is the read model for products. Money is rendered with two
// decimal places.
type ProductView struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	CategoryID        string    `json:"category_id,omitempty"`
	UnitPrice         string    `json:"unit_price"`
	DiscountPercent   string    `json:"discount_percent"`
	SpecialPrice      string    `json:"special_price"`
	AvailableQuantity int       `json:"available_quantity"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ProductPageView is one page of a catalog listing.
type ProductPageView struct {
	Content       []ProductView `json:"content"`
	PageNumber    int           `json:"page_number"`
	PageSize      int           `json:"page_size"`
	TotalElements int           `json:"total_elements"`
	TotalPages    int           `json:"total_pages"`
	LastPage      bool          `json:"last_page"`
}

type CategoryView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// CartLineView represents an item in the cart
type CartLineView struct {
	ProductID       string    `json:"product_id"`
	Name            string    `json:"name"`
	Quantity        int       `json:"quantity"`
	UnitPrice       string    `json:"unit_price"`
	DiscountPercent string    `json:"discount_percent"`
	Subtotal        string    `json:"subtotal"`
	AddedAt         time.Time `json:"added_at"`
}

// CartView is the read model for a shopping cart
type CartView struct {
	ID        string         `json:"id"`
	OwnerID   string         `json:"owner_id"`
	Items     []CartLineView `json:"items"`
	ItemCount int            `json:"item_count"`
	Total     string         `json:"total"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func NewProductView(p *product.Product) ProductView {
	return ProductView{
		ID:                p.ID,
		Name:              p.Name,
		Description:       p.Description,
		CategoryID:        p.CategoryID,
		UnitPrice:         p.UnitPrice.StringFixed(pricing.Places),
		DiscountPercent:   p.DiscountPercent.StringFixed(pricing.Places),
		SpecialPrice:      p.SpecialPrice.StringFixed(pricing.Places),
		AvailableQuantity: p.AvailableQuantity,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func NewProductPageView(p *product.Page) ProductPageView {
	v := ProductPageView{
		Content:       make([]ProductView, 0, len(p.Products)),
		PageNumber:    p.Number,
		PageSize:      p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages(),
		LastPage:      p.LastPage(),
	}
	for _, prod := range p.Products {
		v.Content = append(v.Content, NewProductView(prod))
	}
	return v
}

func NewCategoryView(c *category.Category) CategoryView {
	return CategoryView{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
	}
}

func NewCartView(c *cart.Cart) CartView {
	v := CartView{
		ID:        c.ID,
		OwnerID:   c.OwnerID,
		Items:     make([]CartLineView, 0, len(c.Items)),
		Total:     c.TotalPrice.StringFixed(pricing.Places),
		UpdatedAt: c.UpdatedAt,
	}
	for _, it := range c.Items {
		v.Items = append(v.Items, CartLineView{
			ProductID:       it.ProductID,
			Name:            it.ProductName,
			Quantity:        it.Quantity,
			UnitPrice:       it.CapturedUnitPrice.StringFixed(pricing.Places),
			DiscountPercent: it.CapturedDiscount.StringFixed(pricing.Places),
			Subtotal:        it.LineTotal().StringFixed(pricing.Places),
			AddedAt:         it.AddedAt,
		})
		v.ItemCount += it.Quantity
	}
	return v
}

// EmptyCartView is returned to an owner who has not added anything yet.
func EmptyCartView(ownerID string) CartView {
	return CartView{
		OwnerID: ownerID,
		Items:   []CartLineView{},
		Total:   "0.00",
	}
}
