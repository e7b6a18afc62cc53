package query

import (
	"context"
	"errors"

	"github.com/example/ec-cart/internal/domain/cart"
	"github.com/example/ec-cart/internal/domain/category"
	"github.com/example/ec-cart/internal/domain/product"
	"github.com/example/ec-cart/internal/readmodel"
)

type Handler struct {
	carts      *cart.Service
	products   *product.Service
	categories *category.Service
}

func NewHandler(carts *cart.Service, products *product.Service, categories *category.Service) *Handler {
	return &Handler{carts: carts, products: products, categories: categories}
}

// Products
func (h *Handler) GetProduct(ctx context.Context, id string) (readmodel.ProductView, error) {
	p, err := h.products.Get(ctx, id)
	if err != nil {
		return readmodel.ProductView{}, err
	}
	return readmodel.NewProductView(p), nil
}

// ListProducts returns one page of the catalog, optionally filtered by
// keyword and category.
func (h *Handler) ListProducts(ctx context.Context, q product.ListQuery) (readmodel.ProductPageView, error) {
	page, err := h.products.List(ctx, q)
	if err != nil {
		return readmodel.ProductPageView{}, err
	}
	return readmodel.NewProductPageView(page), nil
}

// Categories
func (h *Handler) GetCategory(ctx context.Context, id string) (readmodel.CategoryView, error) {
	c, err := h.categories.Get(ctx, id)
	if err != nil {
		return readmodel.CategoryView{}, err
	}
	return readmodel.NewCategoryView(c), nil
}

func (h *Handler) ListCategories(ctx context.Context) ([]readmodel.CategoryView, error) {
	categories, err := h.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]readmodel.CategoryView, 0, len(categories))
	for _, c := range categories {
		views = append(views, readmodel.NewCategoryView(c))
	}
	return views, nil
}

// GetCart returns the owner's cart, or an empty view if they have none yet.
func (h *Handler) GetCart(ctx context.Context, ownerID string) (readmodel.CartView, error) {
	c, err := h.carts.GetCart(ctx, ownerID)
	if errors.Is(err, cart.ErrCartNotFound) {
		return readmodel.EmptyCartView(ownerID), nil
	}
	if err != nil {
		return readmodel.CartView{}, err
	}
	return readmodel.NewCartView(c), nil
}

func (h *Handler) GetCartByID(ctx context.Context, cartID string) (readmodel.CartView, error) {
	c, err := h.carts.GetCartByID(ctx, cartID)
	if err != nil {
		return readmodel.CartView{}, err
	}
	return readmodel.NewCartView(c), nil
}

// ListCarts returns every cart (for admin use)
func (h *Handler) ListCarts(ctx context.Context) ([]readmodel.CartView, error) {
	carts, err := h.carts.ListCarts(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]readmodel.CartView, 0, len(carts))
	for _, c := range carts {
		views = append(views, readmodel.NewCartView(c))
	}
	return views, nil
}
