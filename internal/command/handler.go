package command

import (
	"context"
	"errors"
	"strings"

	"github.com/example/ec-cart/internal/apperr"
	"github.com/example/ec-cart/internal/domain/cart"
	"github.com/example/ec-cart/internal/domain/category"
	"github.com/example/ec-cart/internal/domain/product"
	"github.com/example/ec-cart/internal/readmodel"
)

var ErrUnknownOperation = errors.New("operation must be add, increase, delete or decrease")

type Handler struct {
	cartSvc     *cart.Service
	productSvc  *product.Service
	categorySvc *category.Service
}

func NewHandler(cartSvc *cart.Service, productSvc *product.Service, categorySvc *category.Service) *Handler {
	return &Handler{
		cartSvc:     cartSvc,
		productSvc:  productSvc,
		categorySvc: categorySvc,
	}
}

// CreateProduct creates a new catalog entry
func (h *Handler) CreateProduct(ctx context.Context, cmd CreateProduct) (readmodel.ProductView, error) {
	p, err := h.productSvc.Create(ctx, product.CreateInput{
		Name:              cmd.Name,
		Description:       cmd.Description,
		CategoryID:        cmd.CategoryID,
		UnitPrice:         cmd.UnitPrice,
		DiscountPercent:   cmd.DiscountPercent,
		AvailableQuantity: cmd.AvailableQuantity,
	})
	if err != nil {
		return readmodel.ProductView{}, err
	}
	return readmodel.NewProductView(p), nil
}

// UpdateProduct applies a partial update; a price change re-prices carts
func (h *Handler) UpdateProduct(ctx context.Context, cmd UpdateProduct) (readmodel.ProductView, error) {
	p, err := h.productSvc.Update(ctx, cmd.ProductID, product.UpdateInput{
		Name:              cmd.Name,
		Description:       cmd.Description,
		CategoryID:        cmd.CategoryID,
		UnitPrice:         cmd.UnitPrice,
		DiscountPercent:   cmd.DiscountPercent,
		AvailableQuantity: cmd.AvailableQuantity,
	})
	if err != nil {
		return readmodel.ProductView{}, err
	}
	return readmodel.NewProductView(p), nil
}

func (h *Handler) DeleteProduct(ctx context.Context, cmd DeleteProduct) error {
	return h.productSvc.Delete(ctx, cmd.ProductID)
}

func (h *Handler) CreateCategory(ctx context.Context, cmd CreateCategory) (readmodel.CategoryView, error) {
	c, err := h.categorySvc.Create(ctx, category.CreateInput{
		Name:        cmd.Name,
		Slug:        cmd.Slug,
		Description: cmd.Description,
	})
	if err != nil {
		return readmodel.CategoryView{}, err
	}
	return readmodel.NewCategoryView(c), nil
}

func (h *Handler) DeleteCategory(ctx context.Context, cmd DeleteCategory) error {
	return h.categorySvc.Delete(ctx, cmd.CategoryID)
}

func (h *Handler) AddToCart(ctx context.Context, cmd AddToCart) (readmodel.CartView, error) {
	return view(h.cartSvc.AddItem(ctx, cmd.OwnerID, cmd.ProductID, cmd.Quantity))
}

func (h *Handler) UpdateQuantity(ctx context.Context, cmd UpdateQuantity) (readmodel.CartView, error) {
	delta, err := cmd.delta()
	if err != nil {
		return readmodel.CartView{}, err
	}
	return view(h.cartSvc.AdjustQuantity(ctx, cmd.OwnerID, cmd.ProductID, delta))
}

func (h *Handler) RemoveFromCart(ctx context.Context, cmd RemoveFromCart) (readmodel.CartView, error) {
	return view(h.cartSvc.RemoveOwnerItem(ctx, cmd.OwnerID, cmd.ProductID))
}

// RemoveCartItem returns the engine's confirmation message
func (h *Handler) RemoveCartItem(ctx context.Context, cmd RemoveCartItem) (string, error) {
	return h.cartSvc.RemoveItem(ctx, cmd.CartID, cmd.ProductID)
}

func (h *Handler) ReplaceCart(ctx context.Context, cmd ReplaceCart) (readmodel.CartView, error) {
	return view(h.cartSvc.ReplaceCartContents(ctx, cmd.OwnerID, cmd.Lines))
}

func (h *Handler) ClearCart(ctx context.Context, cmd ClearCart) (readmodel.CartView, error) {
	return view(h.cartSvc.ClearCart(ctx, cmd.OwnerID))
}

func (cmd UpdateQuantity) delta() (int, error) {
	switch strings.ToLower(strings.TrimSpace(cmd.Operation)) {
	case "add", "increase":
		return 1, nil
	case "delete", "decrease":
		return -1, nil
	case "":
		if cmd.Delta != 0 {
			return cmd.Delta, nil
		}
	}
	return 0, apperr.Invalid("CartItem", "operation", cmd.Operation, ErrUnknownOperation)
}

func view(c *cart.Cart, err error) (readmodel.CartView, error) {
	if err != nil {
		return readmodel.CartView{}, err
	}
	return readmodel.NewCartView(c), nil
}
