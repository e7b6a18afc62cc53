package command

import (
	"context"
	"testing"

	"github.com/example/ec-cart/internal/apperr"
	"github.com/example/ec-cart/internal/domain/cart"
	"github.com/example/ec-cart/internal/domain/category"
	"github.com/example/ec-cart/internal/domain/product"
	"github.com/example/ec-cart/internal/infrastructure/store"
	"github.com/example/ec-cart/internal/infrastructure/store/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler() (*Handler, *mocks.MockPublisher) {
	catalog := store.NewMemoryCatalog()
	publisher := mocks.NewMockPublisher()

	cartSvc := cart.NewService(store.NewMemoryCartStore(), catalog, cart.WithPublisher(publisher))
	productSvc := product.NewService(catalog, cartSvc, publisher, nil)

	categorySvc := category.NewService(catalog, nil)

	return NewHandler(cartSvc, productSvc, categorySvc), publisher
}

func createKeyboard(t *testing.T, h *Handler) string {
	t.Helper()
	p, err := h.CreateProduct(context.Background(), CreateProduct{
		Name:              "Keyboard",
		UnitPrice:         decimal.RequireFromString("100"),
		DiscountPercent:   decimal.RequireFromString("25"),
		AvailableQuantity: 10,
	})
	require.NoError(t, err)
	return p.ID
}

// ============================================
// Product Command Tests
// ============================================

func TestHandler_CreateProduct_Success(t *testing.T) {
	handler, publisher := newTestHandler()

	p, err := handler.CreateProduct(context.Background(), CreateProduct{
		Name:              "Test Product",
		UnitPrice:         decimal.RequireFromString("10"),
		AvailableQuantity: 50,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "10.00", p.SpecialPrice)
	assert.Equal(t, 50, p.AvailableQuantity)
	assert.Len(t, publisher.Calls(), 1)
}

func TestHandler_CreateProduct_InvalidName(t *testing.T) {
	handler, _ := newTestHandler()

	_, err := handler.CreateProduct(context.Background(), CreateProduct{UnitPrice: decimal.RequireFromString("10")})

	assert.ErrorIs(t, err, product.ErrInvalidName)
}

func TestHandler_UpdateProduct_RepricesCarts(t *testing.T) {
	handler, _ := newTestHandler()
	ctx := context.Background()
	id := createKeyboard(t, handler)
	_, err := handler.AddToCart(ctx, AddToCart{OwnerID: "owner-1", ProductID: id, Quantity: 3})
	require.NoError(t, err)

	discount := decimal.RequireFromString("50")
	p, err := handler.UpdateProduct(ctx, UpdateProduct{ProductID: id, DiscountPercent: &discount})
	require.NoError(t, err)
	assert.Equal(t, "50.00", p.SpecialPrice)

	v, err := handler.UpdateQuantity(ctx, UpdateQuantity{OwnerID: "owner-1", ProductID: id, Delta: 0, Operation: "add"})
	require.NoError(t, err)
	assert.Equal(t, "200.00", v.Total)
}

func TestHandler_DeleteProduct_EmptiesCarts(t *testing.T) {
	handler, _ := newTestHandler()
	ctx := context.Background()
	id := createKeyboard(t, handler)
	_, err := handler.AddToCart(ctx, AddToCart{OwnerID: "owner-1", ProductID: id, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, handler.DeleteProduct(ctx, DeleteProduct{ProductID: id}))

	v, err := handler.ClearCart(ctx, ClearCart{OwnerID: "owner-1"})
	require.NoError(t, err)
	assert.Equal(t, "0.00", v.Total)
}

// ============================================
// Category Command Tests
// ============================================

func TestHandler_CategoryLifecycle(t *testing.T) {
	h, _ := newTestHandler()
	ctx := context.Background()

	c, err := h.CreateCategory(ctx, CreateCategory{Name: "Office Supplies"})
	require.NoError(t, err)
	assert.Equal(t, "office-supplies", c.Slug)

	p, err := h.CreateProduct(ctx, CreateProduct{
		Name:              "Stapler",
		CategoryID:        c.ID,
		UnitPrice:         decimal.RequireFromString("8"),
		AvailableQuantity: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, c.ID, p.CategoryID)

	err = h.DeleteCategory(ctx, DeleteCategory{CategoryID: c.ID})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	none := ""
	_, err = h.UpdateProduct(ctx, UpdateProduct{ProductID: p.ID, CategoryID: &none})
	require.NoError(t, err)
	require.NoError(t, h.DeleteCategory(ctx, DeleteCategory{CategoryID: c.ID}))
}

func TestHandler_CreateProduct_UnknownCategory(t *testing.T) {
	h, _ := newTestHandler()

	_, err := h.CreateProduct(context.Background(), CreateProduct{
		Name:       "Stapler",
		CategoryID: "missing",
		UnitPrice:  decimal.RequireFromString("8"),
	})

	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.ErrorIs(t, err, category.ErrCategoryNotFound)
}

// ============================================
// Cart Command Tests
// ============================================

func TestHandler_AddToCart(t *testing.T) {
	handler, _ := newTestHandler()
	id := createKeyboard(t, handler)

	v, err := handler.AddToCart(context.Background(), AddToCart{OwnerID: "owner-1", ProductID: id, Quantity: 2})

	require.NoError(t, err)
	assert.Equal(t, "150.00", v.Total)
	require.Len(t, v.Items, 1)
	assert.Equal(t, "Keyboard", v.Items[0].Name)
	assert.Equal(t, "150.00", v.Items[0].Subtotal)
}

func TestHandler_UpdateQuantity_Operations(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		delta     int
		wantQty   int
		wantTotal string
	}{
		{"add", "add", 0, 3, "225.00"},
		{"increase", "Increase", 0, 3, "225.00"},
		{"decrease", "decrease", 0, 1, "75.00"},
		{"delete", "delete", 0, 1, "75.00"},
		{"explicit delta", "", 4, 6, "450.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _ := newTestHandler()
			ctx := context.Background()
			id := createKeyboard(t, handler)
			_, err := handler.AddToCart(ctx, AddToCart{OwnerID: "owner-1", ProductID: id, Quantity: 2})
			require.NoError(t, err)

			v, err := handler.UpdateQuantity(ctx, UpdateQuantity{OwnerID: "owner-1", ProductID: id, Operation: tt.operation, Delta: tt.delta})

			require.NoError(t, err)
			require.Len(t, v.Items, 1)
			assert.Equal(t, tt.wantQty, v.Items[0].Quantity)
			assert.Equal(t, tt.wantTotal, v.Total)
		})
	}
}

func TestHandler_UpdateQuantity_UnknownOperation(t *testing.T) {
	handler, _ := newTestHandler()

	_, err := handler.UpdateQuantity(context.Background(), UpdateQuantity{OwnerID: "owner-1", ProductID: "42", Operation: "double"})
	assert.ErrorIs(t, err, ErrUnknownOperation)
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))

	_, err = handler.UpdateQuantity(context.Background(), UpdateQuantity{OwnerID: "owner-1", ProductID: "42"})
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

func TestHandler_DecreaseToZeroRemovesLine(t *testing.T) {
	handler, _ := newTestHandler()
	ctx := context.Background()
	id := createKeyboard(t, handler)
	_, err := handler.AddToCart(ctx, AddToCart{OwnerID: "owner-1", ProductID: id, Quantity: 1})
	require.NoError(t, err)

	v, err := handler.UpdateQuantity(ctx, UpdateQuantity{OwnerID: "owner-1", ProductID: id, Operation: "decrease"})

	require.NoError(t, err)
	assert.Empty(t, v.Items)
	assert.Equal(t, "0.00", v.Total)
}

func TestHandler_RemoveAndReplace(t *testing.T) {
	handler, _ := newTestHandler()
	ctx := context.Background()
	id := createKeyboard(t, handler)
	v, err := handler.AddToCart(ctx, AddToCart{OwnerID: "owner-1", ProductID: id, Quantity: 1})
	require.NoError(t, err)

	msg, err := handler.RemoveCartItem(ctx, RemoveCartItem{CartID: v.ID, ProductID: id})
	require.NoError(t, err)
	assert.Equal(t, "Product Keyboard removed from the cart", msg)

	_, err = handler.RemoveFromCart(ctx, RemoveFromCart{OwnerID: "owner-1", ProductID: id})
	assert.ErrorIs(t, err, cart.ErrItemNotInCart)

	v, err = handler.ReplaceCart(ctx, ReplaceCart{OwnerID: "owner-1", Lines: []cart.LineRequest{{ProductID: id, Quantity: 4}}})
	require.NoError(t, err)
	assert.Equal(t, "300.00", v.Total)

	v, err = handler.RemoveFromCart(ctx, RemoveFromCart{OwnerID: "owner-1", ProductID: id})
	require.NoError(t, err)
	assert.Equal(t, "0.00", v.Total)
}
