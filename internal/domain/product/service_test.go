package product_test

import (
	"context"
	"errors"
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

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func newTestCatalogService() (*product.Service, *store.MemoryCatalog, *mocks.MockCartSync, *mocks.MockPublisher) {
	repo := store.NewMemoryCatalog()
	carts := mocks.NewMockCartSync()
	pub := mocks.NewMockPublisher()
	return product.NewService(repo, carts, pub, nil), repo, carts, pub
}

func createKeyboard(t *testing.T, svc *product.Service) *product.Product {
	t.Helper()
	p, err := svc.Create(context.Background(), product.CreateInput{
		Name:              "Keyboard",
		UnitPrice:         dec("100"),
		DiscountPercent:   dec("25"),
		AvailableQuantity: 10,
	})
	require.NoError(t, err)
	return p
}

// ============================================
// Create Tests
// ============================================

func TestService_Create(t *testing.T) {
	svc, repo, _, pub := newTestCatalogService()

	p := createKeyboard(t, svc)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "75.00", p.SpecialPrice.StringFixed(2))
	stored, err := repo.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, stored.SpecialPrice.Equal(dec("75")))

	calls := pub.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, p.ID, calls[0].Key)
	assert.Equal(t, product.EventProductCreated, calls[0].Event.(product.Event).Type)
}

func TestService_Create_Validation(t *testing.T) {
	tests := []struct {
		name    string
		input   product.CreateInput
		wantErr error
	}{
		{"blank name", product.CreateInput{Name: "  ", UnitPrice: dec("1")}, product.ErrInvalidName},
		{"negative price", product.CreateInput{Name: "A", UnitPrice: dec("-1")}, nil},
		{"discount above 100", product.CreateInput{Name: "A", UnitPrice: dec("1"), DiscountPercent: dec("101")}, nil},
		{"negative stock", product.CreateInput{Name: "A", UnitPrice: dec("1"), AvailableQuantity: -1}, product.ErrInvalidQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _, pub := newTestCatalogService()

			p, err := svc.Create(context.Background(), tt.input)

			assert.Nil(t, p)
			require.Error(t, err)
			assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Empty(t, pub.Calls())
		})
	}
}

// ============================================
// Update Tests
// ============================================

func TestService_Update_PriceChangeReconcilesCarts(t *testing.T) {
	svc, _, carts, pub := newTestCatalogService()
	p := createKeyboard(t, svc)

	updated, err := svc.Update(context.Background(), p.ID, product.UpdateInput{DiscountPercent: decPtr("50")})

	require.NoError(t, err)
	assert.Equal(t, "50.00", updated.SpecialPrice.StringFixed(2))
	assert.Equal(t, []string{p.ID}, carts.ReconcileCalls)

	calls := pub.Calls()
	require.Len(t, calls, 2)
	evt := calls[1].Event.(product.Event)
	assert.Equal(t, product.EventProductPriceChanged, evt.Type)
	assert.True(t, evt.PreviousPrice.Equal(dec("75")))
	assert.True(t, evt.SpecialPrice.Equal(dec("50")))
}

func TestService_Update_NonPriceFieldsSkipReconcile(t *testing.T) {
	svc, _, carts, pub := newTestCatalogService()
	p := createKeyboard(t, svc)

	updated, err := svc.Update(context.Background(), p.ID, product.UpdateInput{
		Name:              strPtr("Mechanical Keyboard"),
		AvailableQuantity: intPtr(3),
	})

	require.NoError(t, err)
	assert.Equal(t, "Mechanical Keyboard", updated.Name)
	assert.Equal(t, 3, updated.AvailableQuantity)
	assert.Empty(t, carts.ReconcileCalls)
	assert.Equal(t, product.EventProductUpdated, pub.Calls()[1].Event.(product.Event).Type)
}

func TestService_Update_ReconcileFailureIsNotFatal(t *testing.T) {
	svc, repo, carts, pub := newTestCatalogService()
	p := createKeyboard(t, svc)
	carts.ReconcileErr = errors.New("one cart stuck")

	_, err := svc.Update(context.Background(), p.ID, product.UpdateInput{UnitPrice: decPtr("120")})

	require.NoError(t, err)
	stored, err := repo.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "90.00", stored.SpecialPrice.StringFixed(2))
	assert.Len(t, pub.Calls(), 2)
}

func TestService_Update_Errors(t *testing.T) {
	svc, _, carts, _ := newTestCatalogService()
	p := createKeyboard(t, svc)

	_, err := svc.Update(context.Background(), "missing", product.UpdateInput{Name: strPtr("x")})
	assert.ErrorIs(t, err, product.ErrProductNotFound)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = svc.Update(context.Background(), p.ID, product.UpdateInput{DiscountPercent: decPtr("-5")})
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
	assert.Empty(t, carts.ReconcileCalls)
}

// ============================================
// Delete Tests
// ============================================

func TestService_Delete(t *testing.T) {
	svc, repo, carts, pub := newTestCatalogService()
	p := createKeyboard(t, svc)

	require.NoError(t, svc.Delete(context.Background(), p.ID))

	assert.Equal(t, []string{p.ID}, carts.RemoveCalls)
	_, err := repo.GetProduct(context.Background(), p.ID)
	assert.ErrorIs(t, err, product.ErrProductNotFound)
	assert.Equal(t, product.EventProductDeleted, pub.Calls()[1].Event.(product.Event).Type)

	err = svc.Delete(context.Background(), p.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestService_Delete_KeepsProductWhenCartCleanupFails(t *testing.T) {
	svc, repo, carts, pub := newTestCatalogService()
	p := createKeyboard(t, svc)
	carts.RemoveErr = errors.New("cart locked")

	err := svc.Delete(context.Background(), p.ID)

	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	_, err = repo.GetProduct(context.Background(), p.ID)
	assert.NoError(t, err)
	assert.Len(t, pub.Calls(), 1)
}

func TestService_Delete_CartCleanupFailureIsInternal(t *testing.T) {
	svc, _, carts, _ := newTestCatalogService()
	p := createKeyboard(t, svc)
	// A sweep whose only failed cart reports a domain kind.
	carts.RemoveErr = &cart.ReconcileError{
		ProductID: p.ID,
		Failed:    map[string]error{"c1": apperr.NotFound("Cart", "cartId", "c1", cart.ErrCartNotFound)},
	}

	err := svc.Delete(context.Background(), p.ID)

	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.ErrorIs(t, err, cart.ErrCartNotFound)
}

// ============================================
// With the cart engine
// ============================================

func TestService_PriceChangeFlowsIntoCarts(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryCatalog()
	engine := cart.NewService(store.NewMemoryCartStore(), repo)
	svc := product.NewService(repo, engine, nil, nil)
	p := createKeyboard(t, svc)

	_, err := engine.AddItem(ctx, "owner-1", p.ID, 3)
	require.NoError(t, err)

	_, err = svc.Update(ctx, p.ID, product.UpdateInput{DiscountPercent: decPtr("50")})
	require.NoError(t, err)

	c, err := engine.GetCart(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "150.00", c.TotalPrice.StringFixed(2))

	require.NoError(t, svc.Delete(ctx, p.ID))

	c, err = engine.GetCart(ctx, "owner-1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.True(t, c.TotalPrice.IsZero())
}

func TestService_ListAndGet(t *testing.T) {
	svc, _, _, _ := newTestCatalogService()
	p := createKeyboard(t, svc)
	_, err := svc.Create(context.Background(), product.CreateInput{Name: "Adapter", UnitPrice: dec("9.99")})
	require.NoError(t, err)

	page, err := svc.List(context.Background(), product.ListQuery{})
	require.NoError(t, err)
	require.Len(t, page.Products, 2)
	assert.Equal(t, "Adapter", page.Products[0].Name)

	got, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Keyboard", got.Name)

	_, err = svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, product.ErrProductNotFound)
}

func TestService_List_SortsByPrice(t *testing.T) {
	svc, _, _, _ := newTestCatalogService()
	ctx := context.Background()
	createKeyboard(t, svc) // 75.00 after discount
	for name, price := range map[string]string{"Adapter": "9.99", "Monitor": "180"} {
		_, err := svc.Create(ctx, product.CreateInput{Name: name, UnitPrice: dec(price)})
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, product.ListQuery{SortBy: "PRICE", SortOrder: "DESC"})
	require.NoError(t, err)

	names := make([]string, 0, len(page.Products))
	for _, p := range page.Products {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Monitor", "Keyboard", "Adapter"}, names)
}

func TestService_CategoryAssignment(t *testing.T) {
	svc, repo, _, _ := newTestCatalogService()
	ctx := context.Background()
	categories := category.NewService(repo, nil)
	office, err := categories.Create(ctx, category.CreateInput{Name: "Office"})
	require.NoError(t, err)

	p := createKeyboard(t, svc)
	updated, err := svc.Update(ctx, p.ID, product.UpdateInput{CategoryID: strPtr(office.ID)})
	require.NoError(t, err)
	assert.Equal(t, office.ID, updated.CategoryID)

	page, err := svc.List(ctx, product.ListQuery{CategoryID: office.ID})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)

	_, err = svc.Update(ctx, p.ID, product.UpdateInput{CategoryID: strPtr("missing")})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.ErrorIs(t, err, category.ErrCategoryNotFound)
	stored, err := repo.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, office.ID, stored.CategoryID)
}
