package mocks

import (
	"context"
	"sync"

	"github.com/example/ec-cart/internal/domain/product"
	"github.com/example/ec-cart/internal/pricing"
	"github.com/shopspring/decimal"
)

// MockCatalog is a product lookup backed by a map
type MockCatalog struct {
	mu       sync.RWMutex
	products map[string]product.Product

	GetCalls []string
	GetErr   error

	// AfterGet, when set, runs after every lookup outside the lock.
	AfterGet func(id string)
}

func NewMockCatalog() *MockCatalog {
	return &MockCatalog{products: make(map[string]product.Product)}
}

// SetProduct stores a product, deriving its special price from price and
// discount.
func (m *MockCatalog) SetProduct(id, name string, price, discount string, available int) *product.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := product.Product{
		ID:                id,
		Name:              name,
		UnitPrice:         decimal.RequireFromString(price),
		DiscountPercent:   decimal.RequireFromString(discount),
		AvailableQuantity: available,
	}
	p.SpecialPrice = pricing.SpecialPrice(p.UnitPrice, p.DiscountPercent)
	m.products[id] = p
	return &p
}

func (m *MockCatalog) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
}

func (m *MockCatalog) GetProduct(_ context.Context, id string) (*product.Product, error) {
	p, err := m.get(id)
	if m.AfterGet != nil {
		m.AfterGet(id)
	}
	return p, err
}

func (m *MockCatalog) get(id string) (*product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls = append(m.GetCalls, id)
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	p, ok := m.products[id]
	if !ok {
		return nil, product.ErrProductNotFound
	}
	return &p, nil
}
