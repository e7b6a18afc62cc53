package mocks

import (
	"context"
	"sync"
)

// MockCartSync records catalog notifications sent to the cart engine
type MockCartSync struct {
	mu sync.Mutex

	ReconcileCalls []string
	RemoveCalls    []string
	ReconcileErr   error
	RemoveErr      error
}

func NewMockCartSync() *MockCartSync {
	return &MockCartSync{}
}

func (m *MockCartSync) ReconcileOnCatalogChange(_ context.Context, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReconcileCalls = append(m.ReconcileCalls, productID)
	return m.ReconcileErr
}

func (m *MockCartSync) RemoveProductFromAllCarts(_ context.Context, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RemoveCalls = append(m.RemoveCalls, productID)
	return m.RemoveErr
}
