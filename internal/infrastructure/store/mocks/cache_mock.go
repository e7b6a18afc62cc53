package mocks

import (
	"context"
	"sync"

	"github.com/example/ec-cart/internal/domain/cart"
)

// MockCartCache is an in-memory cart.Cache that counts calls
type MockCartCache struct {
	mu   sync.Mutex
	data map[string]*cart.Cart
	gens map[string]int64

	GetCalls    int
	SetCalls    int
	DeleteCalls []string
	GetErr      error
	SetErr      error
	StaleFills  int

	// BeforeSet, when set, runs at the start of every Set outside the lock.
	BeforeSet func(ownerID string)
}

func NewMockCartCache() *MockCartCache {
	return &MockCartCache{data: make(map[string]*cart.Cart), gens: make(map[string]int64)}
}

func (m *MockCartCache) Get(_ context.Context, ownerID string) (*cart.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	c, ok := m.data[ownerID]
	if !ok {
		return nil, cart.ErrCacheMiss
	}
	return c.Clone(), nil
}

func (m *MockCartCache) Generation(_ context.Context, ownerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gens[ownerID], nil
}

func (m *MockCartCache) Set(_ context.Context, ownerID string, c *cart.Cart, generation int64) error {
	if m.BeforeSet != nil {
		m.BeforeSet(ownerID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetCalls++
	if m.SetErr != nil {
		return m.SetErr
	}
	if m.gens[ownerID] != generation {
		m.StaleFills++
		return cart.ErrStaleFill
	}
	m.data[ownerID] = c.Clone()
	return nil
}

func (m *MockCartCache) Delete(_ context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls = append(m.DeleteCalls, ownerID)
	m.gens[ownerID]++
	delete(m.data, ownerID)
	return nil
}

// Has reports whether ownerID is cached
func (m *MockCartCache) Has(ownerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[ownerID]
	return ok
}
