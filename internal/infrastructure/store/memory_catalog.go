package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/example/ec-cart/internal/domain/category"
	"github.com/example/ec-cart/internal/domain/product"
)

// MemoryCatalog is an in-process product and category table.
type MemoryCatalog struct {
	mu         sync.RWMutex
	products   map[string]product.Product
	categories map[string]category.Category
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		products:   make(map[string]product.Product),
		categories: make(map[string]category.Category),
	}
}

func (c *MemoryCatalog) GetProduct(_ context.Context, id string) (*product.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return nil, product.ErrProductNotFound
	}
	return &p, nil
}

func (c *MemoryCatalog) ListProducts(_ context.Context, q product.ListQuery) (*product.Page, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keyword := strings.ToLower(q.Keyword)
	matched := make([]*product.Product, 0, len(c.products))
	for _, p := range c.products {
		if keyword != "" && !strings.Contains(strings.ToLower(p.Name), keyword) {
			continue
		}
		if q.CategoryID != "" && p.CategoryID != q.CategoryID {
			continue
		}
		p := p
		matched = append(matched, &p)
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var cmp int
		switch q.SortBy {
		case product.SortByPrice:
			cmp = a.SpecialPrice.Cmp(b.SpecialPrice)
		case product.SortByCreatedAt:
			cmp = a.CreatedAt.Compare(b.CreatedAt)
		default:
			cmp = strings.Compare(a.Name, b.Name)
		}
		if q.SortOrder == product.SortDesc {
			cmp = -cmp
		}
		if cmp == 0 {
			return a.ID < b.ID
		}
		return cmp < 0
	})

	page := &product.Page{Products: []*product.Product{}, Number: q.Page, Size: q.Size, TotalElements: len(matched)}
	if start := q.Offset(); start < len(matched) {
		end := min(start+q.Size, len(matched))
		page.Products = matched[start:end]
	}
	return page, nil
}

func (c *MemoryCatalog) SaveProduct(_ context.Context, p *product.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = *p
	return nil
}

func (c *MemoryCatalog) DeleteProduct(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.products[id]; !ok {
		return product.ErrProductNotFound
	}
	delete(c.products, id)
	return nil
}

// Categories

func (c *MemoryCatalog) GetCategory(_ context.Context, id string) (*category.Category, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cat, ok := c.categories[id]
	if !ok {
		return nil, category.ErrCategoryNotFound
	}
	return &cat, nil
}

func (c *MemoryCatalog) ListCategories(_ context.Context) ([]*category.Category, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*category.Category, 0, len(c.categories))
	for _, cat := range c.categories {
		cat := cat
		out = append(out, &cat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (c *MemoryCatalog) SaveCategory(_ context.Context, cat *category.Category) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, existing := range c.categories {
		if id != cat.ID && existing.Slug == cat.Slug {
			return category.ErrDuplicateSlug
		}
	}
	c.categories[cat.ID] = *cat
	return nil
}

func (c *MemoryCatalog) DeleteCategory(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.categories[id]; !ok {
		return category.ErrCategoryNotFound
	}
	for _, p := range c.products {
		if p.CategoryID == id {
			return category.ErrCategoryInUse
		}
	}
	delete(c.categories, id)
	return nil
}
