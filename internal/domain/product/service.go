package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/ec-cart/internal/apperr"
	"github.com/example/ec-cart/internal/domain/category"
	"github.com/example/ec-cart/internal/logger"
	"github.com/example/ec-cart/internal/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateInput struct {
	Name              string
	Description       string
	CategoryID        string
	UnitPrice         decimal.Decimal
	DiscountPercent   decimal.Decimal
	AvailableQuantity int
}

// UpdateInput carries a partial update; nil fields are left unchanged. An
// empty CategoryID takes the product out of its category.
type UpdateInput struct {
	Name              *string
	Description       *string
	CategoryID        *string
	UnitPrice         *decimal.Decimal
	DiscountPercent   *decimal.Decimal
	AvailableQuantity *int
}

// Service is the catalog administration path. Price changes and deletions
// are pushed to the carts synchronously and announced on the catalog topic.
type Service struct {
	repo      Repository
	carts     CartSync
	publisher Publisher
	log       *logger.Logger
}

// NewService wires the catalog. carts and publisher may be nil when cart
// synchronisation happens out of process.
func NewService(repo Repository, carts CartSync, publisher Publisher, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:      repo,
		carts:     carts,
		publisher: publisher,
		log:       log.Component("CatalogService"),
	}
}

func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(id, err)
	}
	return p, nil
}

// List returns one page of the catalog. Filtering on an unknown category is
// a not_found error rather than an empty page.
func (s *Service) List(ctx context.Context, q ListQuery) (*Page, error) {
	q, err := q.normalize()
	if err != nil {
		return nil, err
	}
	if q.CategoryID != "" {
		if err := s.checkCategory(ctx, q.CategoryID); err != nil {
			return nil, err
		}
	}
	return s.repo.ListProducts(ctx, q)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Product, error) {
	now := time.Now().UTC()
	p := &Product{
		ID:                uuid.New().String(),
		Name:              strings.TrimSpace(in.Name),
		Description:       in.Description,
		CategoryID:        in.CategoryID,
		UnitPrice:         in.UnitPrice,
		DiscountPercent:   in.DiscountPercent,
		AvailableQuantity: in.AvailableQuantity,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, p.CategoryID); err != nil {
		return nil, err
	}
	p.SpecialPrice = pricing.SpecialPrice(p.UnitPrice, p.DiscountPercent)

	if err := s.repo.SaveProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("save product: %w", err)
	}
	s.log.Info("product created", "product_id", p.ID, "special_price", p.SpecialPrice.StringFixed(pricing.Places))
	s.publish(ctx, newEvent(EventProductCreated, p))
	return p, nil
}

// Update applies in to the product. When the special price or discount moves,
// every cart holding the product is reconciled before Update returns.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(id, err)
	}
	previous := *p

	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.CategoryID != nil && *in.CategoryID != p.CategoryID {
		if err := s.checkCategory(ctx, *in.CategoryID); err != nil {
			return nil, err
		}
		p.CategoryID = *in.CategoryID
	}
	if in.UnitPrice != nil {
		p.UnitPrice = *in.UnitPrice
	}
	if in.DiscountPercent != nil {
		p.DiscountPercent = *in.DiscountPercent
	}
	if in.AvailableQuantity != nil {
		p.AvailableQuantity = *in.AvailableQuantity
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	p.SpecialPrice = pricing.SpecialPrice(p.UnitPrice, p.DiscountPercent)
	p.UpdatedAt = time.Now().UTC()

	if err := s.repo.SaveProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("save product: %w", err)
	}

	priceChanged := !p.SpecialPrice.Equal(previous.SpecialPrice) || !p.DiscountPercent.Equal(previous.DiscountPercent)
	if !priceChanged {
		s.publish(ctx, newEvent(EventProductUpdated, p))
		return p, nil
	}

	s.log.Info("product price changed",
		"product_id", p.ID,
		"old_special_price", previous.SpecialPrice.StringFixed(pricing.Places),
		"new_special_price", p.SpecialPrice.StringFixed(pricing.Places),
	)
	if s.carts != nil {
		// The event below lets catalog-sync re-drive any cart left behind.
		if err := s.carts.ReconcileOnCatalogChange(ctx, p.ID); err != nil {
			s.log.Error("cart reconciliation incomplete", "product_id", p.ID, "error", err)
		}
	}
	evt := newEvent(EventProductPriceChanged, p)
	evt.PreviousPrice = previous.SpecialPrice
	s.publish(ctx, evt)
	return p, nil
}

// Delete removes the product from every cart first; the catalog row is only
// deleted once no cart references it.
func (s *Service) Delete(ctx context.Context, id string) error {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return notFound(id, err)
	}

	if s.carts != nil {
		if err := s.carts.RemoveProductFromAllCarts(ctx, id); err != nil {
			// The per-cart causes carry their own kinds; the delete itself
			// failed for an internal reason.
			return apperr.New(apperr.KindInternal, "Product", "productId", id,
				fmt.Errorf("remove product from carts: %w", err))
		}
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	s.log.Info("product deleted", "product_id", id)
	s.publish(ctx, newEvent(EventProductDeleted, p))
	return nil
}

func (s *Service) publish(ctx context.Context, evt Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, evt.ProductID, evt); err != nil {
		s.log.Warn("publish catalog event failed", "type", evt.Type, "product_id", evt.ProductID, "error", err)
	}
}

// checkCategory accepts the empty id, meaning uncategorised.
func (s *Service) checkCategory(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	_, err := s.repo.GetCategory(ctx, id)
	return category.NotFound(id, err)
}

func validate(p *Product) error {
	if p.Name == "" {
		return apperr.Invalid("Product", "name", p.Name, ErrInvalidName)
	}
	if err := pricing.ValidatePrice(p.UnitPrice); err != nil {
		return apperr.Invalid("Product", "unitPrice", p.UnitPrice, err)
	}
	if err := pricing.ValidateDiscount(p.DiscountPercent); err != nil {
		return apperr.Invalid("Product", "discountPercent", p.DiscountPercent, err)
	}
	if p.AvailableQuantity < 0 {
		return apperr.Invalid("Product", "quantity", p.AvailableQuantity, ErrInvalidQuantity)
	}
	return nil
}

func notFound(id string, err error) error {
	if errors.Is(err, ErrProductNotFound) {
		return apperr.NotFound("Product", "productId", id, ErrProductNotFound)
	}
	return err
}
