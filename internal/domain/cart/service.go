package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/ec-cart/internal/domain/product"
	"github.com/example/ec-cart/internal/logger"
	"github.com/example/ec-cart/internal/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const defaultReconcileTries = 5

// Service is the cart engine. It prices every line from the catalog, never
// from the caller, and keeps each cart's cached total equal to the sum of
// its lines.
type Service struct {
	store          Store
	catalog        product.Catalog
	cache          Cache
	publisher      Publisher
	log            *logger.Logger
	sfg            singleflight.Group
	reconcileTries uint
	now            func() time.Time
}

type Option func(*Service)

func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithReconcileTries bounds the attempts made per cart during reconciliation.
func WithReconcileTries(n uint) Option {
	return func(s *Service) {
		if n > 0 {
			s.reconcileTries = n
		}
	}
}

func NewService(store Store, catalog product.Catalog, opts ...Option) *Service {
	s := &Service{
		store:          store,
		catalog:        catalog,
		cache:          noopCache{},
		log:            logger.Nop(),
		reconcileTries: defaultReconcileTries,
		now:            func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Component("CartEngine")
	return s
}

// AddItem puts quantity units of productID into the owner's cart, creating
// the cart on first use. A product already in the cart is rejected rather
// than merged.
func (s *Service) AddItem(ctx context.Context, ownerID, productID string, quantity int) (*Cart, error) {
	if ownerID == "" {
		return nil, unauthenticated()
	}
	if quantity < 1 {
		return nil, invalidQuantity(quantity)
	}
	p, err := s.lookupProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	var out *Cart
	err = s.store.WithTx(ctx, func(tx Tx) error {
		c, err := s.resolveCart(ctx, tx, ownerID)
		if err != nil {
			return err
		}
		if _, err := tx.FindItem(ctx, c.ID, productID); err == nil {
			return duplicateItem(productID)
		} else if !errors.Is(err, ErrRecordNotFound) {
			return err
		}
		if p.AvailableQuantity == 0 {
			return productUnavailable(p.Name)
		}
		if p.AvailableQuantity < quantity {
			return insufficientStock(p.AvailableQuantity)
		}

		now := s.now()
		it := &Item{
			ID:                uuid.New().String(),
			CartID:            c.ID,
			ProductID:         p.ID,
			ProductName:       p.Name,
			Quantity:          quantity,
			CapturedUnitPrice: p.SpecialPrice,
			CapturedDiscount:  p.DiscountPercent,
			AddedAt:           now,
			UpdatedAt:         now,
		}
		if err := tx.SaveItem(ctx, it); err != nil {
			return err
		}
		c.TotalPrice = pricing.Round(c.TotalPrice.Add(it.LineTotal()))
		c.UpdatedAt = now
		if err := tx.SaveCart(ctx, c); err != nil {
			return err
		}
		out, err = withItems(ctx, tx, c)
		return err
	})
	if errors.Is(err, ErrDuplicateRecord) {
		err = duplicateItem(productID)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("item added", "owner_id", ownerID, "cart_id", out.ID, "product_id", productID, "quantity", quantity)
	s.committed(ctx, out, ReasonItemAdded, productID)
	return s.settleCaptured(ctx, out, productID), nil
}

// AdjustQuantity moves the quantity of productID by delta. The line is
// re-priced at the catalog's current special price; reaching zero removes it.
func (s *Service) AdjustQuantity(ctx context.Context, ownerID, productID string, delta int) (*Cart, error) {
	if ownerID == "" {
		return nil, unauthenticated()
	}
	p, err := s.lookupProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	var out *Cart
	err = s.store.WithTx(ctx, func(tx Tx) error {
		c, err := tx.FindByOwner(ctx, ownerID)
		if errors.Is(err, ErrRecordNotFound) {
			return cartNotFound("ownerId", ownerID)
		}
		if err != nil {
			return err
		}
		if p.AvailableQuantity == 0 {
			return productUnavailable(p.Name)
		}
		// Compares catalog stock with the requested delta, not the line quantity.
		if p.AvailableQuantity < delta {
			return insufficientStock(p.AvailableQuantity)
		}
		it, err := tx.FindItem(ctx, c.ID, productID)
		if errors.Is(err, ErrRecordNotFound) {
			return itemNotInCart(productID)
		}
		if err != nil {
			return err
		}

		newQuantity := it.Quantity + delta
		if newQuantity < 0 {
			return negativeQuantity(newQuantity)
		}

		now := s.now()
		before := it.LineTotal()
		if newQuantity == 0 {
			if err := tx.DeleteItem(ctx, it.ID); err != nil {
				return err
			}
			c.TotalPrice = pricing.Round(c.TotalPrice.Sub(before))
		} else {
			it.CapturedUnitPrice = p.SpecialPrice
			it.CapturedDiscount = p.DiscountPercent
			it.ProductName = p.Name
			it.Quantity = newQuantity
			it.UpdatedAt = now
			if err := tx.SaveItem(ctx, it); err != nil {
				return err
			}
			c.TotalPrice = pricing.Round(c.TotalPrice.Sub(before).Add(it.LineTotal()))
		}
		c.UpdatedAt = now
		if err := tx.SaveCart(ctx, c); err != nil {
			return err
		}
		out, err = withItems(ctx, tx, c)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("quantity adjusted", "owner_id", ownerID, "cart_id", out.ID, "product_id", productID, "delta", delta)
	s.committed(ctx, out, ReasonQuantityAdjusted, productID)
	return s.settleCaptured(ctx, out, productID), nil
}

// RemoveItem deletes productID from the cart identified by cartID and
// returns a confirmation message. Removing an absent product fails.
func (s *Service) RemoveItem(ctx context.Context, cartID, productID string) (string, error) {
	var (
		out     *Cart
		removed *Item
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		c, err := tx.FindByID(ctx, cartID)
		if errors.Is(err, ErrRecordNotFound) {
			return cartNotFound("cartId", cartID)
		}
		if err != nil {
			return err
		}
		if removed, err = removeLine(ctx, tx, c, productID, s.now()); err != nil {
			return err
		}
		out, err = withItems(ctx, tx, c)
		return err
	})
	if err != nil {
		return "", err
	}

	s.log.Info("item removed", "cart_id", cartID, "product_id", productID)
	s.committed(ctx, out, ReasonItemRemoved, productID)
	return fmt.Sprintf("Product %s removed from the cart", removed.ProductName), nil
}

// RemoveOwnerItem is the shopper-facing removal, resolving the cart from its
// owner.
func (s *Service) RemoveOwnerItem(ctx context.Context, ownerID, productID string) (*Cart, error) {
	if ownerID == "" {
		return nil, unauthenticated()
	}
	var out *Cart
	err := s.store.WithTx(ctx, func(tx Tx) error {
		c, err := tx.FindByOwner(ctx, ownerID)
		if errors.Is(err, ErrRecordNotFound) {
			return cartNotFound("ownerId", ownerID)
		}
		if err != nil {
			return err
		}
		if _, err := removeLine(ctx, tx, c, productID, s.now()); err != nil {
			return err
		}
		out, err = withItems(ctx, tx, c)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("item removed", "owner_id", ownerID, "cart_id", out.ID, "product_id", productID)
	s.committed(ctx, out, ReasonItemRemoved, productID)
	return out, nil
}

// ReplaceCartContents swaps the owner's items for lines in one transaction.
// Every product is resolved before anything is written, so an unknown
// product leaves the existing cart untouched.
func (s *Service) ReplaceCartContents(ctx context.Context, ownerID string, lines []LineRequest) (*Cart, error) {
	if ownerID == "" {
		return nil, unauthenticated()
	}
	seen := make(map[string]struct{}, len(lines))
	products := make([]*product.Product, 0, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 {
			return nil, invalidQuantity(l.Quantity)
		}
		if _, dup := seen[l.ProductID]; dup {
			return nil, duplicateItem(l.ProductID)
		}
		seen[l.ProductID] = struct{}{}
		p, err := s.lookupProduct(ctx, l.ProductID)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	var out *Cart
	err := s.store.WithTx(ctx, func(tx Tx) error {
		c, err := s.resolveCart(ctx, tx, ownerID)
		if err != nil {
			return err
		}
		if err := tx.DeleteAllItems(ctx, c.ID); err != nil {
			return err
		}

		now := s.now()
		priced := make([]pricing.Line, 0, len(lines))
		for i, l := range lines {
			p := products[i]
			it := &Item{
				ID:                uuid.New().String(),
				CartID:            c.ID,
				ProductID:         p.ID,
				ProductName:       p.Name,
				Quantity:          l.Quantity,
				CapturedUnitPrice: p.SpecialPrice,
				CapturedDiscount:  p.DiscountPercent,
				AddedAt:           now,
				UpdatedAt:         now,
			}
			if err := tx.SaveItem(ctx, it); err != nil {
				return err
			}
			priced = append(priced, pricing.Line{UnitPrice: it.CapturedUnitPrice, Quantity: it.Quantity})
		}
		c.TotalPrice = pricing.Total(priced)
		c.UpdatedAt = now
		if err := tx.SaveCart(ctx, c); err != nil {
			return err
		}
		out, err = withItems(ctx, tx, c)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("cart contents replaced", "owner_id", ownerID, "cart_id", out.ID, "lines", len(lines))
	s.committed(ctx, out, ReasonReplaced, "")
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	return s.settleCaptured(ctx, out, ids...), nil
}

// ClearCart empties the owner's existing cart.
func (s *Service) ClearCart(ctx context.Context, ownerID string) (*Cart, error) {
	if ownerID == "" {
		return nil, unauthenticated()
	}
	var out *Cart
	err := s.store.WithTx(ctx, func(tx Tx) error {
		c, err := tx.FindByOwner(ctx, ownerID)
		if errors.Is(err, ErrRecordNotFound) {
			return cartNotFound("ownerId", ownerID)
		}
		if err != nil {
			return err
		}
		if err := tx.DeleteAllItems(ctx, c.ID); err != nil {
			return err
		}
		c.TotalPrice = decimal.Zero
		c.UpdatedAt = s.now()
		if err := tx.SaveCart(ctx, c); err != nil {
			return err
		}
		out, err = withItems(ctx, tx, c)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("cart cleared", "owner_id", ownerID, "cart_id", out.ID)
	s.committed(ctx, out, ReasonCleared, "")
	return out, nil
}

// GetCart returns the owner's cart, served from the cache when possible.
func (s *Service) GetCart(ctx context.Context, ownerID string) (*Cart, error) {
	if ownerID == "" {
		return nil, unauthenticated()
	}
	v, err, _ := s.sfg.Do(ownerID, func() (interface{}, error) {
		c, err := s.cache.Get(ctx, ownerID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.log.Warn("cache get failed", "owner_id", ownerID, "error", err)
		}

		// The generation must be read before the store so that a write
		// committing during the load makes the fill below a no-op.
		gen, genErr := s.cache.Generation(ctx, ownerID)
		if genErr != nil {
			s.log.Warn("cache generation failed", "owner_id", ownerID, "error", genErr)
		}

		c, err = s.store.FindByOwner(ctx, ownerID)
		if errors.Is(err, ErrRecordNotFound) {
			return nil, cartNotFound("ownerId", ownerID)
		}
		if err != nil {
			return nil, err
		}
		if genErr != nil {
			return c, nil
		}
		switch err := s.cache.Set(ctx, ownerID, c, gen); {
		case errors.Is(err, ErrStaleFill):
			s.log.Debug("cache fill skipped, cart changed during load", "owner_id", ownerID)
		case err != nil:
			s.log.Warn("cache set failed", "owner_id", ownerID, "error", err)
		}
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Cart).Clone(), nil
}

func (s *Service) GetCartByID(ctx context.Context, cartID string) (*Cart, error) {
	c, err := s.store.FindByID(ctx, cartID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, cartNotFound("cartId", cartID)
	}
	return c, err
}

// ListCarts returns every cart, failing with ErrNoCartsExist when there are
// none.
func (s *Service) ListCarts(ctx context.Context) ([]*Cart, error) {
	carts, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(carts) == 0 {
		return nil, noCartsExist()
	}
	return carts, nil
}

func (s *Service) lookupProduct(ctx context.Context, productID string) (*product.Product, error) {
	p, err := s.catalog.GetProduct(ctx, productID)
	if errors.Is(err, product.ErrProductNotFound) {
		return nil, productNotFound(productID)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog lookup %s: %w", productID, err)
	}
	return p, nil
}

// resolveCart returns the owner's cart, creating an empty one if needed.
func (s *Service) resolveCart(ctx context.Context, tx Tx, ownerID string) (*Cart, error) {
	c, err := tx.FindByOwner(ctx, ownerID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrRecordNotFound) {
		return nil, err
	}
	now := s.now()
	c = &Cart{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.SaveCart(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// removeLine deletes productID from c and takes its contribution off the
// total. c must already be locked by tx.
func removeLine(ctx context.Context, tx Tx, c *Cart, productID string, now time.Time) (*Item, error) {
	it, err := tx.FindItem(ctx, c.ID, productID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, itemNotInCart(productID)
	}
	if err != nil {
		return nil, err
	}
	if err := tx.DeleteItem(ctx, it.ID); err != nil {
		return nil, err
	}
	c.TotalPrice = pricing.Round(c.TotalPrice.Sub(it.LineTotal()))
	c.UpdatedAt = now
	if err := tx.SaveCart(ctx, c); err != nil {
		return nil, err
	}
	return it, nil
}

func withItems(ctx context.Context, tx Tx, c *Cart) (*Cart, error) {
	items, err := tx.Items(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	out := *c
	out.Items = items
	return &out, nil
}

// committed runs the post-commit side effects: the owner's cached view is
// dropped and a CartUpdated event is published. Failures are only logged.
func (s *Service) committed(ctx context.Context, c *Cart, reason, productID string) {
	cacheCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(cacheCtx, c.OwnerID); err != nil {
		s.log.Warn("cache invalidate failed", "owner_id", c.OwnerID, "error", err)
	}
	// Readers arriving after the commit must not join a load that began
	// before it.
	s.sfg.Forget(c.OwnerID)

	if s.publisher == nil {
		return
	}
	evt := Event{
		Type:       EventCartUpdated,
		Reason:     reason,
		CartID:     c.ID,
		OwnerID:    c.OwnerID,
		ProductID:  productID,
		TotalPrice: c.TotalPrice,
		ItemCount:  len(c.Items),
		OccurredAt: s.now(),
	}
	if err := s.publisher.Publish(ctx, c.ID, evt); err != nil {
		s.log.Warn("publish cart event failed", "cart_id", c.ID, "reason", reason, "error", err)
	}
}
