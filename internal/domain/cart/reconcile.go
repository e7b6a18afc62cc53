package cart

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/example/ec-cart/internal/apperr"
	"github.com/example/ec-cart/internal/domain/product"
	"github.com/example/ec-cart/internal/pricing"
)

// ReconcileError reports the carts a catalog-driven sweep could not update.
// Carts not listed were committed.
type ReconcileError struct {
	ProductID string
	Updated   int
	Failed    map[string]error
}

func (e *ReconcileError) Error() string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return fmt.Sprintf("product %s: %d cart(s) not synchronised: %s", e.ProductID, len(e.Failed), strings.Join(ids, ", "))
}

func (e *ReconcileError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, err := range e.Failed {
		errs = append(errs, err)
	}
	return errs
}

// ReconcileOnCatalogChange re-prices productID in every cart that holds it.
// Each cart is its own transaction and is retried on its own; one cart
// failing does not roll back the others.
func (s *Service) ReconcileOnCatalogChange(ctx context.Context, productID string) error {
	p, err := s.lookupProduct(ctx, productID)
	if err != nil {
		return err
	}
	return s.sweep(ctx, productID, ReasonPriceReconciled, func(tx Tx, c *Cart) (bool, error) {
		return repriceLine(ctx, tx, c, p, s.now())
	})
}

// RemoveProductFromAllCarts takes productID out of every cart ahead of its
// deletion from the catalog.
func (s *Service) RemoveProductFromAllCarts(ctx context.Context, productID string) error {
	return s.sweep(ctx, productID, ReasonProductRemoved, func(tx Tx, c *Cart) (bool, error) {
		_, err := removeLine(ctx, tx, c, productID, s.now())
		if errors.Is(err, ErrItemNotInCart) {
			return false, nil
		}
		return err == nil, err
	})
}

// sweep applies fn to each cart indexed under productID. fn reports whether
// it changed the cart.
func (s *Service) sweep(ctx context.Context, productID, reason string, fn func(tx Tx, c *Cart) (bool, error)) error {
	cartIDs, err := s.store.CartIDsByProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("carts for product %s: %w", productID, err)
	}

	result := &ReconcileError{ProductID: productID, Failed: map[string]error{}}
	for _, cartID := range cartIDs {
		op := func() (*Cart, error) {
			var out *Cart
			err := s.store.WithTx(ctx, func(tx Tx) error {
				c, err := tx.FindByID(ctx, cartID)
				if errors.Is(err, ErrRecordNotFound) {
					return nil
				}
				if err != nil {
					return err
				}
				changed, err := fn(tx, c)
				if err != nil || !changed {
					return err
				}
				out, err = withItems(ctx, tx, c)
				return err
			})
			if err != nil && apperr.KindOf(err) != apperr.KindInternal {
				return nil, backoff.Permanent(err)
			}
			return out, err
		}

		c, err := backoff.Retry(ctx, op,
			backoff.WithBackOff(newSweepBackOff()),
			backoff.WithMaxTries(s.reconcileTries),
			backoff.WithNotify(func(err error, next time.Duration) {
				s.log.Warn("cart sync retry", "cart_id", cartID, "product_id", productID, "retry_in", next, "error", err)
			}),
		)
		if err != nil {
			s.log.Error("cart sync failed", "cart_id", cartID, "product_id", productID, "reason", reason, "error", err)
			result.Failed[cartID] = err
			continue
		}
		if c != nil {
			result.Updated++
			s.committed(ctx, c, reason, productID)
		}
	}

	s.log.Info("catalog change applied to carts",
		"product_id", productID,
		"reason", reason,
		"carts", len(cartIDs),
		"updated", result.Updated,
		"failed", len(result.Failed),
	)
	if len(result.Failed) > 0 {
		return result
	}
	return nil
}

// repriceLine swaps the line's captured price for the product's current
// special price and moves the total by the difference.
func repriceLine(ctx context.Context, tx Tx, c *Cart, p *product.Product, now time.Time) (bool, error) {
	it, err := tx.FindItem(ctx, c.ID, p.ID)
	if errors.Is(err, ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if it.CapturedUnitPrice.Equal(p.SpecialPrice) && it.CapturedDiscount.Equal(p.DiscountPercent) {
		return false, nil
	}

	before := it.LineTotal()
	it.CapturedUnitPrice = p.SpecialPrice
	it.CapturedDiscount = p.DiscountPercent
	it.ProductName = p.Name
	it.UpdatedAt = now
	if err := tx.SaveItem(ctx, it); err != nil {
		return false, err
	}
	c.TotalPrice = pricing.Round(c.TotalPrice.Sub(before).Add(it.LineTotal()))
	c.UpdatedAt = now
	if err := tx.SaveCart(ctx, c); err != nil {
		return false, err
	}
	return true, nil
}

// settleCaptured re-reads the products just captured into c and brings c
// up to date if the catalog changed between the engine's lookup and the
// commit. A catalog sweep running in that window cannot see c yet.
// Failures are logged and c is returned at its captured prices.
func (s *Service) settleCaptured(ctx context.Context, c *Cart, productIDs ...string) *Cart {
	for _, productID := range productIDs {
		it := c.Item(productID)
		if it == nil {
			continue
		}
		p, err := s.catalog.GetProduct(ctx, productID)
		switch {
		case errors.Is(err, product.ErrProductNotFound):
			p = nil
		case err != nil:
			s.log.Warn("captured price check failed", "cart_id", c.ID, "product_id", productID, "error", err)
			continue
		case it.CapturedUnitPrice.Equal(p.SpecialPrice) && it.CapturedDiscount.Equal(p.DiscountPercent):
			continue
		}

		reason := ReasonPriceReconciled
		if p == nil {
			reason = ReasonProductRemoved
		}
		var out *Cart
		err = s.store.WithTx(ctx, func(tx Tx) error {
			locked, err := tx.FindByID(ctx, c.ID)
			if errors.Is(err, ErrRecordNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			var changed bool
			if p == nil {
				_, err = removeLine(ctx, tx, locked, productID, s.now())
				if errors.Is(err, ErrItemNotInCart) {
					return nil
				}
				changed = err == nil
			} else {
				changed, err = repriceLine(ctx, tx, locked, p, s.now())
			}
			if err != nil || !changed {
				return err
			}
			out, err = withItems(ctx, tx, locked)
			return err
		})
		if err != nil {
			s.log.Warn("captured price settle failed", "cart_id", c.ID, "product_id", productID, "error", err)
			continue
		}
		if out != nil {
			s.log.Info("catalog changed during write, cart settled", "cart_id", c.ID, "product_id", productID, "reason", reason)
			s.committed(ctx, out, reason, productID)
			c = out
		}
	}
	return c
}

func newSweepBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = time.Second
	return b
}
