// Package catalogsync applies catalog change events to carts when the
// catalog is administered by another process.
package catalogsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/ec-cart/internal/domain/product"
	"github.com/example/ec-cart/internal/infrastructure/kafka"
	"github.com/example/ec-cart/internal/logger"
)

type Syncer struct {
	carts product.CartSync
	log   *logger.Logger
}

func NewSyncer(carts product.CartSync, log *logger.Logger) *Syncer {
	if log == nil {
		log = logger.Nop()
	}
	return &Syncer{carts: carts, log: log.Component("CatalogSync")}
}

// HandleEvent is a kafka.MessageHandler. Both cart operations are
// idempotent, so a redelivered event is harmless.
func (s *Syncer) HandleEvent(ctx context.Context, key, value []byte) error {
	var event product.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("%w: malformed catalog event: %v", kafka.ErrSkip, err)
	}
	if event.ProductID == "" {
		event.ProductID = string(key)
	}
	if event.ProductID == "" {
		return fmt.Errorf("%w: catalog event %q without product id", kafka.ErrSkip, event.Type)
	}

	s.log.Debug("received event", "type", event.Type, "product_id", event.ProductID)

	switch event.Type {
	case product.EventProductPriceChanged:
		err := s.carts.ReconcileOnCatalogChange(ctx, event.ProductID)
		if errors.Is(err, product.ErrProductNotFound) {
			// Deleted since; the ProductDeleted event will clear the carts.
			s.log.Info("price change for missing product ignored", "product_id", event.ProductID)
			return nil
		}
		return err

	case product.EventProductDeleted:
		return s.carts.RemoveProductFromAllCarts(ctx, event.ProductID)

	case product.EventProductCreated, product.EventProductUpdated:
		return nil
	}

	s.log.Warn("unknown catalog event", "type", event.Type, "product_id", event.ProductID)
	return nil
}
