package cart

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const EventCartUpdated = "CartUpdated"

const (
	ReasonItemAdded        = "item_added"
	ReasonQuantityAdjusted = "quantity_adjusted"
	ReasonItemRemoved      = "item_removed"
	ReasonReplaced         = "contents_replaced"
	ReasonCleared          = "cleared"
	ReasonPriceReconciled  = "price_reconciled"
	ReasonProductRemoved   = "product_removed"
)

// Event is published to the cart topic after each committed mutation, keyed
// by cart id.
type Event struct {
	Type       string          `json:"type"`
	Reason     string          `json:"reason"`
	CartID     string          `json:"cart_id"`
	OwnerID    string          `json:"owner_id"`
	ProductID  string          `json:"product_id,omitempty"`
	TotalPrice decimal.Decimal `json:"total_price"`
	ItemCount  int             `json:"item_count"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}
