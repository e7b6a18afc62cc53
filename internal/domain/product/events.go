package product

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventProductCreated      = "ProductCreated"
	EventProductPriceChanged = "ProductPriceChanged"
	EventProductUpdated      = "ProductUpdated"
	EventProductDeleted      = "ProductDeleted"
)

// Event is published to the catalog topic keyed by product id.
type Event struct {
	Type              string          `json:"type"`
	ProductID         string          `json:"product_id"`
	Name              string          `json:"name,omitempty"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	DiscountPercent   decimal.Decimal `json:"discount_percent"`
	SpecialPrice      decimal.Decimal `json:"special_price"`
	PreviousPrice     decimal.Decimal `json:"previous_special_price"`
	AvailableQuantity int             `json:"available_quantity"`
	OccurredAt        time.Time       `json:"occurred_at"`
}

func newEvent(eventType string, p *Product) Event {
	return Event{
		Type:              eventType,
		ProductID:         p.ID,
		Name:              p.Name,
		UnitPrice:         p.UnitPrice,
		DiscountPercent:   p.DiscountPercent,
		SpecialPrice:      p.SpecialPrice,
		PreviousPrice:     p.SpecialPrice,
		AvailableQuantity: p.AvailableQuantity,
		OccurredAt:        time.Now().UTC(),
	}
}
