package quote

import (
	"time"

	"staymarket/internal/domain/property"
	"staymarket/internal/domain/shared/money"
)

type QuoteGenerated struct {
	QuoteID    QuoteID
	PropertyID property.PropertyID
	Total      money.Money
	At         time.Time
}

func (e QuoteGenerated) EventName() string     { return "quote.generated" }
func (e QuoteGenerated) AggregateID() string   { return string(e.QuoteID) }
func (e QuoteGenerated) OccurredAt() time.Time { return e.At }
