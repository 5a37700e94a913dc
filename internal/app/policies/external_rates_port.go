package policies

import (
	"context"

	"staymarket/internal/domain/pricing"
	"staymarket/internal/domain/shared/daterange"
)

// RateQuote is the authoritative answer of an external PMS for a stay.
// Available=false means the source explicitly denied the window; the
// internal calendar must not override that.
type RateQuote struct {
	Available bool
	Price     pricing.Breakdown
}

// ExternalRatesPort wraps the external PMS. Implementations return an error
// (fault.ExternalAdapterFailure) when the source did not respond usefully;
// callers treat that as "fall back to internal pricing", never as a denial.
type ExternalRatesPort interface {
	FetchRates(ctx context.Context, externalID string, dr daterange.DateRange, guests int) (RateQuote, error)
}
