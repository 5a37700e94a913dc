package search

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"staymarket/internal/app/availability"
	"staymarket/internal/app/policies"
	"staymarket/internal/app/queries"
	"staymarket/internal/app/uow"
	domaincalendar "staymarket/internal/domain/calendar"
	domainpricing "staymarket/internal/domain/pricing"
	domainproperty "staymarket/internal/domain/property"
	domainrange "staymarket/internal/domain/shared/daterange"
	"staymarket/internal/domain/shared/fault"
	"staymarket/internal/domain/shared/stay"
)

const searchStaysKey = "search.stays"

const defaultConcurrency = 8

type SearchStaysQuery struct {
	CheckIn   time.Time
	CheckOut  time.Time
	Adults    int
	Children  int
	PromoCode string
	Limit     int
}

func (q SearchStaysQuery) Key() string { return searchStaysKey }

// StayResult is one bookable property. Pricing is nil when the rate source
// failed for this property; the stay is still listed, ranked last.
type StayResult struct {
	TenantID   string                   `json:"tenant_id"`
	PropertyID string                   `json:"property_id"`
	Title      string                   `json:"title"`
	MaxGuests  int                      `json:"max_guests"`
	Bedrooms   int                      `json:"bedrooms"`
	Pricing    *domainpricing.Breakdown `json:"pricing"`
}

type SearchStaysResult struct {
	CheckIn  time.Time    `json:"check_in"`
	CheckOut time.Time    `json:"check_out"`
	Stays    []StayResult `json:"stays"`
}

type SearchStaysHandler struct {
	UoWFactory    uow.Factory
	ExternalRates policies.ExternalRatesPort
	Concurrency   int
	Logger        *slog.Logger
}

// Handle fans out over every active property of every active tenant with
// bounded concurrency. One property failing to price never fails the batch:
// its pricing degrades to nil. A property whose calendar cannot be read, or
// that the external system reports as unavailable, is dropped entirely.
func (h *SearchStaysHandler) Handle(ctx context.Context, q SearchStaysQuery) (SearchStaysResult, error) {
	dr, err := domainrange.New(q.CheckIn, q.CheckOut)
	if err != nil {
		return SearchStaysResult{}, fault.Wrap(fault.InvalidDates, "invalid stay window", err)
	}
	guests := stay.GuestCounts{Adults: q.Adults, Children: q.Children}
	if !guests.Valid() {
		return SearchStaysResult{}, fault.New(fault.RuleViolation, "at least one adult is required")
	}
	now := time.Now().UTC()

	candidates, err := h.collectCandidates(ctx, dr, guests)
	if err != nil {
		return SearchStaysResult{}, err
	}

	results := make([]*StayResult, len(candidates))
	grp, grpCtx := errgroup.WithContext(ctx)
	limit := h.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}
	grp.SetLimit(limit)
	for i, prop := range candidates {
		i, prop := i, prop
		grp.Go(func() error {
			res, err := h.evaluate(grpCtx, prop, dr, guests, q.PromoCode, now)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return SearchStaysResult{}, err
	}

	out := SearchStaysResult{CheckIn: dr.CheckIn, CheckOut: dr.CheckOut}
	for _, r := range results {
		if r != nil {
			out.Stays = append(out.Stays, *r)
		}
	}
	rankStays(out.Stays)
	if q.Limit > 0 && len(out.Stays) > q.Limit {
		out.Stays = out.Stays[:q.Limit]
	}
	return out, nil
}

// collectCandidates loads active properties of active tenants and prefilters
// on the cheap rules before any calendar read.
func (h *SearchStaysHandler) collectCandidates(ctx context.Context, dr domainrange.DateRange, guests stay.GuestCounts) ([]*domainproperty.Property, error) {
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer unit.Rollback(ctx)

	tenants, err := unit.Tenants().ListActive(ctx)
	if err != nil {
		return nil, err
	}

	nights := dr.Nights()
	var out []*domainproperty.Property
	for _, t := range tenants {
		props, err := unit.Properties().ActiveByTenant(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range props {
			if guests.Total() > p.MaxGuests {
				continue
			}
			if nights < p.MinNights || nights > p.MaxNights {
				continue
			}
			out = append(out, p)
		}
	}
	return out, nil
}

// evaluate checks one property's calendar and prices the stay. A nil result
// with nil error means the property is not bookable for the window.
func (h *SearchStaysHandler) evaluate(ctx context.Context, prop *domainproperty.Property, dr domainrange.DateRange, guests stay.GuestCounts, promoCode string, now time.Time) (*StayResult, error) {
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer unit.Rollback(ctx)

	check, err := availability.Check(ctx, unit.Calendar(), prop, dr, guests, now)
	if err != nil {
		// Availability is unknown, so the property cannot be listed; one
		// broken calendar read must not fail the whole batch.
		if h.Logger != nil {
			h.Logger.Warn("calendar read failed during search, skipping property",
				"property_id", prop.ID, "error", err)
		}
		return nil, nil
	}
	if !check.Available {
		return nil, nil
	}

	result := &StayResult{
		TenantID:   string(prop.TenantID),
		PropertyID: string(prop.ID),
		Title:      prop.Title,
		MaxGuests:  prop.MaxGuests,
		Bedrooms:   prop.Bedrooms,
	}

	if prop.ExternallyManaged() && h.ExternalRates != nil {
		rq, err := h.ExternalRates.FetchRates(ctx, prop.ExternalID, dr, guests.Total())
		switch {
		case err != nil:
			if h.Logger != nil {
				h.Logger.Warn("external rates failed during search, listing without price",
					"property_id", prop.ID, "error", err)
			}
			return result, nil
		case !rq.Available:
			return nil, nil
		default:
			price := rq.Price
			result.Pricing = &price
			return result, nil
		}
	}

	price, err := domainpricing.Price(domainpricing.Input{
		Property:  prop,
		Range:     dr,
		Guests:    guests.Total(),
		Overrides: domaincalendar.OverridesByDate(check.Days),
		PromoCode: promoCode,
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("pricing failed during search, listing without price",
				"property_id", prop.ID, "error", err)
		}
		return result, nil
	}
	result.Pricing = &price
	return result, nil
}

// rankStays orders by ascending grand total; unpriced stays go last.
func rankStays(stays []StayResult) {
	sort.SliceStable(stays, func(i, j int) bool {
		pi, pj := stays[i].Pricing, stays[j].Pricing
		switch {
		case pi == nil && pj == nil:
			return false
		case pi == nil:
			return false
		case pj == nil:
			return true
		default:
			return pi.GrandTotal.Amount < pj.GrandTotal.Amount
		}
	})
}

var _ queries.Handler[SearchStaysQuery, SearchStaysResult] = (*SearchStaysHandler)(nil)
