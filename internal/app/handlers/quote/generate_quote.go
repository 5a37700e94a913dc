package quote

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"staymarket/internal/app/availability"
	"staymarket/internal/app/commands"
	"staymarket/internal/app/outbox"
	"staymarket/internal/app/policies"
	"staymarket/internal/app/uow"
	domaincalendar "staymarket/internal/domain/calendar"
	domainpricing "staymarket/internal/domain/pricing"
	domainproperty "staymarket/internal/domain/property"
	domainquote "staymarket/internal/domain/quote"
	domainrange "staymarket/internal/domain/shared/daterange"
	"staymarket/internal/domain/shared/fault"
	"staymarket/internal/domain/shared/stay"
)

const generateQuoteKey = "quote.generate"

type GenerateQuoteCommand struct {
	CommandID  string
	PropertyID string
	CheckIn    time.Time
	CheckOut   time.Time
	Adults     int
	Children   int
	PromoCode  string
}

func (c GenerateQuoteCommand) Key() string { return generateQuoteKey }

type GenerateQuoteResult struct {
	QuoteID   string                  `json:"quote_id"`
	Price     domainpricing.Breakdown `json:"price"`
	ExpiresAt time.Time               `json:"expires_at"`
}

type GenerateQuoteHandler struct {
	UoWFactory    uow.Factory
	ExternalRates policies.ExternalRatesPort
	Outbox        outbox.Outbox
	Encoder       outbox.EventEncoder
	QuoteTTL      time.Duration
	Logger        *slog.Logger
}

var ErrUnitOfWorkRequired = errors.New("quote: unit of work required")

// Handle runs the availability checker and prices the stay, external PMS
// first for linked properties, then persists a fresh 24h quote. A new
// request always produces a new quote so the snapshot stays stable against
// later rate changes.
func (h *GenerateQuoteHandler) Handle(ctx context.Context, cmd GenerateQuoteCommand) (*GenerateQuoteResult, error) {
	unit, ok := uow.FromContext(ctx)
	managed := false
	committed := false
	if !ok {
		if h.UoWFactory == nil {
			return nil, ErrUnitOfWorkRequired
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return nil, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		managed = true
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	dr, err := domainrange.New(cmd.CheckIn, cmd.CheckOut)
	if err != nil {
		return nil, fault.Wrap(fault.InvalidDates, "invalid stay window", err)
	}
	guests := stay.GuestCounts{Adults: cmd.Adults, Children: cmd.Children}
	if !guests.Valid() {
		return nil, fault.New(fault.RuleViolation, "at least one adult is required")
	}
	now := time.Now().UTC()

	prop, err := unit.Properties().ByID(ctx, domainproperty.PropertyID(cmd.PropertyID))
	if err != nil {
		if errors.Is(err, domainproperty.ErrNotFound) {
			return nil, fault.New(fault.NotFound, "property not found")
		}
		return nil, err
	}

	check, err := availability.Check(ctx, unit.Calendar(), prop, dr, guests, now)
	if err != nil {
		return nil, err
	}
	if !check.Available {
		return nil, check.Fault
	}

	price, err := h.priceStay(ctx, prop, dr, guests, check.Days, cmd.PromoCode)
	if err != nil {
		return nil, err
	}

	q, err := domainquote.NewQuote(domainquote.CreateParams{
		ID:         domainquote.QuoteID(cmd.CommandID),
		TenantID:   prop.TenantID,
		PropertyID: prop.ID,
		Range:      dr,
		Guests:     guests,
		Price:      price,
		PromoCode:  cmd.PromoCode,
		TTL:        h.QuoteTTL,
		Now:        now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Quotes().Save(ctx, q); err != nil {
		return nil, err
	}

	pending := q.PendingEvents()
	q.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, pending); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}
	return &GenerateQuoteResult{QuoteID: string(q.ID), Price: q.Price, ExpiresAt: q.ExpiresAt}, nil
}

// priceStay prefers the external PMS for linked properties. An explicit
// denial excludes the stay; an adapter failure falls back to the internal
// calculator and never surfaces to the caller.
func (h *GenerateQuoteHandler) priceStay(ctx context.Context, prop *domainproperty.Property, dr domainrange.DateRange, guests stay.GuestCounts, days []domaincalendar.Day, promoCode string) (domainpricing.Breakdown, error) {
	if prop.ExternallyManaged() && h.ExternalRates != nil {
		rq, err := h.ExternalRates.FetchRates(ctx, prop.ExternalID, dr, guests.Total())
		switch {
		case err != nil:
			if h.Logger != nil {
				h.Logger.Warn("external rates unavailable, using internal pricing", "property_id", prop.ID, "error", err)
			}
		case !rq.Available:
			return domainpricing.Breakdown{}, fault.New(fault.ExternalUnavailable, "property is unavailable in the external system")
		default:
			return rq.Price, nil
		}
	}
	return domainpricing.Price(domainpricing.Input{
		Property:  prop,
		Range:     dr,
		Guests:    guests.Total(),
		Overrides: domaincalendar.OverridesByDate(days),
		PromoCode: promoCode,
	})
}

var _ commands.Handler[GenerateQuoteCommand, *GenerateQuoteResult] = (*GenerateQuoteHandler)(nil)
