package quote

import (
	"context"
	"errors"
	"time"

	"staymarket/internal/domain/pricing"
	"staymarket/internal/domain/property"
	"staymarket/internal/domain/shared/daterange"
	"staymarket/internal/domain/shared/events"
	"staymarket/internal/domain/shared/stay"
	"staymarket/internal/domain/tenant"
)

var (
	ErrNotFound         = errors.New("quote: not found")
	ErrExpired          = errors.New("quote: expired")
	ErrAlreadyConverted = errors.New("quote: already converted")
)

type QuoteID string

type QuoteStatus string

const (
	QuoteOpen      QuoteStatus = "OPEN"
	QuoteConverted QuoteStatus = "CONVERTED"
	QuoteExpired   QuoteStatus = "EXPIRED"
)

// Quote is a time-boxed, immutable pricing proposal. A new request always
// produces a new quote, which keeps the snapshot stable against later rate
// changes.
type Quote struct {
	ID            QuoteID
	TenantID      tenant.TenantID
	PropertyID    property.PropertyID
	Range         daterange.DateRange
	Guests        stay.GuestCounts
	Price         pricing.Breakdown
	PromoCode     string
	Status        QuoteStatus
	ReservationID string
	ExpiresAt     time.Time
	CreatedAt     time.Time
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id QuoteID) (*Quote, error)
	Save(ctx context.Context, q *Quote) error
}

type CreateParams struct {
	ID         QuoteID
	TenantID   tenant.TenantID
	PropertyID property.PropertyID
	Range      daterange.DateRange
	Guests     stay.GuestCounts
	Price      pricing.Breakdown
	PromoCode  string
	TTL        time.Duration
	Now        time.Time
}

func NewQuote(params CreateParams) (*Quote, error) {
	if params.ID == "" {
		return nil, errors.New("quote: id is required")
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if params.TTL <= 0 {
		params.TTL = 24 * time.Hour
	}
	now := params.Now.UTC()
	q := &Quote{
		ID:         params.ID,
		TenantID:   params.TenantID,
		PropertyID: params.PropertyID,
		Range:      params.Range,
		Guests:     params.Guests,
		Price:      params.Price.Copy(),
		PromoCode:  params.PromoCode,
		Status:     QuoteOpen,
		ExpiresAt:  now.Add(params.TTL),
		CreatedAt:  now,
	}
	q.Record(QuoteGenerated{QuoteID: q.ID, PropertyID: q.PropertyID, Total: q.Price.GrandTotal, At: now})
	return q, nil
}

func (q *Quote) IsExpired(now time.Time) bool {
	return !now.UTC().Before(q.ExpiresAt)
}

// Convert transitions the quote to converted exactly once, recording the
// reservation it produced.
func (q *Quote) Convert(reservationID string, now time.Time) error {
	if q.Status == QuoteConverted {
		return ErrAlreadyConverted
	}
	if q.Status == QuoteExpired || q.IsExpired(now) {
		return ErrExpired
	}
	q.Status = QuoteConverted
	q.ReservationID = reservationID
	return nil
}
