package property

import (
	"context"
	"errors"
	"strings"
	"time"

	"staymarket/internal/domain/shared/events"
	"staymarket/internal/domain/shared/money"
	"staymarket/internal/domain/tenant"
)

var (
	ErrNotFound        = errors.New("property: not found")
	ErrTitleRequired   = errors.New("property: title is required")
	ErrGuestsLimit     = errors.New("property: max guests must be at least 1")
	ErrNightsRange     = errors.New("property: min nights must be <= max nights")
	ErrBasePrice       = errors.New("property: base price must be positive")
	ErrCleaningFee     = errors.New("property: cleaning fee must be non-negative")
	ErrInvalidState    = errors.New("property: invalid state transition")
	ErrTenantRequired  = errors.New("property: tenant is required")
	ErrCurrencyMissing = errors.New("property: currency is required")
)

type PropertyID string

type PropertyState string

const (
	PropertyDraft    PropertyState = "DRAFT"
	PropertyActive   PropertyState = "ACTIVE"
	PropertyInactive PropertyState = "INACTIVE"
)

// Property is a rentable unit owned by a tenant. Identity is immutable;
// pricing and rule fields may change over the lifecycle.
type Property struct {
	ID          PropertyID
	TenantID    tenant.TenantID
	Title       string
	MaxGuests   int
	Bedrooms    int
	Bathrooms   int
	BasePrice   money.Money
	CleaningFee money.Money
	MinNights   int
	MaxNights   int
	// ExternalID links the unit to an external PMS. When set, that system is
	// the authority for availability and day rates.
	ExternalID string
	State      PropertyState
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id PropertyID) (*Property, error)
	ActiveByTenant(ctx context.Context, id tenant.TenantID) ([]*Property, error)
	Save(ctx context.Context, p *Property) error
}

type CreateParams struct {
	ID          PropertyID
	TenantID    tenant.TenantID
	Title       string
	MaxGuests   int
	Bedrooms    int
	Bathrooms   int
	BasePrice   money.Money
	CleaningFee money.Money
	MinNights   int
	MaxNights   int
	ExternalID  string
	Now         time.Time
}

func NewProperty(params CreateParams) (*Property, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("property: id is required")
	}
	if strings.TrimSpace(string(params.TenantID)) == "" {
		return nil, ErrTenantRequired
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if params.MaxGuests < 1 {
		return nil, ErrGuestsLimit
	}
	if params.MinNights < 1 {
		params.MinNights = 1
	}
	if params.MinNights > params.MaxNights {
		return nil, ErrNightsRange
	}
	if params.BasePrice.Amount <= 0 {
		return nil, ErrBasePrice
	}
	if params.BasePrice.Currency == "" {
		return nil, ErrCurrencyMissing
	}
	if params.CleaningFee.Amount < 0 {
		return nil, ErrCleaningFee
	}
	now := params.Now.UTC()
	p := &Property{
		ID:          params.ID,
		TenantID:    params.TenantID,
		Title:       strings.TrimSpace(params.Title),
		MaxGuests:   params.MaxGuests,
		Bedrooms:    params.Bedrooms,
		Bathrooms:   params.Bathrooms,
		BasePrice:   params.BasePrice,
		CleaningFee: money.Money{Amount: params.CleaningFee.Amount, Currency: params.BasePrice.Currency},
		MinNights:   params.MinNights,
		MaxNights:   params.MaxNights,
		ExternalID:  strings.TrimSpace(params.ExternalID),
		State:       PropertyDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	p.Record(PropertyCreated{PropertyID: p.ID, TenantID: p.TenantID, At: now})
	return p, nil
}

func (p *Property) Activate(now time.Time) error {
	if p.State == PropertyActive {
		return nil
	}
	if p.MaxGuests < 1 {
		return ErrGuestsLimit
	}
	if p.MinNights > p.MaxNights {
		return ErrNightsRange
	}
	p.State = PropertyActive
	p.UpdatedAt = now.UTC()
	p.Record(PropertyActivated{PropertyID: p.ID, At: p.UpdatedAt})
	return nil
}

func (p *Property) Deactivate(now time.Time) error {
	if p.State != PropertyActive {
		return ErrInvalidState
	}
	p.State = PropertyInactive
	p.UpdatedAt = now.UTC()
	p.Record(PropertyDeactivated{PropertyID: p.ID, At: p.UpdatedAt})
	return nil
}

func (p *Property) IsActive() bool {
	return p.State == PropertyActive
}

// ExternallyManaged reports whether an external PMS owns this unit's
// availability and pricing.
func (p *Property) ExternallyManaged() bool {
	return p.ExternalID != ""
}
