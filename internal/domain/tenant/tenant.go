package tenant

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNameRequired = errors.New("tenant: name is required")
	ErrNotFound     = errors.New("tenant: not found")
)

type TenantID string

type TenantState string

const (
	TenantActive    TenantState = "ACTIVE"
	TenantSuspended TenantState = "SUSPENDED"
)

// Tenant is an independent host or organization owning properties.
type Tenant struct {
	ID        TenantID
	Name      string
	State     TenantState
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Repository interface {
	ByID(ctx context.Context, id TenantID) (*Tenant, error)
	ListActive(ctx context.Context) ([]*Tenant, error)
	Save(ctx context.Context, t *Tenant) error
}

func NewTenant(id TenantID, name, currency string, now time.Time) (*Tenant, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrNameRequired
	}
	if currency == "" {
		currency = "USD"
	}
	now = now.UTC()
	return &Tenant{
		ID:        id,
		Name:      strings.TrimSpace(name),
		State:     TenantActive,
		Currency:  strings.ToUpper(currency),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (t *Tenant) Suspend(now time.Time) {
	t.State = TenantSuspended
	t.UpdatedAt = now.UTC()
}

func (t *Tenant) IsActive() bool {
	return t.State == TenantActive
}
