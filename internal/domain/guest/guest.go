package guest

import (
	"context"
	"errors"
	"strings"
	"time"

	"staymarket/internal/domain/shared/money"
	"staymarket/internal/domain/tenant"
)

var (
	ErrNotFound      = errors.New("guest: not found")
	ErrEmailRequired = errors.New("guest: email is required")
)

type GuestID string

// Guest is identified by (tenant, email). Aggregate stats are updated on
// each confirmed booking.
type Guest struct {
	ID         GuestID
	TenantID   tenant.TenantID
	Email      string
	FullName   string
	Phone      string
	TotalStays int
	TotalSpent money.Money
	LastStayAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Repository interface {
	ByID(ctx context.Context, id GuestID) (*Guest, error)
	ByEmail(ctx context.Context, tenantID tenant.TenantID, email string) (*Guest, error)
	Save(ctx context.Context, g *Guest) error
}

func NewGuest(id GuestID, tenantID tenant.TenantID, email, fullName, phone string, now time.Time) (*Guest, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	now = now.UTC()
	return &Guest{
		ID:        id,
		TenantID:  tenantID,
		Email:     email,
		FullName:  strings.TrimSpace(fullName),
		Phone:     strings.TrimSpace(phone),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// RecordStay folds a confirmed booking into the guest aggregates.
func (g *Guest) RecordStay(total money.Money, checkOut, now time.Time) {
	g.TotalStays++
	if g.TotalSpent.Currency == "" {
		g.TotalSpent = money.Money{Currency: total.Currency}
	}
	if g.TotalSpent.Currency == total.Currency {
		g.TotalSpent.Amount += total.Amount
	}
	if checkOut.After(g.LastStayAt) {
		g.LastStayAt = checkOut.UTC()
	}
	g.UpdatedAt = now.UTC()
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
