package uow

import (
	"context"

	domaincalendar "staymarket/internal/domain/calendar"
	domainguest "staymarket/internal/domain/guest"
	domainproperty "staymarket/internal/domain/property"
	domainquote "staymarket/internal/domain/quote"
	domainreservation "staymarket/internal/domain/reservation"
	domaintenant "staymarket/internal/domain/tenant"
)

// UnitOfWork coordinates repositories inside one transaction boundary. The
// calendar store participates so day locks commit or roll back together with
// the reservation they belong to.
type UnitOfWork interface {
	Tenants() domaintenant.Repository
	Properties() domainproperty.Repository
	Calendar() domaincalendar.Store
	Quotes() domainquote.Repository
	Reservations() domainreservation.Repository
	Guests() domainguest.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Factory starts unit of work instances.
type Factory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
