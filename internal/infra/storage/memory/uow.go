package memory

import (
	"context"
	"errors"

	"staymarket/internal/app/uow"
	domaincalendar "staymarket/internal/domain/calendar"
	domainguest "staymarket/internal/domain/guest"
	domainproperty "staymarket/internal/domain/property"
	domainquote "staymarket/internal/domain/quote"
	domainreservation "staymarket/internal/domain/reservation"
	domaintenant "staymarket/internal/domain/tenant"
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	TenantsRepo      domaintenant.Repository
	PropertiesRepo   domainproperty.Repository
	CalendarStore    domaincalendar.Store
	QuotesRepo       domainquote.Repository
	ReservationsRepo domainreservation.Repository
	GuestsRepo       domainguest.Repository
}

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Begin starts a lightweight transaction boundary. No isolation is provided
// but the abstraction matches the application ports; the calendar store's
// own locking keeps day locks atomic.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.TenantsRepo == nil || f.PropertiesRepo == nil || f.CalendarStore == nil ||
		f.QuotesRepo == nil || f.ReservationsRepo == nil || f.GuestsRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		tenants:      f.TenantsRepo,
		properties:   f.PropertiesRepo,
		calendar:     f.CalendarStore,
		quotes:       f.QuotesRepo,
		reservations: f.ReservationsRepo,
		guests:       f.GuestsRepo,
	}, nil
}

// Unit is a lightweight uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	tenants      domaintenant.Repository
	properties   domainproperty.Repository
	calendar     domaincalendar.Store
	quotes       domainquote.Repository
	reservations domainreservation.Repository
	guests       domainguest.Repository
}

func (u *Unit) Tenants() domaintenant.Repository { return u.tenants }

func (u *Unit) Properties() domainproperty.Repository { return u.properties }

func (u *Unit) Calendar() domaincalendar.Store { return u.calendar }

func (u *Unit) Quotes() domainquote.Repository { return u.quotes }

func (u *Unit) Reservations() domainreservation.Repository { return u.reservations }

func (u *Unit) Guests() domainguest.Repository { return u.guests }

func (u *Unit) Commit(ctx context.Context) error { return nil }

func (u *Unit) Rollback(ctx context.Context) error { return nil }

var _ uow.Factory = Factory{}
