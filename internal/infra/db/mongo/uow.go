package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"staymarket/internal/app/uow"
	domaincalendar "staymarket/internal/domain/calendar"
	domainguest "staymarket/internal/domain/guest"
	domainproperty "staymarket/internal/domain/property"
	domainquote "staymarket/internal/domain/quote"
	domainreservation "staymarket/internal/domain/reservation"
	domaintenant "staymarket/internal/domain/tenant"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	TenantsRepo      domaintenant.Repository
	PropertiesRepo   domainproperty.Repository
	CalendarStore    domaincalendar.Store
	QuotesRepo       domainquote.Repository
	ReservationsRepo domainreservation.Repository
	GuestsRepo       domainguest.Repository
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session/transaction. The calendar day locks run in
// the same transaction as the reservation insert, so either both commit or
// neither does.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		db:           f.DB,
		session:      session,
		tenants:      f.TenantsRepo,
		properties:   f.PropertiesRepo,
		calendar:     f.CalendarStore,
		quotes:       f.QuotesRepo,
		reservations: f.ReservationsRepo,
		guests:       f.GuestsRepo,
	}, nil
}

type Unit struct {
	db      *mongo.Database
	session mongo.Session

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

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}
