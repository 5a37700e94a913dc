package reservation

import (
	"time"

	"staymarket/internal/domain/property"
	"staymarket/internal/domain/shared/daterange"
	"staymarket/internal/domain/shared/money"
)

type ReservationCreated struct {
	ReservationID    ReservationID
	ConfirmationCode string
	PropertyID       property.PropertyID
	GuestID          string
	Range            daterange.DateRange
	Total            money.Money
	At               time.Time
}

func (e ReservationCreated) EventName() string     { return "reservation.created" }
func (e ReservationCreated) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationCreated) OccurredAt() time.Time { return e.At }

type ReservationConfirmed struct {
	ReservationID ReservationID
	PaymentRef    string
	Total         money.Money
	At            time.Time
}

func (e ReservationConfirmed) EventName() string     { return "reservation.confirmed" }
func (e ReservationConfirmed) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationConfirmed) OccurredAt() time.Time { return e.At }

type ReservationCancelled struct {
	ReservationID ReservationID
	PropertyID    property.PropertyID
	Range         daterange.DateRange
	Refund        money.Money
	Reason        string
	At            time.Time
}

func (e ReservationCancelled) EventName() string     { return "reservation.cancelled" }
func (e ReservationCancelled) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationCancelled) OccurredAt() time.Time { return e.At }

type ReservationCompleted struct {
	ReservationID ReservationID
	At            time.Time
}

func (e ReservationCompleted) EventName() string     { return "reservation.completed" }
func (e ReservationCompleted) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationCompleted) OccurredAt() time.Time { return e.At }
