package calendar

import (
	"time"

	"staymarket/internal/domain/property"
	"staymarket/internal/domain/shared/daterange"
)

type DaysLocked struct {
	PropertyID    property.PropertyID
	Range         daterange.DateRange
	ReservationID string
	At            time.Time
}

func (e DaysLocked) EventName() string     { return "calendar.locked" }
func (e DaysLocked) AggregateID() string   { return string(e.PropertyID) }
func (e DaysLocked) OccurredAt() time.Time { return e.At }

type DaysReleased struct {
	PropertyID    property.PropertyID
	Range         daterange.DateRange
	ReservationID string
	At            time.Time
}

func (e DaysReleased) EventName() string     { return "calendar.released" }
func (e DaysReleased) AggregateID() string   { return string(e.PropertyID) }
func (e DaysReleased) OccurredAt() time.Time { return e.At }
