package calendar

import (
	"context"
	"errors"
	"time"

	"staymarket/internal/domain/property"
	"staymarket/internal/domain/shared/daterange"
)

var (
	// ErrDaysConflict is returned by LockDays when any requested day is
	// already booked or blocked. The whole lock attempt fails and no day
	// is modified.
	ErrDaysConflict = errors.New("calendar: one or more days are not available")
)

type DayStatus string

const (
	DayAvailable DayStatus = "AVAILABLE"
	DayBooked    DayStatus = "BOOKED"
	DayBlocked   DayStatus = "BLOCKED"
)

// Day is the per-property, per-date availability record. Days are created
// lazily: an absent row means the date is available at the base rate.
type Day struct {
	PropertyID property.PropertyID
	Date       time.Time
	Status     DayStatus
	// PriceOverride replaces the nightly rate for this date when positive.
	PriceOverride int64
	// MinNightsOverride replaces the property rule for stays starting on
	// this date when positive.
	MinNightsOverride int
	// ReservationID references the owning reservation while Status is
	// DayBooked. Cleared on release; the row itself is never deleted.
	ReservationID string
	UpdatedAt     time.Time
}

// Store is the durable day-level ledger. LockDays must be atomic across the
// whole date list: either every day transitions to booked referencing the
// reservation, or none do. Concurrent lock attempts on overlapping dates
// serialize so that at most one caller wins per date.
type Store interface {
	Days(ctx context.Context, id property.PropertyID, dr daterange.DateRange) ([]Day, error)
	LockDays(ctx context.Context, id property.PropertyID, dates []time.Time, reservationID string) error
	ReleaseDays(ctx context.Context, id property.PropertyID, dates []time.Time) error
	SetOverride(ctx context.Context, id property.PropertyID, date time.Time, priceOverride int64, minNightsOverride int) error
}

// OpenDates reports whether every night in the range is free given the
// loaded rows. Absent rows count as available.
func OpenDates(days []Day, dr daterange.DateRange) bool {
	for _, d := range days {
		if d.Status == DayAvailable {
			continue
		}
		if dr.ContainsDate(d.Date) {
			return false
		}
	}
	return true
}

// OverridesByDate indexes loaded rows by their midnight-UTC date for the
// pricing calculator.
func OverridesByDate(days []Day) map[time.Time]Day {
	if len(days) == 0 {
		return nil
	}
	out := make(map[time.Time]Day, len(days))
	for _, d := range days {
		out[daterange.Day(d.Date)] = d
	}
	return out
}
