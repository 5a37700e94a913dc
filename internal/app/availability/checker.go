package availability

import (
	"context"
	"time"

	"staymarket/internal/domain/calendar"
	"staymarket/internal/domain/property"
	"staymarket/internal/domain/shared/daterange"
	"staymarket/internal/domain/shared/fault"
	"staymarket/internal/domain/shared/money"
	"staymarket/internal/domain/shared/stay"
)

const (
	maxAlternatives      = 3
	alternativeProbeDays = 30
)

// Alternative is an advisory open window of the same length as the original
// request. Nothing is reserved; the estimate skips discounts.
type Alternative struct {
	Range          daterange.DateRange
	EstimatedTotal money.Money
}

type Result struct {
	Available    bool
	Fault        *fault.Fault
	Alternatives []Alternative
	// Days carries the calendar rows for the requested window so callers
	// can feed overrides into the pricing calculator without a second read.
	Days []calendar.Day
}

// Check validates a requested stay against property rules and the calendar
// ledger. Validations short-circuit in order: active property, date sanity,
// min nights, max nights, capacity, calendar conflicts. On a calendar
// conflict it proposes up to three alternative windows by probing day
// offsets +1..+30 from the original check-in.
func Check(ctx context.Context, cal calendar.Store, p *property.Property, dr daterange.DateRange, guests stay.GuestCounts, now time.Time) (Result, error) {
	if p == nil || !p.IsActive() {
		return failed(fault.New(fault.NotFound, "property not found or not active")), nil
	}
	if err := dr.Validate(); err != nil {
		return failed(fault.New(fault.InvalidDates, "check-out must be after check-in")), nil
	}
	if dr.CheckIn.Before(daterange.Day(now)) {
		return failed(fault.New(fault.InvalidDates, "check-in date is in the past")), nil
	}
	nights := dr.Nights()
	if nights < p.MinNights {
		return failed(fault.Newf(fault.RuleViolation, "stay requires at least %d nights", p.MinNights)), nil
	}
	if nights > p.MaxNights {
		return failed(fault.Newf(fault.RuleViolation, "stay cannot exceed %d nights", p.MaxNights)), nil
	}
	if guests.Total() > p.MaxGuests {
		return failed(fault.Newf(fault.RuleViolation, "property sleeps at most %d guests", p.MaxGuests)), nil
	}

	// One wide read covers the requested window and the whole probe
	// horizon for alternatives.
	horizon := daterange.DateRange{
		CheckIn:  dr.CheckIn,
		CheckOut: dr.CheckOut.AddDate(0, 0, alternativeProbeDays),
	}
	days, err := cal.Days(ctx, p.ID, horizon)
	if err != nil {
		return Result{}, err
	}

	requested := daysWithin(days, dr)
	if day, ok := startDay(days, dr.CheckIn); ok && day.MinNightsOverride > 0 && nights < day.MinNightsOverride {
		return failed(fault.Newf(fault.RuleViolation, "stay requires at least %d nights for this date", day.MinNightsOverride)), nil
	}
	if calendar.OpenDates(days, dr) {
		return Result{Available: true, Days: requested}, nil
	}

	return Result{
		Available:    false,
		Fault:        fault.New(fault.Unavailable, "requested dates are not available"),
		Alternatives: alternatives(days, p, dr),
		Days:         requested,
	}, nil
}

func alternatives(days []calendar.Day, p *property.Property, dr daterange.DateRange) []Alternative {
	nights := int64(dr.Nights())
	var out []Alternative
	for offset := 1; offset <= alternativeProbeDays && len(out) < maxAlternatives; offset++ {
		shifted := dr.Shift(offset)
		if !calendar.OpenDates(days, shifted) {
			continue
		}
		out = append(out, Alternative{
			Range:          shifted,
			EstimatedTotal: p.BasePrice.Multiply(nights),
		})
	}
	return out
}

func daysWithin(days []calendar.Day, dr daterange.DateRange) []calendar.Day {
	var out []calendar.Day
	for _, d := range days {
		if dr.ContainsDate(d.Date) {
			out = append(out, d)
		}
	}
	return out
}

func startDay(days []calendar.Day, checkIn time.Time) (calendar.Day, bool) {
	checkIn = daterange.Day(checkIn)
	for _, d := range days {
		if daterange.Day(d.Date).Equal(checkIn) {
			return d, true
		}
	}
	return calendar.Day{}, false
}

func failed(f *fault.Fault) Result {
	return Result{Available: false, Fault: f}
}
