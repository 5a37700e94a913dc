package availability

import (
	"context"
	"testing"
	"time"

	"staymarket/internal/domain/calendar"
	"staymarket/internal/domain/property"
	"staymarket/internal/domain/shared/daterange"
	"staymarket/internal/domain/shared/fault"
	"staymarket/internal/domain/shared/money"
	"staymarket/internal/domain/shared/stay"
)

type stubStore struct {
	days []calendar.Day
	err  error
}

func (s *stubStore) Days(ctx context.Context, id property.PropertyID, dr daterange.DateRange) ([]calendar.Day, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []calendar.Day
	for _, d := range s.days {
		if dr.ContainsDate(d.Date) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *stubStore) LockDays(ctx context.Context, id property.PropertyID, dates []time.Time, reservationID string) error {
	return nil
}

func (s *stubStore) ReleaseDays(ctx context.Context, id property.PropertyID, dates []time.Time) error {
	return nil
}

func (s *stubStore) SetOverride(ctx context.Context, id property.PropertyID, date time.Time, priceOverride int64, minNightsOverride int) error {
	return nil
}

var checkNow = time.Date(2027, 2, 1, 12, 0, 0, 0, time.UTC)

func activeProperty() *property.Property {
	return &property.Property{
		ID:        "prop-1",
		TenantID:  "tenant-1",
		Title:     "Cabin",
		MaxGuests: 4,
		BasePrice: money.Money{Amount: 500, Currency: "USD"},
		MinNights: 2,
		MaxNights: 30,
		State:     property.PropertyActive,
	}
}

func window(t *testing.T, day int, nights int) daterange.DateRange {
	t.Helper()
	checkIn := time.Date(2027, 3, day, 0, 0, 0, 0, time.UTC)
	dr, err := daterange.New(checkIn, checkIn.AddDate(0, 0, nights))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	return dr
}

func booked(day int) calendar.Day {
	return calendar.Day{
		PropertyID: "prop-1",
		Date:       time.Date(2027, 3, day, 0, 0, 0, 0, time.UTC),
		Status:     calendar.DayBooked,
	}
}

func requireFault(t *testing.T, res Result, kind fault.Kind) {
	t.Helper()
	if res.Available {
		t.Fatal("expected unavailable result")
	}
	if res.Fault == nil {
		t.Fatal("expected a fault")
	}
	if res.Fault.Kind != kind {
		t.Fatalf("fault kind: got %s, want %s", res.Fault.Kind, kind)
	}
}

func TestCheckOpenCalendar(t *testing.T) {
	res, err := Check(context.Background(), &stubStore{}, activeProperty(), window(t, 10, 3), stay.GuestCounts{Adults: 2}, checkNow)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !res.Available {
		t.Fatalf("expected available, got fault %v", res.Fault)
	}
	if len(res.Alternatives) != 0 {
		t.Errorf("no alternatives expected for an open window")
	}
}

func TestCheckValidationOrder(t *testing.T) {
	inactive := activeProperty()
	inactive.State = property.PropertyDraft

	past := daterange.DateRange{
		CheckIn:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC),
	}
	inverted := daterange.DateRange{
		CheckIn:  time.Date(2027, 3, 10, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2027, 3, 8, 0, 0, 0, 0, time.UTC),
	}

	cases := []struct {
		name   string
		prop   *property.Property
		dr     daterange.DateRange
		guests stay.GuestCounts
		want   fault.Kind
	}{
		// An inactive listing wins over every other problem with the request.
		{"inactive property", inactive, inverted, stay.GuestCounts{Adults: 99}, fault.NotFound},
		{"inverted dates", activeProperty(), inverted, stay.GuestCounts{Adults: 2}, fault.InvalidDates},
		{"past check-in", activeProperty(), past, stay.GuestCounts{Adults: 2}, fault.InvalidDates},
		{"below min nights", activeProperty(), window(t, 10, 1), stay.GuestCounts{Adults: 2}, fault.RuleViolation},
		{"above max nights", activeProperty(), window(t, 1, 31), stay.GuestCounts{Adults: 2}, fault.RuleViolation},
		{"too many guests", activeProperty(), window(t, 10, 3), stay.GuestCounts{Adults: 4, Children: 1}, fault.RuleViolation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Check(context.Background(), &stubStore{}, tc.prop, tc.dr, tc.guests, checkNow)
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			requireFault(t, res, tc.want)
		})
	}
}

func TestCheckMinNightsOverrideOnCheckInDay(t *testing.T) {
	store := &stubStore{days: []calendar.Day{{
		PropertyID:        "prop-1",
		Date:              time.Date(2027, 3, 10, 0, 0, 0, 0, time.UTC),
		Status:            calendar.DayAvailable,
		MinNightsOverride: 5,
	}}}
	res, err := Check(context.Background(), store, activeProperty(), window(t, 10, 3), stay.GuestCounts{Adults: 2}, checkNow)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	requireFault(t, res, fault.RuleViolation)

	// Five nights satisfies the override.
	res, err = Check(context.Background(), store, activeProperty(), window(t, 10, 5), stay.GuestCounts{Adults: 2}, checkNow)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !res.Available {
		t.Fatalf("expected available, got fault %v", res.Fault)
	}
}

func TestCheckConflictProposesAlternatives(t *testing.T) {
	// March 11 is booked inside the requested 10..13 window; 14, 20 and 21
	// are booked in the probe horizon so the first three clean shifts are
	// +2 (12..15), +5 (15..18) and +6 (16..19). Offset +4 (14..17) collides
	// with the 14th.
	store := &stubStore{days: []calendar.Day{booked(11), booked(14), booked(20), booked(21)}}
	res, err := Check(context.Background(), store, activeProperty(), window(t, 10, 3), stay.GuestCounts{Adults: 2}, checkNow)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	requireFault(t, res, fault.Unavailable)

	if len(res.Alternatives) != maxAlternatives {
		t.Fatalf("alternatives: got %d, want %d", len(res.Alternatives), maxAlternatives)
	}
	wantCheckIns := []int{12, 15, 16}
	for i, alt := range res.Alternatives {
		if alt.Range.Nights() != 3 {
			t.Errorf("alternative %d: got %d nights, want 3", i, alt.Range.Nights())
		}
		if alt.Range.CheckIn.Day() != wantCheckIns[i] {
			t.Errorf("alternative %d: got check-in day %d, want %d", i, alt.Range.CheckIn.Day(), wantCheckIns[i])
		}
		if alt.EstimatedTotal.Amount != 1500 {
			t.Errorf("alternative %d: estimate %d, want 1500", i, alt.EstimatedTotal.Amount)
		}
	}
}

func TestCheckBlockedDayConflicts(t *testing.T) {
	store := &stubStore{days: []calendar.Day{{
		PropertyID: "prop-1",
		Date:       time.Date(2027, 3, 12, 0, 0, 0, 0, time.UTC),
		Status:     calendar.DayBlocked,
	}}}
	res, err := Check(context.Background(), store, activeProperty(), window(t, 10, 3), stay.GuestCounts{Adults: 2}, checkNow)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	requireFault(t, res, fault.Unavailable)
}
