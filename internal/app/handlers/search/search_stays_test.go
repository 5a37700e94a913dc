package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"staymarket/internal/app/policies"
	domaincalendar "staymarket/internal/domain/calendar"
	"staymarket/internal/domain/pricing"
	"staymarket/internal/domain/property"
	"staymarket/internal/domain/shared/daterange"
	"staymarket/internal/domain/shared/fault"
	"staymarket/internal/domain/shared/money"
	"staymarket/internal/domain/tenant"
	"staymarket/internal/infra/storage/memory"
)

var (
	searchIn  = time.Date(2030, 4, 10, 0, 0, 0, 0, time.UTC)
	searchOut = time.Date(2030, 4, 13, 0, 0, 0, 0, time.UTC)
)

type ratesFunc func(ctx context.Context, externalID string, dr daterange.DateRange, guests int) (policies.RateQuote, error)

func (f ratesFunc) FetchRates(ctx context.Context, externalID string, dr daterange.DateRange, guests int) (policies.RateQuote, error) {
	return f(ctx, externalID, dr, guests)
}

type searchFixture struct {
	factory    memory.Factory
	calendar   *memory.CalendarStore
	properties *memory.PropertyRepository
	tenants    *memory.TenantRepository
}

func newSearchFixture(t *testing.T) *searchFixture {
	t.Helper()
	f := &searchFixture{
		calendar:   memory.NewCalendarStore(),
		properties: memory.NewPropertyRepository(),
		tenants:    memory.NewTenantRepository(),
	}
	f.factory = memory.Factory{
		TenantsRepo:      f.tenants,
		PropertiesRepo:   f.properties,
		CalendarStore:    f.calendar,
		QuotesRepo:       memory.NewQuoteRepository(),
		ReservationsRepo: memory.NewReservationRepository(),
		GuestsRepo:       memory.NewGuestRepository(),
	}
	ten, err := tenant.NewTenant("tenant-1", "Coastal Hosts", "USD", time.Now())
	if err != nil {
		t.Fatalf("tenant: %v", err)
	}
	if err := f.tenants.Save(context.Background(), ten); err != nil {
		t.Fatalf("save tenant: %v", err)
	}
	return f
}

func (f *searchFixture) addProperty(t *testing.T, id string, basePrice int64, externalID string) {
	t.Helper()
	p, err := property.NewProperty(property.CreateParams{
		ID:         property.PropertyID(id),
		TenantID:   "tenant-1",
		Title:      "Unit " + id,
		MaxGuests:  4,
		Bedrooms:   2,
		BasePrice:  money.Money{Amount: basePrice, Currency: "USD"},
		MinNights:  1,
		MaxNights:  30,
		ExternalID: externalID,
		Now:        time.Now(),
	})
	if err != nil {
		t.Fatalf("property %s: %v", id, err)
	}
	if err := p.Activate(time.Now()); err != nil {
		t.Fatalf("activate %s: %v", id, err)
	}
	p.ClearEvents()
	if err := f.properties.Save(context.Background(), p); err != nil {
		t.Fatalf("save %s: %v", id, err)
	}
}

func searchQuery() SearchStaysQuery {
	return SearchStaysQuery{CheckIn: searchIn, CheckOut: searchOut, Adults: 2}
}

func TestSearchStaysRanksByTotal(t *testing.T) {
	f := newSearchFixture(t)
	f.addProperty(t, "prop-cheap", 300, "")
	f.addProperty(t, "prop-mid", 500, "")
	f.addProperty(t, "prop-dear", 900, "")

	h := &SearchStaysHandler{UoWFactory: f.factory}
	res, err := h.Handle(context.Background(), searchQuery())
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(res.Stays) != 3 {
		t.Fatalf("stays: got %d, want 3", len(res.Stays))
	}
	want := []string{"prop-cheap", "prop-mid", "prop-dear"}
	for i, id := range want {
		if res.Stays[i].PropertyID != id {
			t.Errorf("rank %d: got %s, want %s", i, res.Stays[i].PropertyID, id)
		}
		if res.Stays[i].Pricing == nil {
			t.Errorf("rank %d: missing pricing", i)
		}
	}
}

func TestSearchStaysExcludesBookedProperty(t *testing.T) {
	f := newSearchFixture(t)
	f.addProperty(t, "prop-open", 300, "")
	f.addProperty(t, "prop-busy", 200, "")
	if err := f.calendar.LockDays(context.Background(), "prop-busy",
		[]time.Time{time.Date(2030, 4, 11, 0, 0, 0, 0, time.UTC)}, "res-1"); err != nil {
		t.Fatalf("lock: %v", err)
	}

	h := &SearchStaysHandler{UoWFactory: f.factory}
	res, err := h.Handle(context.Background(), searchQuery())
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(res.Stays) != 1 || res.Stays[0].PropertyID != "prop-open" {
		t.Fatalf("stays: got %+v, want only prop-open", res.Stays)
	}
}

func TestSearchStaysExcludesExternallyUnavailable(t *testing.T) {
	f := newSearchFixture(t)
	f.addProperty(t, "prop-int", 300, "")
	f.addProperty(t, "prop-ext", 700, "ext-1")

	rates := ratesFunc(func(ctx context.Context, externalID string, dr daterange.DateRange, guests int) (policies.RateQuote, error) {
		return policies.RateQuote{Available: false}, nil
	})
	h := &SearchStaysHandler{UoWFactory: f.factory, ExternalRates: rates}
	res, err := h.Handle(context.Background(), searchQuery())
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(res.Stays) != 1 || res.Stays[0].PropertyID != "prop-int" {
		t.Fatalf("stays: got %+v, want only prop-int", res.Stays)
	}
}

func TestSearchStaysDegradesOnAdapterFailure(t *testing.T) {
	f := newSearchFixture(t)
	f.addProperty(t, "prop-int", 300, "")
	f.addProperty(t, "prop-ext", 700, "ext-1")

	rates := ratesFunc(func(ctx context.Context, externalID string, dr daterange.DateRange, guests int) (policies.RateQuote, error) {
		return policies.RateQuote{}, fault.Wrap(fault.ExternalAdapterFailure, "pms down", errors.New("dial tcp: refused"))
	})
	h := &SearchStaysHandler{UoWFactory: f.factory, ExternalRates: rates}
	res, err := h.Handle(context.Background(), searchQuery())
	if err != nil {
		t.Fatalf("one failing property must not fail the batch: %v", err)
	}
	if len(res.Stays) != 2 {
		t.Fatalf("stays: got %d, want 2", len(res.Stays))
	}
	// The unpriced stay goes last.
	if res.Stays[0].PropertyID != "prop-int" || res.Stays[0].Pricing == nil {
		t.Errorf("first stay: %+v", res.Stays[0])
	}
	if res.Stays[1].PropertyID != "prop-ext" || res.Stays[1].Pricing != nil {
		t.Errorf("degraded stay must be listed last without pricing: %+v", res.Stays[1])
	}
}

// brokenCalendar fails day reads for one property, like a corrupt document
// or a timed-out shard would.
type brokenCalendar struct {
	domaincalendar.Store
	failFor property.PropertyID
}

func (s brokenCalendar) Days(ctx context.Context, id property.PropertyID, dr daterange.DateRange) ([]domaincalendar.Day, error) {
	if id == s.failFor {
		return nil, errors.New("calendar backend offline")
	}
	return s.Store.Days(ctx, id, dr)
}

func TestSearchStaysSkipsPropertyOnCalendarFailure(t *testing.T) {
	f := newSearchFixture(t)
	f.addProperty(t, "prop-ok", 300, "")
	f.addProperty(t, "prop-broken", 200, "")
	f.factory.CalendarStore = brokenCalendar{Store: f.calendar, failFor: "prop-broken"}

	h := &SearchStaysHandler{UoWFactory: f.factory}
	res, err := h.Handle(context.Background(), searchQuery())
	if err != nil {
		t.Fatalf("one unreadable calendar must not fail the batch: %v", err)
	}
	if len(res.Stays) != 1 || res.Stays[0].PropertyID != "prop-ok" {
		t.Fatalf("stays: got %+v, want only prop-ok", res.Stays)
	}
	if res.Stays[0].Pricing == nil {
		t.Errorf("surviving stay lost its pricing: %+v", res.Stays[0])
	}
}

func TestSearchStaysUsesExternalRates(t *testing.T) {
	f := newSearchFixture(t)
	f.addProperty(t, "prop-ext", 700, "ext-1")

	rates := ratesFunc(func(ctx context.Context, externalID string, dr daterange.DateRange, guests int) (policies.RateQuote, error) {
		if externalID != "ext-1" {
			t.Errorf("external id: got %q", externalID)
		}
		return policies.RateQuote{Available: true, Price: pricing.Breakdown{
			Nights:     3,
			GrandTotal: money.Money{Amount: 4200, Currency: "USD"},
			Currency:   "USD",
		}}, nil
	})
	h := &SearchStaysHandler{UoWFactory: f.factory, ExternalRates: rates}
	res, err := h.Handle(context.Background(), searchQuery())
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(res.Stays) != 1 || res.Stays[0].Pricing == nil || res.Stays[0].Pricing.GrandTotal.Amount != 4200 {
		t.Fatalf("stays: %+v", res.Stays)
	}
}

func TestSearchStaysFiltersByCapacityAndLimit(t *testing.T) {
	f := newSearchFixture(t)
	f.addProperty(t, "prop-a", 300, "")
	f.addProperty(t, "prop-b", 400, "")
	f.addProperty(t, "prop-c", 500, "")

	q := searchQuery()
	q.Adults = 4
	q.Children = 1 // over every property's MaxGuests of 4
	h := &SearchStaysHandler{UoWFactory: f.factory}
	res, err := h.Handle(context.Background(), q)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(res.Stays) != 0 {
		t.Fatalf("over-capacity search returned %d stays", len(res.Stays))
	}

	q = searchQuery()
	q.Limit = 2
	res, err = h.Handle(context.Background(), q)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(res.Stays) != 2 {
		t.Fatalf("limit ignored: got %d stays", len(res.Stays))
	}
	if res.Stays[0].PropertyID != "prop-a" || res.Stays[1].PropertyID != "prop-b" {
		t.Errorf("limit must keep the cheapest stays: %+v", res.Stays)
	}
}

func TestSearchStaysRejectsBadInput(t *testing.T) {
	f := newSearchFixture(t)
	h := &SearchStaysHandler{UoWFactory: f.factory}

	q := searchQuery()
	q.CheckOut = q.CheckIn
	if _, err := h.Handle(context.Background(), q); fault.KindOf(err) != fault.InvalidDates {
		t.Errorf("empty window: got %v", err)
	}

	q = searchQuery()
	q.Adults = 0
	if _, err := h.Handle(context.Background(), q); fault.KindOf(err) != fault.RuleViolation {
		t.Errorf("no adults: got %v", err)
	}
}
