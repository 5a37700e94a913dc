package quote

import (
	"context"
	"errors"
	"testing"
	"time"

	"staymarket/internal/app/policies"
	"staymarket/internal/domain/pricing"
	"staymarket/internal/domain/property"
	domainquote "staymarket/internal/domain/quote"
	"staymarket/internal/domain/shared/daterange"
	"staymarket/internal/domain/shared/fault"
	"staymarket/internal/domain/shared/money"
	"staymarket/internal/infra/storage/memory"
)

var (
	quoteIn  = time.Date(2030, 5, 10, 0, 0, 0, 0, time.UTC)
	quoteOut = time.Date(2030, 5, 13, 0, 0, 0, 0, time.UTC)
)

type ratesFunc func(ctx context.Context, externalID string, dr daterange.DateRange, guests int) (policies.RateQuote, error)

func (f ratesFunc) FetchRates(ctx context.Context, externalID string, dr daterange.DateRange, guests int) (policies.RateQuote, error) {
	return f(ctx, externalID, dr, guests)
}

type quoteFixture struct {
	factory  memory.Factory
	calendar *memory.CalendarStore
	quotes   *memory.QuoteRepository
	box      *memory.Outbox
}

func newQuoteFixture(t *testing.T, externalID string) (*quoteFixture, *property.Property) {
	t.Helper()
	f := &quoteFixture{
		calendar: memory.NewCalendarStore(),
		quotes:   memory.NewQuoteRepository(),
		box:      memory.NewOutbox(),
	}
	props := memory.NewPropertyRepository()
	f.factory = memory.Factory{
		TenantsRepo:      memory.NewTenantRepository(),
		PropertiesRepo:   props,
		CalendarStore:    f.calendar,
		QuotesRepo:       f.quotes,
		ReservationsRepo: memory.NewReservationRepository(),
		GuestsRepo:       memory.NewGuestRepository(),
	}
	p, err := property.NewProperty(property.CreateParams{
		ID:          "prop-1",
		TenantID:    "tenant-1",
		Title:       "Garden Loft",
		MaxGuests:   4,
		BasePrice:   money.Money{Amount: 500, Currency: "USD"},
		CleaningFee: money.Money{Amount: 150, Currency: "USD"},
		MinNights:   1,
		MaxNights:   30,
		ExternalID:  externalID,
		Now:         time.Now(),
	})
	if err != nil {
		t.Fatalf("property: %v", err)
	}
	if err := p.Activate(time.Now()); err != nil {
		t.Fatalf("activate: %v", err)
	}
	p.ClearEvents()
	if err := props.Save(context.Background(), p); err != nil {
		t.Fatalf("save property: %v", err)
	}
	return f, p
}

func quoteCmd() GenerateQuoteCommand {
	return GenerateQuoteCommand{
		CommandID:  "quote-1",
		PropertyID: "prop-1",
		CheckIn:    quoteIn,
		CheckOut:   quoteOut,
		Adults:     2,
	}
}

func TestGenerateQuoteInternalPricing(t *testing.T) {
	f, p := newQuoteFixture(t, "")
	h := &GenerateQuoteHandler{UoWFactory: f.factory, Outbox: f.box, QuoteTTL: 24 * time.Hour}

	before := time.Now().UTC()
	res, err := h.Handle(context.Background(), quoteCmd())
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	dr, _ := daterange.New(quoteIn, quoteOut)
	want, err := pricing.Price(pricing.Input{Property: p, Range: dr, Guests: 2})
	if err != nil {
		t.Fatalf("reference price: %v", err)
	}
	if res.Price.GrandTotal != want.GrandTotal {
		t.Errorf("grand total: got %+v, want %+v", res.Price.GrandTotal, want.GrandTotal)
	}

	lo := before.Add(24 * time.Hour)
	hi := time.Now().UTC().Add(24 * time.Hour)
	if res.ExpiresAt.Before(lo) || res.ExpiresAt.After(hi) {
		t.Errorf("expiry %v outside the 24h window [%v, %v]", res.ExpiresAt, lo, hi)
	}

	q, err := f.quotes.ByID(context.Background(), domainquote.QuoteID(res.QuoteID))
	if err != nil {
		t.Fatalf("reload quote: %v", err)
	}
	if q.Status != domainquote.QuoteOpen {
		t.Errorf("status: got %s, want OPEN", q.Status)
	}

	records := f.box.Pending()
	if len(records) != 1 || records[0].Name != "quote.generated" {
		t.Errorf("outbox: %+v", records)
	}
}

func TestGenerateQuotePrefersExternalRates(t *testing.T) {
	f, _ := newQuoteFixture(t, "ext-1")
	external := pricing.Breakdown{
		Nights:     3,
		GrandTotal: money.Money{Amount: 9999, Currency: "USD"},
		Currency:   "USD",
	}
	rates := ratesFunc(func(ctx context.Context, externalID string, dr daterange.DateRange, guests int) (policies.RateQuote, error) {
		return policies.RateQuote{Available: true, Price: external}, nil
	})
	h := &GenerateQuoteHandler{UoWFactory: f.factory, ExternalRates: rates, Outbox: f.box}

	res, err := h.Handle(context.Background(), quoteCmd())
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Price.GrandTotal.Amount != 9999 {
		t.Errorf("grand total: got %d, want the external 9999", res.Price.GrandTotal.Amount)
	}
}

func TestGenerateQuoteFallsBackOnAdapterFailure(t *testing.T) {
	f, p := newQuoteFixture(t, "ext-1")
	rates := ratesFunc(func(ctx context.Context, externalID string, dr daterange.DateRange, guests int) (policies.RateQuote, error) {
		return policies.RateQuote{}, errors.New("pms unreachable")
	})
	h := &GenerateQuoteHandler{UoWFactory: f.factory, ExternalRates: rates, Outbox: f.box}

	res, err := h.Handle(context.Background(), quoteCmd())
	if err != nil {
		t.Fatalf("adapter failure must fall back, got: %v", err)
	}

	dr, _ := daterange.New(quoteIn, quoteOut)
	want, err := pricing.Price(pricing.Input{Property: p, Range: dr, Guests: 2})
	if err != nil {
		t.Fatalf("reference price: %v", err)
	}
	if res.Price.GrandTotal != want.GrandTotal {
		t.Errorf("fallback total: got %+v, want internal %+v", res.Price.GrandTotal, want.GrandTotal)
	}
}

func TestGenerateQuoteExternalDenialExcludesStay(t *testing.T) {
	f, _ := newQuoteFixture(t, "ext-1")
	rates := ratesFunc(func(ctx context.Context, externalID string, dr daterange.DateRange, guests int) (policies.RateQuote, error) {
		return policies.RateQuote{Available: false}, nil
	})
	h := &GenerateQuoteHandler{UoWFactory: f.factory, ExternalRates: rates, Outbox: f.box}

	_, err := h.Handle(context.Background(), quoteCmd())
	if !fault.IsKind(err, fault.ExternalUnavailable) {
		t.Fatalf("external denial: got %v", err)
	}
}

func TestGenerateQuoteUnknownProperty(t *testing.T) {
	f, _ := newQuoteFixture(t, "")
	h := &GenerateQuoteHandler{UoWFactory: f.factory, Outbox: f.box}

	cmd := quoteCmd()
	cmd.PropertyID = "prop-missing"
	_, err := h.Handle(context.Background(), cmd)
	if !fault.IsKind(err, fault.NotFound) {
		t.Fatalf("unknown property: got %v", err)
	}
}

func TestGenerateQuoteBookedDates(t *testing.T) {
	f, _ := newQuoteFixture(t, "")
	if err := f.calendar.LockDays(context.Background(), "prop-1",
		[]time.Time{time.Date(2030, 5, 11, 0, 0, 0, 0, time.UTC)}, "res-1"); err != nil {
		t.Fatalf("lock: %v", err)
	}
	h := &GenerateQuoteHandler{UoWFactory: f.factory, Outbox: f.box}

	_, err := h.Handle(context.Background(), quoteCmd())
	if !fault.IsKind(err, fault.Unavailable) {
		t.Fatalf("booked dates: got %v", err)
	}
}

func TestGenerateQuotePriceOverrideApplied(t *testing.T) {
	f, p := newQuoteFixture(t, "")
	// Override the first night at 450.
	if err := f.calendar.SetOverride(context.Background(), "prop-1", quoteIn, 450, 0); err != nil {
		t.Fatalf("SetOverride: %v", err)
	}
	h := &GenerateQuoteHandler{UoWFactory: f.factory, Outbox: f.box}

	res, err := h.Handle(context.Background(), quoteCmd())
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	// 2030-05-10 is a Friday: the override beats the weekend premium on the
	// first night, the Saturday keeps it and the Sunday is base rate.
	wantRates := []int64{450, 600, p.BasePrice.Amount}
	for i, want := range wantRates {
		if res.Price.NightlyRates[i].Amount != want {
			t.Errorf("night %d: got %d, want %d", i, res.Price.NightlyRates[i].Amount, want)
		}
	}
}
