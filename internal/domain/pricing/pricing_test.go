package pricing

import (
	"reflect"
	"testing"
	"time"

	"staymarket/internal/domain/calendar"
	"staymarket/internal/domain/property"
	"staymarket/internal/domain/shared/daterange"
	"staymarket/internal/domain/shared/money"
)

func testProperty() *property.Property {
	return &property.Property{
		ID:          "prop-1",
		TenantID:    "tenant-1",
		Title:       "Sea View Flat",
		MaxGuests:   4,
		BasePrice:   money.Money{Amount: 500, Currency: "USD"},
		CleaningFee: money.Money{Amount: 150, Currency: "USD"},
		MinNights:   1,
		MaxNights:   60,
		State:       property.PropertyActive,
	}
}

func mustRange(t *testing.T, checkIn time.Time, nights int) daterange.DateRange {
	t.Helper()
	dr, err := daterange.New(checkIn, checkIn.AddDate(0, 0, nights))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	return dr
}

// 2026-10-01 is a Thursday, so the stay covers Thu, Fri, Sat nights and the
// last two carry the weekend premium.
func TestPriceWeekendPremium(t *testing.T) {
	checkIn := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	b, err := Price(Input{Property: testProperty(), Range: mustRange(t, checkIn, 3), Guests: 2})
	if err != nil {
		t.Fatalf("Price: %v", err)
	}

	wantRates := []int64{500, 600, 600}
	if len(b.NightlyRates) != len(wantRates) {
		t.Fatalf("nightly rates: got %d, want %d", len(b.NightlyRates), len(wantRates))
	}
	for i, want := range wantRates {
		if b.NightlyRates[i].Amount != want {
			t.Errorf("night %d: got %d, want %d", i, b.NightlyRates[i].Amount, want)
		}
	}
	if b.AccommodationTotal.Amount != 1700 {
		t.Errorf("accommodation: got %d, want 1700", b.AccommodationTotal.Amount)
	}
	if b.ServiceFee.Amount != 170 {
		t.Errorf("service fee: got %d, want 170", b.ServiceFee.Amount)
	}
	if len(b.Discounts) != 0 {
		t.Errorf("unexpected discounts: %v", b.Discounts)
	}
	if b.TaxableAmount.Amount != 2020 {
		t.Errorf("taxable: got %d, want 2020", b.TaxableAmount.Amount)
	}
	// 2020 * 17% = 343.4, rounds down under half-up.
	if b.Taxes.Amount != 343 {
		t.Errorf("taxes: got %d, want 343", b.Taxes.Amount)
	}
	if b.GrandTotal.Amount != 2363 {
		t.Errorf("grand total: got %d, want 2363", b.GrandTotal.Amount)
	}
	if b.Currency != "USD" {
		t.Errorf("currency: got %q", b.Currency)
	}
}

// 2026-10-07 is a Wednesday, so only the Friday night carries the premium:
// 500 + 500 + 600 accommodation, 160 service fee, 325 tax, 2235 grand total.
func TestPriceMidweekStayWithOnePremiumNight(t *testing.T) {
	checkIn := time.Date(2026, 10, 7, 0, 0, 0, 0, time.UTC)
	b, err := Price(Input{Property: testProperty(), Range: mustRange(t, checkIn, 3), Guests: 2})
	if err != nil {
		t.Fatalf("Price: %v", err)
	}

	wantRates := []int64{500, 500, 600}
	if len(b.NightlyRates) != len(wantRates) {
		t.Fatalf("nightly rates: got %d, want %d", len(b.NightlyRates), len(wantRates))
	}
	for i, want := range wantRates {
		if b.NightlyRates[i].Amount != want {
			t.Errorf("night %d: got %d, want %d", i, b.NightlyRates[i].Amount, want)
		}
	}
	if b.AccommodationTotal.Amount != 1600 {
		t.Errorf("accommodation: got %d, want 1600", b.AccommodationTotal.Amount)
	}
	if b.ServiceFee.Amount != 160 {
		t.Errorf("service fee: got %d, want 160", b.ServiceFee.Amount)
	}
	if b.TaxableAmount.Amount != 1910 {
		t.Errorf("taxable: got %d, want 1910", b.TaxableAmount.Amount)
	}
	// 1910 * 17% = 324.7, rounds up under half-up.
	if b.Taxes.Amount != 325 {
		t.Errorf("taxes: got %d, want 325", b.Taxes.Amount)
	}
	if b.GrandTotal.Amount != 2235 {
		t.Errorf("grand total: got %d, want 2235", b.GrandTotal.Amount)
	}
}

// 2026-10-05 is a Monday; eight nights span one Friday and one Saturday.
func TestPriceWeeklyDiscount(t *testing.T) {
	checkIn := time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)
	b, err := Price(Input{Property: testProperty(), Range: mustRange(t, checkIn, 8), Guests: 2})
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if b.AccommodationTotal.Amount != 4200 {
		t.Fatalf("accommodation: got %d, want 4200", b.AccommodationTotal.Amount)
	}
	if len(b.Discounts) != 1 || b.Discounts[0].Name != DiscountWeekly {
		t.Fatalf("discounts: got %v, want one weekly", b.Discounts)
	}
	if b.Discounts[0].Amount.Amount != 420 {
		t.Errorf("weekly discount: got %d, want 420", b.Discounts[0].Amount.Amount)
	}
	// taxable = 4200 + 150 + 420 - 420; taxes = 4350 * 17% = 739.5 -> 740.
	if b.TaxableAmount.Amount != 4350 {
		t.Errorf("taxable: got %d, want 4350", b.TaxableAmount.Amount)
	}
	if b.Taxes.Amount != 740 {
		t.Errorf("taxes: got %d, want 740", b.Taxes.Amount)
	}
	if b.GrandTotal.Amount != 5090 {
		t.Errorf("grand total: got %d, want 5090", b.GrandTotal.Amount)
	}
}

// A 28-night stay earns weekly and monthly discounts summed, not compounded.
func TestPriceMonthlyDiscountStacks(t *testing.T) {
	checkIn := time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)
	b, err := Price(Input{Property: testProperty(), Range: mustRange(t, checkIn, 28), Guests: 2})
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	// 20 base nights plus 8 weekend nights.
	if b.AccommodationTotal.Amount != 14800 {
		t.Fatalf("accommodation: got %d, want 14800", b.AccommodationTotal.Amount)
	}
	if len(b.Discounts) != 2 {
		t.Fatalf("discounts: got %d, want 2", len(b.Discounts))
	}
	if b.Discounts[0].Name != DiscountWeekly || b.Discounts[0].Amount.Amount != 1480 {
		t.Errorf("weekly: got %+v", b.Discounts[0])
	}
	if b.Discounts[1].Name != DiscountMonthly || b.Discounts[1].Amount.Amount != 2960 {
		t.Errorf("monthly: got %+v", b.Discounts[1])
	}
	if b.TotalDiscount().Amount != 4440 {
		t.Errorf("total discount: got %d, want 4440", b.TotalDiscount().Amount)
	}
}

func TestPricePromoCode(t *testing.T) {
	checkIn := time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)
	b, err := Price(Input{Property: testProperty(), Range: mustRange(t, checkIn, 2), Guests: 2, PromoCode: "WELCOME"})
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if len(b.Discounts) != 1 || b.Discounts[0].Name != DiscountPromo {
		t.Fatalf("discounts: got %v, want one promo", b.Discounts)
	}
	if b.Discounts[0].Amount.Amount != 50 {
		t.Errorf("promo discount: got %d, want 50", b.Discounts[0].Amount.Amount)
	}
	// taxable = 1000 + 150 + 100 - 50 = 1200; taxes = 204.
	if b.GrandTotal.Amount != 1404 {
		t.Errorf("grand total: got %d, want 1404", b.GrandTotal.Amount)
	}
}

func TestPriceCalendarOverrideBeatsWeekendPremium(t *testing.T) {
	// 2026-10-09 is a Friday; the override must win over the premium.
	friday := time.Date(2026, 10, 9, 0, 0, 0, 0, time.UTC)
	overrides := map[time.Time]calendar.Day{
		friday: {Date: friday, Status: calendar.DayAvailable, PriceOverride: 450},
	}
	b, err := Price(Input{Property: testProperty(), Range: mustRange(t, friday, 1), Guests: 2, Overrides: overrides})
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if b.NightlyRates[0].Amount != 450 {
		t.Errorf("overridden rate: got %d, want 450", b.NightlyRates[0].Amount)
	}
}

func TestPriceDeterministic(t *testing.T) {
	checkIn := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	input := Input{Property: testProperty(), Range: mustRange(t, checkIn, 8), Guests: 3, PromoCode: "X"}
	first, err := Price(input)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	second, err := Price(input)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("same input produced different breakdowns:\n%+v\n%+v", first, second)
	}
}

func TestPriceRejectsEmptyRange(t *testing.T) {
	checkIn := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	if _, err := Price(Input{Property: testProperty(), Range: daterange.DateRange{CheckIn: checkIn, CheckOut: checkIn}}); err == nil {
		t.Fatal("expected error for zero-night stay")
	}
	if _, err := Price(Input{}); err == nil {
		t.Fatal("expected error for missing property")
	}
}
