package money

import "testing"

func TestPercentRoundsHalfUp(t *testing.T) {
	cases := []struct {
		amount int64
		bp     int64
		want   int64
	}{
		{2020, 1700, 343}, // 343.4 down
		{4350, 1700, 740}, // 739.5 up
		{100, 50, 1},      // 0.5 up
		{100, 49, 0},      // 0.49 down
		{0, 1700, 0},
		{-2020, 1700, -343}, // halves away from zero
		{-4350, 1700, -740},
	}
	for _, tc := range cases {
		got := Money{Amount: tc.amount, Currency: "USD"}.Percent(tc.bp)
		if got.Amount != tc.want {
			t.Errorf("%d at %dbp: got %d, want %d", tc.amount, tc.bp, got.Amount, tc.want)
		}
		if got.Currency != "USD" {
			t.Errorf("%d at %dbp: currency %q", tc.amount, tc.bp, got.Currency)
		}
	}
}

func TestArithmeticRequiresMatchingCurrency(t *testing.T) {
	usd := Must(100, "usd")
	if usd.Currency != "USD" {
		t.Errorf("Must must upper-case the code, got %q", usd.Currency)
	}
	eur := Must(100, "EUR")

	if _, err := usd.Add(eur); err != ErrCurrencyMismatch {
		t.Errorf("Add across currencies: got %v", err)
	}
	if _, err := usd.Sub(Money{Amount: 10}); err != ErrInvalidCurrency {
		t.Errorf("Sub with empty currency: got %v", err)
	}

	sum, err := usd.Add(Must(50, "USD"))
	if err != nil || sum.Amount != 150 {
		t.Errorf("Add: %v %+v", err, sum)
	}
}

func TestNewRejectsBadCurrency(t *testing.T) {
	if _, err := New(100, "US"); err != ErrInvalidCurrency {
		t.Errorf("two-letter code: got %v", err)
	}
	if _, err := New(100, "dollars"); err != ErrInvalidCurrency {
		t.Errorf("long code: got %v", err)
	}
}
