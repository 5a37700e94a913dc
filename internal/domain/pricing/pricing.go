package pricing

import (
	"errors"
	"time"

	"staymarket/internal/domain/calendar"
	"staymarket/internal/domain/property"
	"staymarket/internal/domain/shared/daterange"
	"staymarket/internal/domain/shared/money"
)

var (
	ErrPropertyRequired = errors.New("pricing: property is required")
	ErrInvalidRange     = errors.New("pricing: stay must cover at least one night")
)

// Rate fractions in basis points. Rounding is half-up at every step, never
// deferred to the end.
const (
	weekendPremiumBP  = 2000 // Friday and Saturday nights
	serviceFeeBP      = 1000
	weeklyDiscountBP  = 1000 // stays of 7+ nights
	monthlyDiscountBP = 2000 // stays of 28+ nights
	promoDiscountBP   = 500
	taxBP             = 1700

	weeklyThresholdNights  = 7
	monthlyThresholdNights = 28
)

const (
	DiscountWeekly  = "weekly_stay"
	DiscountMonthly = "monthly_stay"
	DiscountPromo   = "promo_code"
)

type Discount struct {
	Name   string
	Amount money.Money
}

// Breakdown is the full pricing snapshot for a stay. Once copied onto a
// quote or reservation it is never recomputed.
type Breakdown struct {
	Nights             int
	NightlyRates       []money.Money
	AccommodationTotal money.Money
	CleaningFee        money.Money
	ServiceFee         money.Money
	Discounts          []Discount
	TaxableAmount      money.Money
	Taxes              money.Money
	GrandTotal         money.Money
	Currency           string
}

func (b Breakdown) TotalDiscount() money.Money {
	total := money.Money{Currency: b.Currency}
	for _, d := range b.Discounts {
		total.Amount += d.Amount.Amount
	}
	return total
}

func (b Breakdown) Copy() Breakdown {
	clone := b
	clone.NightlyRates = append([]money.Money(nil), b.NightlyRates...)
	clone.Discounts = append([]Discount(nil), b.Discounts...)
	return clone
}

// Input carries everything Price needs; the function is deterministic and
// keeps no hidden state.
type Input struct {
	Property  *property.Property
	Range     daterange.DateRange
	Guests    int
	Overrides map[time.Time]calendar.Day
	PromoCode string
}

// Price computes the stay breakdown: per-night rate (calendar override, else
// weekend premium on Friday/Saturday, else base), flat cleaning fee, 10%
// service fee, additive length-of-stay and promo discounts, then 17% tax on
// the discounted subtotal.
func Price(input Input) (Breakdown, error) {
	p := input.Property
	if p == nil {
		return Breakdown{}, ErrPropertyRequired
	}
	nights := input.Range.Nights()
	if nights < 1 {
		return Breakdown{}, ErrInvalidRange
	}
	currency := p.BasePrice.Currency

	rates := make([]money.Money, 0, nights)
	accommodation := money.Money{Currency: currency}
	for _, date := range input.Range.Dates() {
		rate := nightlyRate(p, date, input.Overrides)
		rates = append(rates, rate)
		accommodation.Amount += rate.Amount
	}

	serviceFee := accommodation.Percent(serviceFeeBP)
	cleaningFee := money.Money{Amount: p.CleaningFee.Amount, Currency: currency}

	// Length-of-stay discounts are applied independently and summed, not
	// compounded; a 28-night stay earns both.
	var discounts []Discount
	if nights >= weeklyThresholdNights {
		discounts = append(discounts, Discount{Name: DiscountWeekly, Amount: accommodation.Percent(weeklyDiscountBP)})
	}
	if nights >= monthlyThresholdNights {
		discounts = append(discounts, Discount{Name: DiscountMonthly, Amount: accommodation.Percent(monthlyDiscountBP)})
	}
	// Any non-empty promo code earns the flat promo rate. Registry lookup
	// belongs to a future collaborator.
	if input.PromoCode != "" {
		discounts = append(discounts, Discount{Name: DiscountPromo, Amount: accommodation.Percent(promoDiscountBP)})
	}

	taxable := money.Money{Amount: accommodation.Amount + cleaningFee.Amount + serviceFee.Amount, Currency: currency}
	for _, d := range discounts {
		taxable.Amount -= d.Amount.Amount
	}
	if taxable.Amount < 0 {
		taxable.Amount = 0
	}

	taxes := taxable.Percent(taxBP)
	grand := money.Money{Amount: taxable.Amount + taxes.Amount, Currency: currency}

	return Breakdown{
		Nights:             nights,
		NightlyRates:       rates,
		AccommodationTotal: accommodation,
		CleaningFee:        cleaningFee,
		ServiceFee:         serviceFee,
		Discounts:          discounts,
		TaxableAmount:      taxable,
		Taxes:              taxes,
		GrandTotal:         grand,
		Currency:           currency,
	}, nil
}

func nightlyRate(p *property.Property, date time.Time, overrides map[time.Time]calendar.Day) money.Money {
	if day, ok := overrides[daterange.Day(date)]; ok && day.PriceOverride > 0 {
		return money.Money{Amount: day.PriceOverride, Currency: p.BasePrice.Currency}
	}
	switch date.Weekday() {
	case time.Friday, time.Saturday:
		premium := p.BasePrice.Percent(weekendPremiumBP)
		return money.Money{Amount: p.BasePrice.Amount + premium.Amount, Currency: p.BasePrice.Currency}
	default:
		return p.BasePrice
	}
}
