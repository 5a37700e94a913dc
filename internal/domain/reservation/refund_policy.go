package reservation

import (
	"time"

	"staymarket/internal/domain/shared/money"
)

// RefundPolicySnapshot freezes the cancellation terms at booking time so a
// later policy change cannot alter an existing reservation.
type RefundPolicySnapshot struct {
	FreeCancellationUntil time.Time
	// PenaltyPercent is withheld when cancelling after the free window but
	// before check-in.
	PenaltyPercent int
	// PostCheckInPenaltyPercent is withheld when cancelling after check-in.
	PostCheckInPenaltyPercent int
}

// Refund returns the amount to give back for a paid reservation cancelled at
// cancelAt.
func (p RefundPolicySnapshot) Refund(total money.Money, cancelAt, checkIn time.Time) money.Money {
	percent := 0
	if cancelAt.Before(checkIn) {
		if !p.FreeCancellationUntil.IsZero() && cancelAt.Before(p.FreeCancellationUntil) {
			percent = 0
		} else {
			percent = clampPercent(p.PenaltyPercent)
		}
	} else {
		percent = clampPercent(p.PostCheckInPenaltyPercent)
	}
	penalty := total.Percent(int64(percent) * 100)
	refund, err := total.Sub(penalty)
	if err != nil {
		return money.Money{Currency: total.Currency}
	}
	return refund
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
