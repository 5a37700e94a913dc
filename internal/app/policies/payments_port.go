package policies

import (
	"context"

	"staymarket/internal/domain/shared/money"
)

// PaymentsPort is the external payment collaborator. Charge returns the
// processor's transaction reference used to confirm a reservation.
type PaymentsPort interface {
	Charge(ctx context.Context, reservationID string, amount money.Money) (string, error)
	Refund(ctx context.Context, reservationID string, amount money.Money) error
}
