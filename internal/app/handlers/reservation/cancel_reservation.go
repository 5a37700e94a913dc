package reservation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"staymarket/internal/app/commands"
	"staymarket/internal/app/outbox"
	"staymarket/internal/app/policies"
	"staymarket/internal/app/uow"
	domainreservation "staymarket/internal/domain/reservation"
	"staymarket/internal/domain/shared/fault"
)

const cancelReservationKey = "reservation.cancel"

type CancelReservationCommand struct {
	ReservationID string
	Reason        string
	IdemKey       string
}

func (c CancelReservationCommand) Key() string            { return cancelReservationKey }
func (c CancelReservationCommand) IdempotencyKey() string { return c.IdemKey }
func (c CancelReservationCommand) ResultPrototype() any   { return &CancelReservationResult{} }

type CancelReservationResult struct {
	ReservationID string `json:"reservation_id"`
	State         string `json:"state"`
	RefundAmount  int64  `json:"refund_amount"`
	Currency      string `json:"currency"`
}

type CancelReservationHandler struct {
	UoWFactory uow.Factory
	Payments   policies.PaymentsPort
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

// Handle cancels a pending or confirmed reservation, releases its calendar
// days and reports the refund owed under the frozen policy snapshot.
// Cancelling an already cancelled or completed reservation is rejected so a
// retrying caller learns the first attempt went through.
func (h *CancelReservationHandler) Handle(ctx context.Context, cmd CancelReservationCommand) (*CancelReservationResult, error) {
	unit, ok := uow.FromContext(ctx)
	managed := false
	committed := false
	if !ok {
		if h.UoWFactory == nil {
			return nil, ErrUnitOfWorkRequired
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return nil, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		managed = true
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	now := time.Now().UTC()

	res, err := unit.Reservations().ByID(ctx, domainreservation.ReservationID(cmd.ReservationID))
	if err != nil {
		if errors.Is(err, domainreservation.ErrNotFound) {
			return nil, fault.New(fault.NotFound, "reservation not found")
		}
		return nil, err
	}
	heldCalendar := res.HoldsCalendar()

	refund, err := res.Cancel(cmd.Reason, now)
	if err != nil {
		if errors.Is(err, domainreservation.ErrInvalidTransition) {
			return nil, fault.Newf(fault.InvalidStateTransition, "reservation in state %s cannot be cancelled", res.State)
		}
		return nil, err
	}
	if err := unit.Reservations().Save(ctx, res); err != nil {
		return nil, err
	}

	if heldCalendar {
		if err := unit.Calendar().ReleaseDays(ctx, res.PropertyID, res.Range.Dates()); err != nil {
			return nil, err
		}
	}

	if !refund.IsZero() && h.Payments != nil {
		if err := h.Payments.Refund(ctx, string(res.ID), refund); err != nil {
			// The cancellation stands; the refund is retried out of band.
			if h.Logger != nil {
				h.Logger.Error("refund request failed, needs manual retry",
					"reservation_id", res.ID, "amount", refund.Amount, "error", err)
			}
		}
	}

	pending := res.PendingEvents()
	res.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, pending); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}
	return &CancelReservationResult{
		ReservationID: string(res.ID),
		State:         string(res.State),
		RefundAmount:  refund.Amount,
		Currency:      refund.Currency,
	}, nil
}

var _ commands.Handler[CancelReservationCommand, *CancelReservationResult] = (*CancelReservationHandler)(nil)
