package reservation

import (
	"context"
	"errors"
	"time"

	"staymarket/internal/app/commands"
	"staymarket/internal/app/outbox"
	"staymarket/internal/app/policies"
	"staymarket/internal/app/uow"
	domainguest "staymarket/internal/domain/guest"
	domainreservation "staymarket/internal/domain/reservation"
	"staymarket/internal/domain/shared/fault"
)

const confirmReservationKey = "reservation.confirm"

type ConfirmReservationCommand struct {
	ReservationID string
	IdemKey       string
}

func (c ConfirmReservationCommand) Key() string            { return confirmReservationKey }
func (c ConfirmReservationCommand) IdempotencyKey() string { return c.IdemKey }
func (c ConfirmReservationCommand) ResultPrototype() any   { return &ConfirmReservationResult{} }

type ConfirmReservationResult struct {
	ReservationID string `json:"reservation_id"`
	State         string `json:"state"`
	PaymentRef    string `json:"payment_ref"`
}

type ConfirmReservationHandler struct {
	UoWFactory uow.Factory
	Payments   policies.PaymentsPort
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

// Handle charges the full amount through the payments collaborator and
// promotes a pending reservation to confirmed. The guest's lifetime stats
// are folded in within the same unit of work.
func (h *ConfirmReservationHandler) Handle(ctx context.Context, cmd ConfirmReservationCommand) (*ConfirmReservationResult, error) {
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
	if res.State != domainreservation.StatePending {
		return nil, fault.New(fault.InvalidStateTransition, "only pending reservations can be confirmed")
	}

	if h.Payments == nil {
		return nil, errors.New("reservation: payments port not configured")
	}
	paymentRef, err := h.Payments.Charge(ctx, string(res.ID), res.Price.GrandTotal)
	if err != nil {
		return nil, fault.Wrap(fault.ExternalAdapterFailure, "payment charge failed", err)
	}

	if err := res.Confirm(paymentRef, now); err != nil {
		if errors.Is(err, domainreservation.ErrInvalidTransition) {
			return nil, fault.New(fault.InvalidStateTransition, "only pending reservations can be confirmed")
		}
		return nil, err
	}
	if err := unit.Reservations().Save(ctx, res); err != nil {
		return nil, err
	}

	if err := h.recordGuestStay(ctx, unit, res, now); err != nil {
		return nil, err
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
	return &ConfirmReservationResult{
		ReservationID: string(res.ID),
		State:         string(res.State),
		PaymentRef:    paymentRef,
	}, nil
}

func (h *ConfirmReservationHandler) recordGuestStay(ctx context.Context, unit uow.UnitOfWork, res *domainreservation.Reservation, now time.Time) error {
	guest, err := unit.Guests().ByID(ctx, domainguest.GuestID(res.GuestID))
	if err != nil {
		if errors.Is(err, domainguest.ErrNotFound) {
			return nil
		}
		return err
	}
	guest.RecordStay(res.Price.GrandTotal, res.Range.CheckOut, now)
	return unit.Guests().Save(ctx, guest)
}

var _ commands.Handler[ConfirmReservationCommand, *ConfirmReservationResult] = (*ConfirmReservationHandler)(nil)
