package reservation

import (
	"context"
	"errors"
	"time"

	"staymarket/internal/app/commands"
	"staymarket/internal/app/outbox"
	"staymarket/internal/app/uow"
	domainreservation "staymarket/internal/domain/reservation"
	"staymarket/internal/domain/shared/fault"
)

const completeReservationKey = "reservation.complete"

type CompleteReservationCommand struct {
	ReservationID string
}

func (c CompleteReservationCommand) Key() string { return completeReservationKey }

type CompleteReservationResult struct {
	ReservationID string `json:"reservation_id"`
	State         string `json:"state"`
}

type CompleteReservationHandler struct {
	UoWFactory uow.Factory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

// Handle marks a confirmed reservation as completed once the stay has ended.
func (h *CompleteReservationHandler) Handle(ctx context.Context, cmd CompleteReservationCommand) (*CompleteReservationResult, error) {
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
	if now.Before(res.Range.CheckOut) {
		return nil, fault.New(fault.RuleViolation, "stay has not ended yet")
	}
	if err := res.Complete(now); err != nil {
		if errors.Is(err, domainreservation.ErrInvalidTransition) {
			return nil, fault.Newf(fault.InvalidStateTransition, "reservation in state %s cannot be completed", res.State)
		}
		return nil, err
	}
	if err := unit.Reservations().Save(ctx, res); err != nil {
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
	return &CompleteReservationResult{ReservationID: string(res.ID), State: string(res.State)}, nil
}

var _ commands.Handler[CompleteReservationCommand, *CompleteReservationResult] = (*CompleteReservationHandler)(nil)
