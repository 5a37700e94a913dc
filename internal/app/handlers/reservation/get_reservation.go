package reservation

import (
	"context"
	"errors"
	"time"

	"staymarket/internal/app/queries"
	"staymarket/internal/app/uow"
	domainpricing "staymarket/internal/domain/pricing"
	domainreservation "staymarket/internal/domain/reservation"
	"staymarket/internal/domain/shared/fault"
)

const getReservationKey = "reservation.get"

type GetReservationQuery struct {
	ReservationID string
}

func (q GetReservationQuery) Key() string { return getReservationKey }

type ReservationView struct {
	ReservationID    string                  `json:"reservation_id"`
	ConfirmationCode string                  `json:"confirmation_code"`
	PropertyID       string                  `json:"property_id"`
	GuestID          string                  `json:"guest_id"`
	CheckIn          time.Time               `json:"check_in"`
	CheckOut         time.Time               `json:"check_out"`
	Adults           int                     `json:"adults"`
	Children         int                     `json:"children"`
	State            string                  `json:"state"`
	Payment          string                  `json:"payment"`
	Source           string                  `json:"source"`
	Channel          string                  `json:"channel,omitempty"`
	Price            domainpricing.Breakdown `json:"price"`
	CancelReason     string                  `json:"cancel_reason,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
}

type GetReservationHandler struct {
	UoWFactory uow.Factory
}

func (h *GetReservationHandler) Handle(ctx context.Context, q GetReservationQuery) (ReservationView, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		if h.UoWFactory == nil {
			return ReservationView{}, uow.ErrUnitOfWorkMissing
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
		if err != nil {
			return ReservationView{}, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		defer unit.Rollback(ctx)
	}

	res, err := unit.Reservations().ByID(ctx, domainreservation.ReservationID(q.ReservationID))
	if err != nil {
		if errors.Is(err, domainreservation.ErrNotFound) {
			return ReservationView{}, fault.New(fault.NotFound, "reservation not found")
		}
		return ReservationView{}, err
	}
	return ReservationView{
		ReservationID:    string(res.ID),
		ConfirmationCode: res.ConfirmationCode,
		PropertyID:       string(res.PropertyID),
		GuestID:          res.GuestID,
		CheckIn:          res.Range.CheckIn,
		CheckOut:         res.Range.CheckOut,
		Adults:           res.Guests.Adults,
		Children:         res.Guests.Children,
		State:            string(res.State),
		Payment:          string(res.Payment),
		Source:           string(res.Source.Kind),
		Channel:          res.Source.Channel,
		Price:            res.Price,
		CancelReason:     res.CancelReason,
		CreatedAt:        res.CreatedAt,
	}, nil
}

var _ queries.Handler[GetReservationQuery, ReservationView] = (*GetReservationHandler)(nil)
