package reservation

import (
	"context"
	"errors"
	"strings"
	"time"

	"staymarket/internal/domain/pricing"
	"staymarket/internal/domain/property"
	"staymarket/internal/domain/quote"
	"staymarket/internal/domain/shared/daterange"
	"staymarket/internal/domain/shared/events"
	"staymarket/internal/domain/shared/money"
	"staymarket/internal/domain/shared/stay"
	"staymarket/internal/domain/tenant"
)

var (
	ErrNotFound          = errors.New("reservation: not found")
	ErrInvalidTransition = errors.New("reservation: invalid state transition")
	ErrGuestRequired     = errors.New("reservation: guest is required")
	ErrCodeRequired      = errors.New("reservation: confirmation code is required")
	// ErrDuplicateCode signals a unique-constraint violation on the
	// confirmation code; callers regenerate and retry.
	ErrDuplicateCode = errors.New("reservation: confirmation code already in use")
)

type ReservationID string

type ReservationState string

const (
	StatePending   ReservationState = "PENDING"
	StateConfirmed ReservationState = "CONFIRMED"
	StateCancelled ReservationState = "CANCELLED"
	StateCompleted ReservationState = "COMPLETED"
)

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "UNPAID"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

type SourceKind string

const (
	SourceDirect  SourceKind = "DIRECT"
	SourceChannel SourceKind = "CHANNEL"
)

// Source is a closed tagged variant: direct bookings carry no channel,
// channel bookings carry the external channel identifier.
type Source struct {
	Kind    SourceKind
	Channel string
}

func DirectSource() Source {
	return Source{Kind: SourceDirect}
}

func ChannelSource(channel string) (Source, error) {
	if strings.TrimSpace(channel) == "" {
		return Source{}, errors.New("reservation: channel identifier required")
	}
	return Source{Kind: SourceChannel, Channel: strings.TrimSpace(channel)}, nil
}

func (s Source) Valid() bool {
	switch s.Kind {
	case SourceDirect:
		return s.Channel == ""
	case SourceChannel:
		return s.Channel != ""
	default:
		return false
	}
}

// Reservation is a confirmed or pending booking. Its pricing snapshot is
// copied from the quote at creation and never recomputed.
type Reservation struct {
	ID               ReservationID
	ConfirmationCode string
	TenantID         tenant.TenantID
	PropertyID       property.PropertyID
	QuoteID          quote.QuoteID
	GuestID          string
	Range            daterange.DateRange
	Guests           stay.GuestCounts
	Price            pricing.Breakdown
	State            ReservationState
	Payment          PaymentStatus
	PaymentRef       string
	Source           Source
	Policy           RefundPolicySnapshot
	CancelReason     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Version          int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ReservationID) (*Reservation, error)
	// ByCode looks a reservation up by confirmation code, returning
	// ErrNotFound when the code is free.
	ByCode(ctx context.Context, code string) (*Reservation, error)
	// Save persists the aggregate; it returns ErrDuplicateCode when the
	// confirmation code collides with an existing reservation.
	Save(ctx context.Context, r *Reservation) error
	ListByGuest(ctx context.Context, guestID string) ([]*Reservation, error)
}

type CreateParams struct {
	ID               ReservationID
	ConfirmationCode string
	TenantID         tenant.TenantID
	PropertyID       property.PropertyID
	QuoteID          quote.QuoteID
	GuestID          string
	Range            daterange.DateRange
	Guests           stay.GuestCounts
	Price            pricing.Breakdown
	Source           Source
	Policy           RefundPolicySnapshot
	Now              time.Time
}

func NewReservation(params CreateParams) (*Reservation, error) {
	if params.ID == "" {
		return nil, errors.New("reservation: id is required")
	}
	if params.ConfirmationCode == "" {
		return nil, ErrCodeRequired
	}
	if params.GuestID == "" {
		return nil, ErrGuestRequired
	}
	if !params.Guests.Valid() {
		return nil, errors.New("reservation: at least one adult required")
	}
	if !params.Source.Valid() {
		return nil, errors.New("reservation: invalid source")
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	now := params.Now.UTC()
	r := &Reservation{
		ID:               params.ID,
		ConfirmationCode: params.ConfirmationCode,
		TenantID:         params.TenantID,
		PropertyID:       params.PropertyID,
		QuoteID:          params.QuoteID,
		GuestID:          params.GuestID,
		Range:            params.Range,
		Guests:           params.Guests,
		Price:            params.Price.Copy(),
		State:            StatePending,
		Payment:          PaymentUnpaid,
		Source:           params.Source,
		Policy:           params.Policy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	r.Record(ReservationCreated{
		ReservationID:    r.ID,
		ConfirmationCode: r.ConfirmationCode,
		PropertyID:       r.PropertyID,
		GuestID:          r.GuestID,
		Range:            r.Range,
		Total:            r.Price.GrandTotal,
		At:               now,
	})
	return r, nil
}

// Confirm transitions pending -> confirmed recording full payment. The
// calendar stays locked from creation; no re-lock happens here.
func (r *Reservation) Confirm(paymentRef string, now time.Time) error {
	if r.State != StatePending {
		return ErrInvalidTransition
	}
	if paymentRef == "" {
		return errors.New("reservation: payment reference required")
	}
	r.State = StateConfirmed
	r.Payment = PaymentPaid
	r.PaymentRef = paymentRef
	r.UpdatedAt = now.UTC()
	r.Record(ReservationConfirmed{ReservationID: r.ID, PaymentRef: paymentRef, Total: r.Price.GrandTotal, At: r.UpdatedAt})
	return nil
}

// Cancel transitions pending|confirmed -> cancelled. Repeating cancel on an
// already-cancelled reservation is rejected to surface caller bugs. The
// refund amount is reported; executing it belongs to the payment
// collaborator.
func (r *Reservation) Cancel(reason string, now time.Time) (money.Money, error) {
	switch r.State {
	case StatePending, StateConfirmed:
	default:
		return money.Money{}, ErrInvalidTransition
	}
	refund := money.Money{Currency: r.Price.Currency}
	if r.Payment == PaymentPaid {
		refund = r.Policy.Refund(r.Price.GrandTotal, now, r.Range.CheckIn)
		r.Payment = PaymentRefunded
	}
	r.State = StateCancelled
	r.CancelReason = reason
	r.UpdatedAt = now.UTC()
	r.Record(ReservationCancelled{ReservationID: r.ID, PropertyID: r.PropertyID, Range: r.Range, Refund: refund, Reason: reason, At: r.UpdatedAt})
	return refund, nil
}

// Complete transitions confirmed -> completed after the stay ends.
func (r *Reservation) Complete(now time.Time) error {
	if r.State != StateConfirmed {
		return ErrInvalidTransition
	}
	r.State = StateCompleted
	r.UpdatedAt = now.UTC()
	r.Record(ReservationCompleted{ReservationID: r.ID, At: r.UpdatedAt})
	return nil
}

// HoldsCalendar reports whether the reservation's days must be booked in
// the calendar ledger.
func (r *Reservation) HoldsCalendar() bool {
	return r.State == StatePending || r.State == StateConfirmed
}
