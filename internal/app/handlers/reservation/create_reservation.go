package reservation

import (
	"context"
	"crypto/rand"
	"errors"
	"time"

	"github.com/google/uuid"

	"staymarket/internal/app/commands"
	"staymarket/internal/app/outbox"
	"staymarket/internal/app/uow"
	domaincalendar "staymarket/internal/domain/calendar"
	domainguest "staymarket/internal/domain/guest"
	domainquote "staymarket/internal/domain/quote"
	domainreservation "staymarket/internal/domain/reservation"
	"staymarket/internal/domain/shared/fault"
)

const createReservationKey = "reservation.create"

const (
	codeAlphabet            = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	codeLength              = 8
	maxCodeRetry            = 5
	defaultFreeCancellation = 48 * time.Hour
)

var ErrUnitOfWorkRequired = errors.New("reservation: unit of work required")

type CreateReservationCommand struct {
	CommandID      string
	IdemKey        string
	QuoteID        string
	GuestEmail     string
	GuestFullName  string
	GuestPhone     string
	SourceChannel  string
	SpecialRequest string
}

func (c CreateReservationCommand) Key() string            { return createReservationKey }
func (c CreateReservationCommand) IdempotencyKey() string { return c.IdemKey }
func (c CreateReservationCommand) ResultPrototype() any   { return &CreateReservationResult{} }

type CreateReservationResult struct {
	ReservationID    string    `json:"reservation_id"`
	ConfirmationCode string    `json:"confirmation_code"`
	State            string    `json:"state"`
	TotalAmount      int64     `json:"total_amount"`
	Currency         string    `json:"currency"`
	CheckIn          time.Time `json:"check_in"`
	CheckOut         time.Time `json:"check_out"`
}

// RefundTerms configures the policy snapshot frozen into each new
// reservation.
type RefundTerms struct {
	FreeCancellationWindow    time.Duration
	PenaltyPercent            int
	PostCheckInPenaltyPercent int
}

func DefaultRefundTerms() RefundTerms {
	return RefundTerms{
		FreeCancellationWindow:    defaultFreeCancellation,
		PenaltyPercent:            50,
		PostCheckInPenaltyPercent: 100,
	}
}

type CreateReservationHandler struct {
	UoWFactory uow.Factory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Terms      RefundTerms
}

// Handle converts an open quote into a pending reservation. The quote and
// the input are validated before anything is written, the calendar days are
// locked before the reservation row exists, and any failure past the lock
// hands the days back. A failed attempt therefore leaves no trace even on
// backends without real transactions, and a day-lock conflict leaves the
// quote open.
func (h *CreateReservationHandler) Handle(ctx context.Context, cmd CreateReservationCommand) (*CreateReservationResult, error) {
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

	q, err := unit.Quotes().ByID(ctx, domainquote.QuoteID(cmd.QuoteID))
	if err != nil {
		if errors.Is(err, domainquote.ErrNotFound) {
			return nil, fault.New(fault.NotFound, "quote not found")
		}
		return nil, err
	}
	switch {
	case q.Status == domainquote.QuoteConverted:
		return nil, fault.New(fault.QuoteAlreadyConverted, "quote was already converted to a reservation")
	case q.Status == domainquote.QuoteExpired || q.IsExpired(now):
		return nil, fault.New(fault.QuoteExpired, "quote has expired, request a new one")
	}

	email := domainguest.NormalizeEmail(cmd.GuestEmail)
	if email == "" {
		return nil, fault.New(fault.RuleViolation, "guest email is required")
	}

	source := domainreservation.DirectSource()
	if cmd.SourceChannel != "" {
		source, err = domainreservation.ChannelSource(cmd.SourceChannel)
		if err != nil {
			return nil, fault.Wrap(fault.RuleViolation, "invalid booking source", err)
		}
	}

	resID := domainreservation.ReservationID(cmd.CommandID)
	if resID == "" {
		resID = domainreservation.ReservationID(uuid.NewString())
	}

	// Days go first: losing the window costs nothing to undo because
	// nothing else has been written yet.
	if err := unit.Calendar().LockDays(ctx, q.PropertyID, q.Range.Dates(), string(resID)); err != nil {
		if errors.Is(err, domaincalendar.ErrDaysConflict) {
			return nil, fault.New(fault.Unavailable, "requested dates were booked by another reservation")
		}
		return nil, err
	}
	// Past this point a failure must hand the days back explicitly;
	// rollback alone does not undo them on backends without real
	// transactions.
	fail := func(cause error) (*CreateReservationResult, error) {
		if relErr := unit.Calendar().ReleaseDays(ctx, q.PropertyID, q.Range.Dates()); relErr != nil {
			return nil, errors.Join(cause, relErr)
		}
		return nil, cause
	}

	guest, err := h.resolveGuest(ctx, unit, q, email, cmd, now)
	if err != nil {
		return fail(err)
	}

	res, err := h.saveWithFreshCode(ctx, unit, domainreservation.CreateParams{
		ID:         resID,
		TenantID:   q.TenantID,
		PropertyID: q.PropertyID,
		QuoteID:    q.ID,
		GuestID:    string(guest.ID),
		Range:      q.Range,
		Guests:     q.Guests,
		Price:      q.Price,
		Source:     source,
		Policy:     h.policySnapshot(q, now),
		Now:        now,
	})
	if err != nil {
		return fail(err)
	}

	if err := q.Convert(string(res.ID), now); err != nil {
		switch {
		case errors.Is(err, domainquote.ErrAlreadyConverted):
			return fail(fault.New(fault.QuoteAlreadyConverted, "quote was already converted to a reservation"))
		case errors.Is(err, domainquote.ErrExpired):
			return fail(fault.New(fault.QuoteExpired, "quote has expired, request a new one"))
		default:
			return fail(err)
		}
	}
	if err := unit.Quotes().Save(ctx, q); err != nil {
		return fail(err)
	}

	pending := res.PendingEvents()
	res.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, pending); err != nil {
		return fail(err)
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}
	return &CreateReservationResult{
		ReservationID:    string(res.ID),
		ConfirmationCode: res.ConfirmationCode,
		State:            string(res.State),
		TotalAmount:      res.Price.GrandTotal.Amount,
		Currency:         res.Price.GrandTotal.Currency,
		CheckIn:          res.Range.CheckIn,
		CheckOut:         res.Range.CheckOut,
	}, nil
}

func (h *CreateReservationHandler) resolveGuest(ctx context.Context, unit uow.UnitOfWork, q *domainquote.Quote, email string, cmd CreateReservationCommand, now time.Time) (*domainguest.Guest, error) {
	guest, err := unit.Guests().ByEmail(ctx, q.TenantID, email)
	switch {
	case err == nil:
		return guest, nil
	case errors.Is(err, domainguest.ErrNotFound):
		guest, err = domainguest.NewGuest(domainguest.GuestID(uuid.NewString()), q.TenantID, email, cmd.GuestFullName, cmd.GuestPhone, now)
		if err != nil {
			return nil, err
		}
		if err := unit.Guests().Save(ctx, guest); err != nil {
			return nil, err
		}
		return guest, nil
	default:
		return nil, err
	}
}

// saveWithFreshCode mints a confirmation code and inserts the reservation.
// Codes are checked against the repository before the insert, so a collision
// regenerates with a fresh lookup instead of tripping the unique index and
// aborting the surrounding transaction. The index stays as the backstop for
// a concurrent race on the same code.
func (h *CreateReservationHandler) saveWithFreshCode(ctx context.Context, unit uow.UnitOfWork, params domainreservation.CreateParams) (*domainreservation.Reservation, error) {
	for attempt := 0; attempt < maxCodeRetry; attempt++ {
		code, err := newConfirmationCode()
		if err != nil {
			return nil, err
		}
		if _, err := unit.Reservations().ByCode(ctx, code); err == nil {
			continue
		} else if !errors.Is(err, domainreservation.ErrNotFound) {
			return nil, err
		}
		params.ConfirmationCode = code
		res, err := domainreservation.NewReservation(params)
		if err != nil {
			return nil, err
		}
		if err := unit.Reservations().Save(ctx, res); err != nil {
			if errors.Is(err, domainreservation.ErrDuplicateCode) {
				return nil, fault.Wrap(fault.Internal, "confirmation code raced a concurrent booking", err)
			}
			return nil, err
		}
		return res, nil
	}
	return nil, fault.New(fault.Internal, "could not allocate a unique confirmation code")
}

func (h *CreateReservationHandler) policySnapshot(q *domainquote.Quote, now time.Time) domainreservation.RefundPolicySnapshot {
	terms := h.Terms
	if terms == (RefundTerms{}) {
		terms = DefaultRefundTerms()
	}
	free := q.Range.CheckIn.Add(-terms.FreeCancellationWindow)
	if free.Before(now) {
		free = now
	}
	return domainreservation.RefundPolicySnapshot{
		FreeCancellationUntil:     free,
		PenaltyPercent:            terms.PenaltyPercent,
		PostCheckInPenaltyPercent: terms.PostCheckInPenaltyPercent,
	}
}

func newConfirmationCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

var _ commands.Handler[CreateReservationCommand, *CreateReservationResult] = (*CreateReservationHandler)(nil)
