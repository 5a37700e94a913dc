package availability

import (
	"context"
	"errors"
	"time"

	appavailability "staymarket/internal/app/availability"
	"staymarket/internal/app/queries"
	"staymarket/internal/app/uow"
	domainproperty "staymarket/internal/domain/property"
	domainrange "staymarket/internal/domain/shared/daterange"
	"staymarket/internal/domain/shared/fault"
	"staymarket/internal/domain/shared/stay"
)

const checkAvailabilityKey = "availability.check"

type CheckAvailabilityQuery struct {
	PropertyID string
	CheckIn    time.Time
	CheckOut   time.Time
	Adults     int
	Children   int
}

func (q CheckAvailabilityQuery) Key() string { return checkAvailabilityKey }

type AlternativeWindow struct {
	CheckIn        time.Time `json:"check_in"`
	CheckOut       time.Time `json:"check_out"`
	EstimatedTotal int64     `json:"estimated_total"`
	Currency       string    `json:"currency"`
}

type CheckAvailabilityResult struct {
	Available    bool                `json:"available"`
	Reason       string              `json:"reason,omitempty"`
	Alternatives []AlternativeWindow `json:"alternatives,omitempty"`
}

type CheckAvailabilityHandler struct {
	UoWFactory uow.Factory
}

func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (CheckAvailabilityResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		if h.UoWFactory == nil {
			return CheckAvailabilityResult{}, uow.ErrUnitOfWorkMissing
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
		if err != nil {
			return CheckAvailabilityResult{}, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		defer unit.Rollback(ctx)
	}

	dr, err := domainrange.New(q.CheckIn, q.CheckOut)
	if err != nil {
		return CheckAvailabilityResult{}, fault.Wrap(fault.InvalidDates, "invalid stay window", err)
	}

	prop, err := unit.Properties().ByID(ctx, domainproperty.PropertyID(q.PropertyID))
	if err != nil {
		if errors.Is(err, domainproperty.ErrNotFound) {
			return CheckAvailabilityResult{}, fault.New(fault.NotFound, "property not found")
		}
		return CheckAvailabilityResult{}, err
	}

	res, err := appavailability.Check(ctx, unit.Calendar(), prop, dr, stay.GuestCounts{Adults: q.Adults, Children: q.Children}, time.Now())
	if err != nil {
		return CheckAvailabilityResult{}, err
	}
	out := CheckAvailabilityResult{Available: res.Available}
	if res.Fault != nil {
		out.Reason = res.Fault.Reason
	}
	for _, alt := range res.Alternatives {
		out.Alternatives = append(out.Alternatives, AlternativeWindow{
			CheckIn:        alt.Range.CheckIn,
			CheckOut:       alt.Range.CheckOut,
			EstimatedTotal: alt.EstimatedTotal.Amount,
			Currency:       alt.EstimatedTotal.Currency,
		})
	}
	return out, nil
}

var _ queries.Handler[CheckAvailabilityQuery, CheckAvailabilityResult] = (*CheckAvailabilityHandler)(nil)
