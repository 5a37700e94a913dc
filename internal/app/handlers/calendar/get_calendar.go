package calendar

import (
	"context"
	"errors"
	"time"

	"staymarket/internal/app/queries"
	"staymarket/internal/app/uow"
	domainproperty "staymarket/internal/domain/property"
	domainrange "staymarket/internal/domain/shared/daterange"
	"staymarket/internal/domain/shared/fault"
)

const getCalendarKey = "calendar.get"

type GetCalendarQuery struct {
	PropertyID string
	From       time.Time
	To         time.Time
}

func (q GetCalendarQuery) Key() string { return getCalendarKey }

type DayView struct {
	Date              time.Time `json:"date"`
	Status            string    `json:"status"`
	PriceOverride     int64     `json:"price_override,omitempty"`
	MinNightsOverride int       `json:"min_nights_override,omitempty"`
}

type GetCalendarResult struct {
	PropertyID string    `json:"property_id"`
	Days       []DayView `json:"days"`
}

type GetCalendarHandler struct {
	UoWFactory uow.Factory
}

// Handle returns the stored calendar rows for the window. Dates without a
// row are available at the base rate and are not materialized here.
func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (GetCalendarResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		if h.UoWFactory == nil {
			return GetCalendarResult{}, uow.ErrUnitOfWorkMissing
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
		if err != nil {
			return GetCalendarResult{}, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		defer unit.Rollback(ctx)
	}

	dr, err := domainrange.New(q.From, q.To)
	if err != nil {
		return GetCalendarResult{}, fault.Wrap(fault.InvalidDates, "invalid calendar window", err)
	}

	propID := domainproperty.PropertyID(q.PropertyID)
	if _, err := unit.Properties().ByID(ctx, propID); err != nil {
		if errors.Is(err, domainproperty.ErrNotFound) {
			return GetCalendarResult{}, fault.New(fault.NotFound, "property not found")
		}
		return GetCalendarResult{}, err
	}

	days, err := unit.Calendar().Days(ctx, propID, dr)
	if err != nil {
		return GetCalendarResult{}, err
	}

	out := GetCalendarResult{PropertyID: q.PropertyID}
	for _, d := range days {
		out.Days = append(out.Days, DayView{
			Date:              d.Date,
			Status:            string(d.Status),
			PriceOverride:     d.PriceOverride,
			MinNightsOverride: d.MinNightsOverride,
		})
	}
	return out, nil
}

var _ queries.Handler[GetCalendarQuery, GetCalendarResult] = (*GetCalendarHandler)(nil)
