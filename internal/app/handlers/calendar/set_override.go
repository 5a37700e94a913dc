package calendar

import (
	"context"
	"errors"
	"time"

	"staymarket/internal/app/commands"
	"staymarket/internal/app/uow"
	domainproperty "staymarket/internal/domain/property"
	domainrange "staymarket/internal/domain/shared/daterange"
	"staymarket/internal/domain/shared/fault"
)

const setOverrideKey = "calendar.set_override"

var ErrUnitOfWorkRequired = errors.New("calendar: unit of work required")

// SetOverrideCommand lets a host pin a nightly rate or a min-nights rule to
// a single date. Zero values clear the respective override.
type SetOverrideCommand struct {
	PropertyID        string
	Date              time.Time
	PriceOverride     int64
	MinNightsOverride int
}

func (c SetOverrideCommand) Key() string { return setOverrideKey }

type SetOverrideResult struct {
	PropertyID string    `json:"property_id"`
	Date       time.Time `json:"date"`
}

type SetOverrideHandler struct {
	UoWFactory uow.Factory
}

func (h *SetOverrideHandler) Handle(ctx context.Context, cmd SetOverrideCommand) (*SetOverrideResult, error) {
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

	if cmd.PriceOverride < 0 {
		return nil, fault.New(fault.RuleViolation, "price override cannot be negative")
	}
	if cmd.MinNightsOverride < 0 {
		return nil, fault.New(fault.RuleViolation, "min nights override cannot be negative")
	}

	propID := domainproperty.PropertyID(cmd.PropertyID)
	if _, err := unit.Properties().ByID(ctx, propID); err != nil {
		if errors.Is(err, domainproperty.ErrNotFound) {
			return nil, fault.New(fault.NotFound, "property not found")
		}
		return nil, err
	}

	date := domainrange.Day(cmd.Date)
	if err := unit.Calendar().SetOverride(ctx, propID, date, cmd.PriceOverride, cmd.MinNightsOverride); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}
	return &SetOverrideResult{PropertyID: cmd.PropertyID, Date: date}, nil
}

var _ commands.Handler[SetOverrideCommand, *SetOverrideResult] = (*SetOverrideHandler)(nil)
