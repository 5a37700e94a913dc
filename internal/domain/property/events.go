package property

import (
	"time"

	"staymarket/internal/domain/tenant"
)

type PropertyCreated struct {
	PropertyID PropertyID
	TenantID   tenant.TenantID
	At         time.Time
}

func (e PropertyCreated) EventName() string     { return "property.created" }
func (e PropertyCreated) AggregateID() string   { return string(e.PropertyID) }
func (e PropertyCreated) OccurredAt() time.Time { return e.At }

type PropertyActivated struct {
	PropertyID PropertyID
	At         time.Time
}

func (e PropertyActivated) EventName() string     { return "property.activated" }
func (e PropertyActivated) AggregateID() string   { return string(e.PropertyID) }
func (e PropertyActivated) OccurredAt() time.Time { return e.At }

type PropertyDeactivated struct {
	PropertyID PropertyID
	At         time.Time
}

func (e PropertyDeactivated) EventName() string     { return "property.deactivated" }
func (e PropertyDeactivated) AggregateID() string   { return string(e.PropertyID) }
func (e PropertyDeactivated) OccurredAt() time.Time { return e.At }
