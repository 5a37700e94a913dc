package events

import "time"

// DomainEvent is a fact an aggregate emits after a state change, like a
// quote being generated or a reservation cancelled. Events leave the
// process through the outbox, never directly.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// EventRecorder is embedded in aggregates. It buffers emitted events
// until the handler drains them, after the aggregate has been saved.
type EventRecorder struct {
	pending []DomainEvent
}

func (r *EventRecorder) Record(evs ...DomainEvent) {
	for _, ev := range evs {
		if ev != nil {
			r.pending = append(r.pending, ev)
		}
	}
}

// PendingEvents returns a copy; the buffer stays intact until
// ClearEvents.
func (r *EventRecorder) PendingEvents() []DomainEvent {
	if len(r.pending) == 0 {
		return nil
	}
	out := make([]DomainEvent, len(r.pending))
	copy(out, r.pending)
	return out
}

func (r *EventRecorder) ClearEvents() {
	r.pending = nil
}
