package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"staymarket/internal/domain/shared/events"
)

// EventRecord is the persisted form of a domain event, written in the
// same transaction as the aggregate change that raised it.
type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

// Outbox accepts records inside the business transaction. Delivery to
// the broker happens later, from the polling worker.
type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	// Flush is for stores without a background publisher; the Mongo store
	// ignores it.
	Flush(ctx context.Context) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

// RecordDomainEvents encodes every pending aggregate event into the
// outbox. A nil outbox silently drops events, which the in-memory test
// fixtures rely on.
func RecordDomainEvents(ctx context.Context, box Outbox, encoder EventEncoder, evs []events.DomainEvent) error {
	if box == nil || len(evs) == 0 {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	for _, ev := range evs {
		rec, err := encoder.Encode(ev)
		if err != nil {
			return err
		}
		if err := box.Add(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// JSONEventEncoder marshals the event struct as-is and keys the record
// on the aggregate so consumers see one aggregate's events in order.
type JSONEventEncoder struct {
	NewID func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, err
	}
	newID := e.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return EventRecord{
		ID:         newID(),
		Name:       ev.EventName(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt(),
		Aggregate:  ev.AggregateID(),
		Headers:    map[string]string{},
	}, nil
}
