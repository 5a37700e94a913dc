package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Worker polls the outbox and publishes each claimed record as a
// CloudEvents 1.0 envelope. A failed publish reschedules the record on
// the backoff ladder; delivery is therefore at-least-once and consumers
// must tolerate duplicates.
type Worker struct {
	Store       *Store
	Producer    Producer
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
}

// cloudEvent is the wire envelope. Data carries the domain event JSON
// exactly as the encoder stored it.
type cloudEvent struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	Data            json.RawMessage `json:"data"`
	TraceParent     string          `json:"traceparent,omitempty"`
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	interval := w.Interval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drainOne(ctx); err != nil {
				return err
			}
		}
	}
}

// drainOne claims at most one record. Publish and envelope failures are
// recorded on the document and retried later; only storage errors stop
// the worker.
func (w *Worker) drainOne(ctx context.Context) error {
	doc, err := w.Store.Claim(ctx, w.workerID())
	if err != nil || doc == nil {
		return err
	}
	payload, headers, err := w.envelope(doc)
	if err != nil {
		_ = w.Store.MarkFailed(ctx, doc.ID, w.nextAttempt(doc.Attempts), err.Error())
		return nil
	}
	if err := w.Producer.Publish(ctx, w.topicFor(doc.Name), doc.Aggregate, payload, headers); err != nil {
		_ = w.Store.MarkFailed(ctx, doc.ID, w.nextAttempt(doc.Attempts), err.Error())
		return nil
	}
	return w.Store.MarkSent(ctx, doc.ID)
}

func (w *Worker) envelope(doc *EventDocument) ([]byte, map[string]string, error) {
	if !json.Valid(doc.Payload) {
		return nil, nil, errors.New("outbox: stored payload is not valid JSON")
	}
	source := w.Source
	if source == "" {
		source = "app://staymarket"
	}
	evt := cloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.NewString(),
		Type:            doc.Name + ".v1",
		Source:          source,
		Time:            doc.OccurredAt,
		DataContentType: "application/json",
		Data:            json.RawMessage(doc.Payload),
		TraceParent:     doc.Headers["traceparent"],
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{"content-type": "application/cloudevents+json"}
	for k, v := range doc.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

// topicFor groups events by aggregate: reservation.created and
// reservation.cancelled both land on reservation.events.v1.
func (w *Worker) topicFor(name string) string {
	aggregate, _, found := strings.Cut(name, ".")
	if !found {
		aggregate = name
	}
	return w.TopicPrefix + aggregate + ".events.v1"
}

func (w *Worker) workerID() string {
	if w.ID != "" {
		return w.ID
	}
	return uuid.NewString()
}

func (w *Worker) nextAttempt(attempts int) time.Time {
	switch {
	case len(w.Backoff) == 0:
		return time.Now().Add(5 * time.Second)
	case attempts >= len(w.Backoff):
		return time.Now().Add(w.Backoff[len(w.Backoff)-1])
	default:
		return time.Now().Add(w.Backoff[attempts])
	}
}
