package middleware_test

import (
	"context"
	"errors"
	"testing"

	"staymarket/internal/app/commands"
	"staymarket/internal/app/middleware"
	"staymarket/internal/domain/shared/fault"
	"staymarket/internal/infra/storage/memory"
)

type echoCommand struct {
	Idem  string
	Value string
}

func (c echoCommand) Key() string            { return "test.echo" }
func (c echoCommand) IdempotencyKey() string { return c.Idem }
func (c echoCommand) ResultPrototype() any   { return &echoResult{} }

type echoResult struct {
	Value string `json:"value"`
}

type echoHandler struct {
	calls int
	err   error
}

func (h *echoHandler) Handle(ctx context.Context, cmd echoCommand) (*echoResult, error) {
	h.calls++
	if h.err != nil {
		return nil, h.err
	}
	return &echoResult{Value: cmd.Value}, nil
}

func newEchoBus(h *echoHandler) commands.Bus {
	base := commands.NewInMemoryBus()
	commands.RegisterHandler(base, "test.echo", h)
	return middleware.ChainCommands(base, middleware.Idempotency(memory.NewIdempotencyStore()))
}

func TestIdempotencyReplaysResult(t *testing.T) {
	h := &echoHandler{}
	bus := newEchoBus(h)
	ctx := context.Background()

	first, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{Idem: "key-1", Value: "hello"})
	if err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	// Same key replays the stored result even when the payload differs.
	second, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{Idem: "key-1", Value: "changed"})
	if err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if h.calls != 1 {
		t.Errorf("handler calls: got %d, want 1", h.calls)
	}
	if first.Value != "hello" || second.Value != "hello" {
		t.Errorf("results: first %q, second %q, want both %q", first.Value, second.Value, "hello")
	}
}

func TestIdempotencyReplaysError(t *testing.T) {
	h := &echoHandler{err: errors.New("quote not found")}
	bus := newEchoBus(h)
	ctx := context.Background()

	if _, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{Idem: "key-1"}); err == nil {
		t.Fatal("expected error from first dispatch")
	}
	_, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{Idem: "key-1"})
	if err == nil || err.Error() != "quote not found" {
		t.Fatalf("replayed error: got %v", err)
	}
	if h.calls != 1 {
		t.Errorf("handler calls: got %d, want 1", h.calls)
	}
}

func TestIdempotencyReplayedFaultKeepsKind(t *testing.T) {
	h := &echoHandler{err: fault.New(fault.Unavailable, "requested dates were booked by another reservation")}
	bus := newEchoBus(h)
	ctx := context.Background()

	if _, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{Idem: "key-1"}); !fault.IsKind(err, fault.Unavailable) {
		t.Fatalf("first dispatch: got %v", err)
	}
	// The replay must carry the same kind, or a retried booking conflict
	// would surface as an internal error.
	_, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{Idem: "key-1"})
	if !fault.IsKind(err, fault.Unavailable) {
		t.Fatalf("replayed fault: got kind %s (%v), want %s", fault.KindOf(err), err, fault.Unavailable)
	}
	if err.Error() != "UNAVAILABLE: requested dates were booked by another reservation" {
		t.Errorf("replayed message: %q", err.Error())
	}
	if h.calls != 1 {
		t.Errorf("handler calls: got %d, want 1", h.calls)
	}
}

func TestIdempotencyEmptyKeyBypassesStore(t *testing.T) {
	h := &echoHandler{}
	bus := newEchoBus(h)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{Value: "x"}); err != nil {
			t.Fatalf("dispatch %d: %v", i, err)
		}
	}
	if h.calls != 2 {
		t.Errorf("handler calls: got %d, want 2 without a key", h.calls)
	}
}

func TestIdempotencyDistinctKeysExecuteIndependently(t *testing.T) {
	h := &echoHandler{}
	bus := newEchoBus(h)
	ctx := context.Background()

	for _, key := range []string{"key-1", "key-2"} {
		if _, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{Idem: key, Value: key}); err != nil {
			t.Fatalf("dispatch %s: %v", key, err)
		}
	}
	if h.calls != 2 {
		t.Errorf("handler calls: got %d, want 2", h.calls)
	}
}
