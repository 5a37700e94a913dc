package commands

import (
	"context"
	"errors"
)

var (
	ErrHandlerNotFound = errors.New("commands: handler not found")
	ErrInvalidCommand  = errors.New("commands: invalid command for handler")
	ErrResultType      = errors.New("commands: result type mismatch")
	ErrNilBus          = errors.New("commands: nil bus")
)

// Command is a write intent: generate a quote, create a reservation,
// cancel one. The key routes it to its handler.
type Command interface {
	Key() string
}

// Handler executes a single command type.
type Handler[C Command, R any] interface {
	Handle(ctx context.Context, cmd C) (R, error)
}

// Bus routes commands to handlers, usually through a middleware chain.
type Bus interface {
	Dispatch(ctx context.Context, cmd Command) (any, error)
}

// Dispatch sends cmd through the bus and asserts the result back to R.
// Handlers that return no payload yield the zero value.
func Dispatch[C Command, R any](ctx context.Context, bus Bus, cmd C) (R, error) {
	var zero R
	if bus == nil {
		return zero, ErrNilBus
	}
	raw, err := bus.Dispatch(ctx, cmd)
	if err != nil || raw == nil {
		return zero, err
	}
	result, ok := raw.(R)
	if !ok {
		return zero, ErrResultType
	}
	return result, nil
}
