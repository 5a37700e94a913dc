package middleware

import (
	"context"

	"staymarket/internal/app/commands"
	"staymarket/internal/app/queries"
)

// CommandMiddleware decorates a command bus. The write pipeline wraps
// idempotency around the transaction, and the transaction around the
// outbox flush, so a replayed command never reopens a unit of work.
type CommandMiddleware func(next commands.Bus) commands.Bus

// QueryMiddleware decorates a query bus.
type QueryMiddleware func(next queries.Bus) queries.Bus

// ChainCommands wraps base so that mws[0] runs outermost.
func ChainCommands(base commands.Bus, mws ...CommandMiddleware) commands.Bus {
	bus := base
	for i := len(mws) - 1; i >= 0; i-- {
		bus = mws[i](bus)
	}
	return bus
}

// ChainQueries wraps base so that mws[0] runs outermost.
func ChainQueries(base queries.Bus, mws ...QueryMiddleware) queries.Bus {
	bus := base
	for i := len(mws) - 1; i >= 0; i-- {
		bus = mws[i](bus)
	}
	return bus
}

// commandFunc lets a closure stand in for a commands.Bus.
type commandFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f commandFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	return f(ctx, cmd)
}

func wrapCommand(next commands.Bus) commandFunc {
	return func(ctx context.Context, cmd commands.Command) (any, error) {
		return next.Dispatch(ctx, cmd)
	}
}
