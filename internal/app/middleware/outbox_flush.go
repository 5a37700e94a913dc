package middleware

import (
	"context"

	"staymarket/internal/app/commands"
	"staymarket/internal/app/outbox"
)

// OutboxFlush asks the outbox to deliver pending records after a successful
// command. Stores backed by a polling worker ignore the hint.
func OutboxFlush(box outbox.Outbox) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := nextFn(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if box != nil {
				if flushErr := box.Flush(ctx); flushErr != nil {
					return nil, flushErr
				}
			}
			return res, nil
		})
	}
}
