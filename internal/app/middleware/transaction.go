package middleware

import (
	"context"

	"staymarket/internal/app/commands"
	"staymarket/internal/app/uow"
)

// TxOptionsProvider picks transaction options per command.
type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// contextInjector is implemented by units of work that need their
// transaction carried inside the context, like Mongo sessions.
type contextInjector interface {
	InjectContext(context.Context) context.Context
}

// Transaction opens one unit of work around each dispatched command. The
// unit rides in the context, so the handler and every repository it
// touches share a single transaction. Any handler error aborts it.
func Transaction(factory uow.Factory, optsFor TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			var opts uow.TxOptions
			if optsFor != nil {
				opts = optsFor(cmd)
			}
			unit, err := factory.Begin(ctx, opts)
			if err != nil {
				return nil, err
			}
			txCtx := ctx
			if injector, ok := unit.(contextInjector); ok {
				txCtx = injector.InjectContext(txCtx)
			}
			txCtx = uow.ContextWithUnitOfWork(txCtx, unit)

			done := false
			defer func() {
				// Covers handler errors and panics alike.
				if !done {
					_ = unit.Rollback(txCtx)
				}
			}()
			result, err := nextFn(txCtx, cmd)
			if err != nil {
				return nil, err
			}
			if err := unit.Commit(txCtx); err != nil {
				done = true
				return nil, err
			}
			done = true
			return result, nil
		})
	}
}
