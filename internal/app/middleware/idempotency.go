package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"staymarket/internal/app/commands"
	"staymarket/internal/domain/shared/fault"
)

// IdempotentCommand marks commands that may be retried by the caller,
// like a booking request resent after a timeout. ResultPrototype returns
// a pointer the stored payload is decoded into on replay.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any
}

// IdempotencyRecord is the stored outcome of a keyed command: either the
// JSON payload of its result or the error text. ErrorKind keeps the fault
// taxonomy across replays so a replayed conflict still maps to a conflict.
type IdempotencyRecord struct {
	Key        string
	Payload    []byte
	Error      string
	ErrorKind  string
	OccurredAt time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

var errNoPrototype = errors.New("middleware: idempotent command returned nil prototype")

// Idempotency short-circuits repeated keys. The first execution records
// its outcome; retries with the same key get that outcome back without
// touching the handler, errors included. A retried create-reservation
// must not book the days twice, and must not succeed where the original
// failed.
func Idempotency(store IdempotencyStore) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			keyed, ok := cmd.(IdempotentCommand)
			if !ok || keyed.IdempotencyKey() == "" {
				return nextFn(ctx, cmd)
			}
			key := keyed.IdempotencyKey()

			if rec, found, err := store.Get(ctx, key); err != nil {
				return nil, err
			} else if found {
				return replay(keyed, rec)
			}

			result, execErr := nextFn(ctx, cmd)
			rec := IdempotencyRecord{Key: key, OccurredAt: time.Now().UTC()}
			if execErr != nil {
				rec.Error = execErr.Error()
				var f *fault.Fault
				if errors.As(execErr, &f) {
					rec.ErrorKind = string(f.Kind)
					rec.Error = f.Reason
				}
			} else if result != nil {
				payload, err := json.Marshal(result)
				if err != nil {
					return nil, err
				}
				rec.Payload = payload
			}
			if err := store.Save(ctx, rec); err != nil {
				if execErr != nil {
					return nil, errors.Join(execErr, err)
				}
				return nil, err
			}
			return result, execErr
		})
	}
}

func replay(cmd IdempotentCommand, rec IdempotencyRecord) (any, error) {
	if rec.ErrorKind != "" {
		return nil, fault.New(fault.Kind(rec.ErrorKind), rec.Error)
	}
	if rec.Error != "" {
		return nil, errors.New(rec.Error)
	}
	proto := cmd.ResultPrototype()
	if proto == nil {
		return nil, errNoPrototype
	}
	if err := json.Unmarshal(rec.Payload, proto); err != nil {
		return nil, err
	}
	if rv := reflect.ValueOf(proto); rv.Kind() == reflect.Ptr && rv.IsNil() {
		return nil, errNoPrototype
	}
	return proto, nil
}
