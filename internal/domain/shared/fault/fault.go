// Package fault carries the error taxonomy that crosses service boundaries.
// Domain packages keep their own sentinel errors; handlers wrap them into a
// Fault so the transport layer can map kinds to status codes without string
// matching.
package fault

import (
	"errors"
	"fmt"
)

type Kind string

const (
	NotFound               Kind = "NOT_FOUND"
	InvalidDates           Kind = "INVALID_DATES"
	RuleViolation          Kind = "RULE_VIOLATION"
	Unavailable            Kind = "UNAVAILABLE"
	ExternalUnavailable    Kind = "EXTERNAL_UNAVAILABLE"
	ExternalAdapterFailure Kind = "EXTERNAL_ADAPTER_FAILURE"
	InvalidStateTransition Kind = "INVALID_STATE_TRANSITION"
	QuoteExpired           Kind = "QUOTE_EXPIRED"
	QuoteAlreadyConverted  Kind = "QUOTE_ALREADY_CONVERTED"
	Internal               Kind = "INTERNAL"
)

type Fault struct {
	Kind   Kind
	Reason string
	Err    error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Reason, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Reason)
}

func (f *Fault) Unwrap() error { return f.Err }

func New(kind Kind, reason string) *Fault {
	return &Fault{Kind: kind, Reason: reason}
}

func Newf(kind Kind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, reason string, err error) *Fault {
	return &Fault{Kind: kind, Reason: reason, Err: err}
}

// KindOf extracts the taxonomy kind, defaulting to Internal for plain errors.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return Internal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
