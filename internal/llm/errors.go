package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a backend failure.
type Kind int

const (
	// KindUnavailable covers transport errors, timeouts and non-2xx responses.
	KindUnavailable Kind = iota + 1
	// KindMalformed means the backend answered but the expected text field is missing.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindMalformed:
		return "malformed response"
	default:
		return "unknown"
	}
}

// BackendError is the failure value of every Generator and Summarizer call.
type BackendError struct {
	Backend string
	Kind    Kind
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend %s: %v", e.Backend, e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline rather than a refusal.
func (e *BackendError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// IsKind reports whether err carries a BackendError of the given kind.
func IsKind(err error, kind Kind) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Kind == kind
}

func unavailable(backend string, err error) error {
	return &BackendError{Backend: backend, Kind: KindUnavailable, Err: err}
}

func malformed(backend string, err error) error {
	return &BackendError{Backend: backend, Kind: KindMalformed, Err: err}
}
