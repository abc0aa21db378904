package mux

import (
	"github.com/pkg/errors"
)

var (
	// ErrNotHandled is returned by a Handler for kinds it does not serve.
	ErrNotHandled = errors.New("mux: not handled")

	// ErrConnectionFailure matches every error a session reports after
	// its connection has gone away.
	ErrConnectionFailure = errors.New("mux: connection failure")

	// ErrUnknownToken is the protocol defect of a reply whose token no
	// one is waiting for.
	ErrUnknownToken = errors.New("mux: reply for unknown token")
)

// FailureError is the error a session shuts down with. It matches
// ErrConnectionFailure and unwraps to the cause.
type FailureError struct {
	Cause error
}

func (e *FailureError) Error() string {
	return "mux: connection failure: " + e.Cause.Error()
}

func (e *FailureError) Unwrap() error {
	return e.Cause
}

func (e *FailureError) Is(target error) bool {
	return target == ErrConnectionFailure
}
