package chain

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout matches any FaultError caused by a deadline or connection
	// failure.
	ErrTimeout = errors.New("rpc timeout")

	ErrBlockNotFound = errors.New("block not found")

	// ErrMalformed marks a transaction a handler could not decode.
	ErrMalformed = errors.New("malformed transaction")
)

// FaultError is an RPC failure that aborts the current run.
type FaultError struct {
	Network  string
	Method   string
	Endpoint string
	Timeout  bool
	Err      error
}

func (e *FaultError) Error() string {
	kind := "rpc fault"
	if e.Timeout {
		kind = "rpc timeout"
	}
	return fmt.Sprintf("%s: %s %s via %s: %v", kind, e.Network, e.Method, e.Endpoint, e.Err)
}

func (e *FaultError) Unwrap() error {
	return e.Err
}

func (e *FaultError) Is(target error) bool {
	return target == ErrTimeout && e.Timeout
}

// Malformed wraps a decode failure reason in ErrMalformed.
func Malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
