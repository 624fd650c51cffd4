package core

import (
	"errors"
	"fmt"
)

// Standard errors returned by the core connection.
var (
	// ErrConnClosed indicates the connection to the core process is gone.
	// Pending synchronous requests complete with this error when the
	// process exits or the transport shuts down.
	ErrConnClosed = errors.New("core connection closed")

	// ErrNotStarted indicates the dispatcher has not been started.
	ErrNotStarted = errors.New("dispatcher not started")

	// ErrNoHandler indicates no handler was registered before Start.
	ErrNoHandler = errors.New("no handler registered")

	// ErrUnknownMethod indicates an inbound method with no decoder.
	ErrUnknownMethod = errors.New("unknown method")

	// ErrCoreNotFound indicates the engine executable could not be located.
	ErrCoreNotFound = errors.New("core executable not found")

	// ErrAlreadyRunning indicates the core process was already spawned.
	ErrAlreadyRunning = errors.New("core process already running")
)

// RPCError is the error object carried in an engine response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("rpc error %d: %s (data: %v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// DecodeError reports an inbound message that could not be decoded.
// These are logged and dropped; a single bad message never closes the
// connection.
type DecodeError struct {
	Method string
	Err    error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("decode %s: %v", e.Method, e.Err)
	}
	return fmt.Sprintf("decode message: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}
