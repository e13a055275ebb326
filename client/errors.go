package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dopplerkit/dopplermcp/protocol"
)

// ErrClosed is returned by calls made after the transport was closed.
var ErrClosed = errors.New("transport closed")

// StartError reports that the server executable could not be launched.
type StartError struct {
	Command string
	Err     error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("start %s: %v", e.Command, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// MalformedResponseError reports a wire line that could not be parsed as a
// JSON-RPC response. The call that was waiting fails; the session remains
// closable.
type MalformedResponseError struct {
	Line []byte
	Err  error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// CorrelationError reports a response whose id does not belong to any
// in-flight request. It indicates protocol desync; the session refuses
// further calls once it has been observed.
type CorrelationError struct {
	Got  string
	Want string
}

func (e *CorrelationError) Error() string {
	if e.Want == "" {
		return fmt.Sprintf("response id %s matches no in-flight request", e.Got)
	}
	return fmt.Sprintf("response id %s does not match request id %s", e.Got, e.Want)
}

// EnvelopeError reports a tool-call result whose content envelope did not
// hold the expected payload.
type EnvelopeError struct {
	Tool   string
	Reason string
}

func (e *EnvelopeError) Error() string {
	return fmt.Sprintf("tool %s: %s", e.Tool, e.Reason)
}

// TimeoutError reports that no response arrived within the configured
// bound. The session stays usable; only the waiting call fails.
type TimeoutError struct {
	Method  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("call %s: no response within %s", e.Method, e.Timeout)
}

// Unwrap lets errors.Is(err, context.DeadlineExceeded) hold for timeouts.
func (e *TimeoutError) Unwrap() error { return context.DeadlineExceeded }

// ExitError reports that the server process exited while requests were
// outstanding. Stderr holds the tail of the process's standard error
// stream for diagnosis. The session is dead; all further calls fail.
type ExitError struct {
	Err    error
	Stderr []byte
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("server process exited: %v", e.Err)
	}
	return "server process exited"
}

func (e *ExitError) Unwrap() error { return e.Err }

// IsRPCError reports whether err is an application-level error returned by
// the server, as opposed to a transport or framing failure. Callers can
// continue using the session after an RPC error.
func IsRPCError(err error) bool {
	var rpcErr *protocol.Error
	return errors.As(err, &rpcErr)
}
