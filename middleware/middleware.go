package middleware

import "time"

// DefaultStack is the stack most sessions want: panic recovery on the
// outside, request IDs for correlation, then logging.
func DefaultStack(logger Logger) Stack {
	return Stack{
		Recover(),
		RequestID(),
		Logging(logger),
	}
}

// DefaultStackWithTimeout adds a per-request deadline to the default
// stack, applied after the request ID so timeouts log with one.
func DefaultStackWithTimeout(logger Logger, timeout time.Duration) Stack {
	return Stack{
		Recover(),
		RequestID(),
		Timeout(timeout),
		Logging(logger),
	}
}
