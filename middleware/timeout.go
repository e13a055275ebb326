package middleware

import (
	"context"
	"time"

	"github.com/dopplerkit/dopplermcp/protocol"
)

// Timeout returns middleware that bounds the round trip of every request.
// When the deadline passes, the context handed to the transport is
// cancelled and the call returns context.DeadlineExceeded.
func Timeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			bounded, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(bounded, req)
		}
	}
}
