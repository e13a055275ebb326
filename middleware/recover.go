package middleware

import (
	"context"
	"fmt"

	"github.com/dopplerkit/dopplermcp/protocol"
)

// PanicHandler turns a recovered panic into a response or an error.
type PanicHandler func(ctx context.Context, req *protocol.Request, panicVal any) (*protocol.Response, error)

// Recover returns middleware that keeps a panic in the send path (a
// buggy middleware, codec, or transport) from unwinding into the
// caller. The panic surfaces as an internal error instead.
func Recover() Middleware {
	return RecoverWithHandler(panicToError)
}

// RecoverWithHandler is Recover with a custom handler, for callers that
// want to log or re-panic selectively.
func RecoverWithHandler(handler PanicHandler) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (resp *protocol.Response, err error) {
			defer func() {
				if r := recover(); r != nil {
					resp, err = handler(ctx, req, r)
				}
			}()
			return next(ctx, req)
		}
	}
}

func panicToError(_ context.Context, _ *protocol.Request, panicVal any) (*protocol.Response, error) {
	return nil, protocol.NewInternalError(fmt.Sprintf("panic: %v", panicVal))
}
