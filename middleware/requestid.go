package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/dopplerkit/dopplermcp/protocol"
)

// contextKey keeps this package's context values out of other packages'
// namespaces.
type contextKey string

const requestIDKey contextKey = "requestID"

// RequestID returns middleware that stamps each outbound request's
// context with a unique ID. An ID already on the context is kept, so a
// caller-supplied correlation ID wins.
func RequestID() Middleware {
	return RequestIDWithGenerator(uuid.NewString)
}

// RequestIDWithGenerator is RequestID with a custom ID source.
func RequestIDWithGenerator(generator func() string) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			if RequestIDFromContext(ctx) == "" {
				ctx = ContextWithRequestID(ctx, generator())
			}
			return next(ctx, req)
		}
	}
}

// RequestIDFromContext returns the request ID on the context, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ContextWithRequestID returns a context carrying the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}
