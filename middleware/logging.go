package middleware

import (
	"context"
	"time"

	"github.com/dopplerkit/dopplermcp/protocol"
)

// Logger is the structured logging interface this package emits to.
// Adapters exist for the usual suspects; NopLogger discards everything.
type Logger interface {
	Info(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
}

// Field is one key-value pair of a structured log entry.
type Field struct {
	Key   string
	Value any
}

// F builds a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Logging returns middleware that records every request: a debug line
// when it goes out, then an info or error line with the round-trip
// duration when it comes back.
func Logging(logger Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			fields := []Field{F("method", req.Method)}
			if id := RequestIDFromContext(ctx); id != "" {
				fields = append(fields, F("request_id", id))
			}
			logger.Debug("sending request", fields...)

			start := time.Now()
			resp, err := next(ctx, req)
			fields = append(fields, F("duration", time.Since(start)))

			if err != nil {
				logger.Error("request failed", append(fields, F("error", err.Error()))...)
			} else {
				logger.Info("request completed", fields...)
			}
			return resp, err
		}
	}
}

// NopLogger discards all log entries.
type NopLogger struct{}

func (NopLogger) Info(msg string, fields ...Field)  {}
func (NopLogger) Error(msg string, fields ...Field) {}
func (NopLogger) Debug(msg string, fields ...Field) {}
func (NopLogger) Warn(msg string, fields ...Field)  {}
