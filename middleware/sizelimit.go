package middleware

import (
	"context"
	"fmt"

	"github.com/dopplerkit/dopplermcp/protocol"
)

// Common size limit presets.
const (
	KB = 1024
	MB = 1024 * 1024
)

// SizeLimitOption configures the size limit middleware.
type SizeLimitOption func(*sizeLimitConfig)

type sizeLimitConfig struct {
	logger Logger
}

// WithSizeLimitLogger sets the logger for rejected requests.
func WithSizeLimitLogger(l Logger) SizeLimitOption {
	return func(o *sizeLimitConfig) {
		o.logger = l
	}
}

// SizeLimit returns middleware that rejects a request whose params
// exceed maxBytes, before it reaches the wire. Useful when the server
// side is known to cap frame sizes: failing locally gives a clearer
// error than a dropped connection.
func SizeLimit(maxBytes int64, opts ...SizeLimitOption) Middleware {
	cfg := &sizeLimitConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			size := int64(len(req.Params))
			if size <= maxBytes {
				return next(ctx, req)
			}
			if cfg.logger != nil {
				cfg.logger.Warn("request size limit exceeded",
					F("method", req.Method),
					F("size", size),
					F("max", maxBytes),
				)
			}
			return nil, protocol.NewInvalidRequest(
				fmt.Sprintf("request size %d exceeds limit of %d bytes", size, maxBytes))
		}
	}
}
