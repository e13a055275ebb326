package middleware

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"

	"github.com/dopplerkit/dopplermcp/protocol"
)

// RateLimitOption configures the rate limiter.
type RateLimitOption func(*rateLimitConfig)

type rateLimitConfig struct {
	keyFunc func(*protocol.Request) string
	logger  Logger
}

// WithRateLimitKeyFunc sets how requests are bucketed. The default is a
// single bucket for the whole session.
func WithRateLimitKeyFunc(fn func(*protocol.Request) string) RateLimitOption {
	return func(o *rateLimitConfig) {
		o.keyFunc = fn
	}
}

// WithRateLimitLogger sets the logger for throttled requests.
func WithRateLimitLogger(l Logger) RateLimitOption {
	return func(o *rateLimitConfig) {
		o.logger = l
	}
}

// RateLimit returns middleware that throttles outbound requests with a
// token bucket of rate tokens per second and the given burst. A request
// over the limit fails with CodeRateLimited instead of reaching the
// server; automation loops should back off on that code.
func RateLimit(rate, burst int, opts ...RateLimitOption) Middleware {
	cfg := &rateLimitConfig{
		keyFunc: func(*protocol.Request) string { return "session" },
	}
	for _, opt := range opts {
		opt(cfg)
	}

	limiter := ratelimit.New(&ratelimit.Config{
		Rate:     rate,
		Burst:    burst,
		Interval: time.Second,
	})

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			key := cfg.keyFunc(req)
			if limiter.Allow(ctx, key) {
				return next(ctx, req)
			}
			if cfg.logger != nil {
				cfg.logger.Warn("rate limit exceeded",
					F("method", req.Method),
					F("key", key),
				)
			}
			return nil, &protocol.Error{
				Code:    protocol.CodeRateLimited,
				Message: "rate limit exceeded",
			}
		}
	}
}

// RateLimitByMethod buckets the limit per method, so a burst of tool
// calls cannot starve pings and vice versa.
func RateLimitByMethod(rate, burst int, opts ...RateLimitOption) Middleware {
	byMethod := append([]RateLimitOption{
		WithRateLimitKeyFunc(func(req *protocol.Request) string {
			return req.Method
		}),
	}, opts...)
	return RateLimit(rate, burst, byMethod...)
}
