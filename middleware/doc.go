// Package middleware provides middleware for the outbound MCP send path.
//
// Each middleware wraps the next handler in the chain, so a request can
// be inspected, logged, throttled, or rejected before the transport
// writes it, and its response observed on the way back.
//
// # Basic Usage
//
// Compose middleware and apply it to a send function:
//
//	send := middleware.Chain(
//	    middleware.Recover(),
//	    middleware.RequestID(),
//	    middleware.Logging(logger),
//	)(transport.Send)
//
// Sessions accept the same middleware directly:
//
//	session := client.New(transport,
//	    client.WithMiddleware(middleware.DefaultStack(logger)...),
//	)
//
// A Stack collects middleware before applying it:
//
//	var stack middleware.Stack
//	stack.Push(middleware.Recover())
//	if cfg.Verbose {
//	    stack.Push(middleware.Logging(logger))
//	}
//	send := stack.Wrap(transport.Send)
//
// # Available Middleware
//
//   - Recover: Converts panics in the send path to internal errors
//   - RequestID: Stamps each request's context with a unique ID
//   - Timeout: Bounds the round trip of every request
//   - Logging: Logs each request with method, ID, and duration
//   - RateLimit: Throttles outbound requests with a token bucket
//   - SizeLimit: Rejects oversized request payloads before they hit the wire
//   - OTel: Emits client spans and metrics per request
//
// # Custom Middleware
//
// Implement the Middleware type directly:
//
//	func Retry(attempts int) middleware.Middleware {
//	    return func(next middleware.HandlerFunc) middleware.HandlerFunc {
//	        return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
//	            // Retry logic here
//	            return next(ctx, req)
//	        }
//	    }
//	}
package middleware
