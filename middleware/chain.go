package middleware

import (
	"context"

	"github.com/dopplerkit/dopplermcp/protocol"
)

// HandlerFunc is the signature of a transport's Send method and of the
// handlers that wrap it on the way there.
type HandlerFunc func(ctx context.Context, req *protocol.Request) (*protocol.Response, error)

// Middleware wraps a handler with additional behavior.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes middleware into one. The first middleware is outermost:
// it sees the request first and the response last.
func Chain(middlewares ...Middleware) Middleware {
	return func(send HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			send = middlewares[i](send)
		}
		return send
	}
}

// Stack is an ordered middleware list that can grow before being applied
// to a send function.
type Stack []Middleware

// Push appends middleware to the stack, innermost last.
func (s *Stack) Push(mw ...Middleware) {
	*s = append(*s, mw...)
}

// Wrap applies the stack to a send function.
func (s Stack) Wrap(send HandlerFunc) HandlerFunc {
	return Chain(s...)(send)
}
