package protocol

import "fmt"

// Error is the JSON-RPC 2.0 error object. Servers return it for
// application-level failures (an unknown project, a missing secret);
// callers receive it as an ordinary error value distinguishable from
// transport failures.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("mcp error %d: %s", e.Code, e.Message)
}

// Is matches two Errors by code, so errors.Is(err, NewNotFound(""))
// asks "was this a not-found?" regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// WithData returns a copy of the error carrying extra diagnostic data.
func (e *Error) WithData(data any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Data: data}
}

// Error codes. The -327xx range is fixed by JSON-RPC 2.0; the -320xx
// range is this protocol's, except that servers may also answer with
// their own application codes (Doppler mirrors HTTP status codes).
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	CodeToolError    = -32000
	CodeNotFound     = -32001
	CodeUnauthorized = -32002
	CodeRateLimited  = -32003
)

// NewError creates an error with an arbitrary code.
func NewError(code int, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// NewParseError creates a parse error (-32700).
func NewParseError(msg string) *Error {
	return NewError(CodeParseError, msg)
}

// NewInvalidRequest creates an invalid request error (-32600).
func NewInvalidRequest(msg string) *Error {
	return NewError(CodeInvalidRequest, msg)
}

// NewMethodNotFound creates a method not found error (-32601).
func NewMethodNotFound(msg string) *Error {
	return NewError(CodeMethodNotFound, msg)
}

// NewInvalidParams creates an invalid params error (-32602).
func NewInvalidParams(msg string) *Error {
	return NewError(CodeInvalidParams, msg)
}

// NewInternalError creates an internal error (-32603).
func NewInternalError(msg string) *Error {
	return NewError(CodeInternalError, msg)
}

// NewToolError creates a tool execution error (-32000). Clients
// synthesize it when a tool result arrives with the isError flag set.
func NewToolError(msg string) *Error {
	return NewError(CodeToolError, msg)
}

// NewNotFound creates a not found error (-32001).
func NewNotFound(msg string) *Error {
	return NewError(CodeNotFound, msg)
}

// NewUnauthorized creates an unauthorized error (-32002).
func NewUnauthorized(msg string) *Error {
	return NewError(CodeUnauthorized, msg)
}
