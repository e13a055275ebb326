package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// JSONRPCVersion is the JSON-RPC protocol version.
const JSONRPCVersion = "2.0"

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// NewRequest creates a request with a numeric id and marshaled params.
// A nil params leaves the params field absent from the wire message.
func NewRequest(id int64, method string, params any) (*Request, error) {
	idRaw, err := json.Marshal(id)
	if err != nil {
		return nil, fmt.Errorf("marshal request ID: %w", err)
	}

	var paramsRaw json.RawMessage
	if params != nil {
		paramsRaw, err = json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
	}

	return &Request{
		JSONRPC: JSONRPCVersion,
		ID:      idRaw,
		Method:  method,
		Params:  paramsRaw,
	}, nil
}

// NewNotification creates a request without an id. Notifications expect
// no response.
func NewNotification(method string, params any) (*Request, error) {
	var paramsRaw json.RawMessage
	if params != nil {
		var err error
		paramsRaw, err = json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
	}

	return &Request{
		JSONRPC: JSONRPCVersion,
		Method:  method,
		Params:  paramsRaw,
	}, nil
}

// IsNotification returns true if this request has no ID (is a notification).
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// NewResponse creates a successful response.
func NewResponse(id json.RawMessage, result any) *Response {
	return &Response{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  result,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(id json.RawMessage, err *Error) *Response {
	return &Response{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   err,
	}
}

// ErrServerMessage reports a line that is a server-initiated request or
// notification rather than a response. Readers that only issue requests
// may skip such messages.
var ErrServerMessage = errors.New("jsonrpc: server-initiated message")

// ParseResponse decodes one wire line as a JSON-RPC 2.0 response and
// enforces the response invariants: the object carries version "2.0" and
// exactly one of result or error. Lines holding a method field with no id
// are server notifications and yield ErrServerMessage.
func ParseResponse(data []byte) (*Response, error) {
	var frame struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Method  string          `json:"method"`
		Result  json.RawMessage `json:"result"`
		Error   *Error          `json:"error"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if frame.Method != "" {
		return nil, ErrServerMessage
	}

	if frame.JSONRPC != JSONRPCVersion {
		return nil, fmt.Errorf("unsupported jsonrpc version %q", frame.JSONRPC)
	}

	hasResult := len(frame.Result) > 0
	hasError := frame.Error != nil
	switch {
	case hasResult && hasError:
		return nil, errors.New("response carries both result and error")
	case !hasResult && !hasError:
		return nil, errors.New("response carries neither result nor error")
	}

	resp := &Response{
		JSONRPC: frame.JSONRPC,
		ID:      frame.ID,
		Error:   frame.Error,
	}
	if hasResult {
		if err := json.Unmarshal(frame.Result, &resp.Result); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
	}
	return resp, nil
}
