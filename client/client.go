// Package client implements the RPC session used to drive a Doppler MCP
// server over newline-delimited JSON-RPC.
//
// A Session owns a Transport, assigns monotonically increasing request
// ids, correlates responses to requests, and unwraps the tool-call result
// envelope. The shipped transports are StdioTransport (a spawned child
// process), StreamTransport (any reader/writer pair) and
// WebSocketTransport (a remote server).
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dopplerkit/dopplermcp/middleware"
	"github.com/dopplerkit/dopplermcp/protocol"
)

// Transport carries request/response exchanges to the server.
// Implementations correlate each response to its request id and never
// hand back a response belonging to a different request.
type Transport interface {
	// Send transmits a request and blocks until its response arrives or
	// ctx is done.
	Send(ctx context.Context, req *protocol.Request) (*protocol.Response, error)
	// Notify transmits a request that expects no response.
	Notify(ctx context.Context, req *protocol.Request) error
	// Close releases the transport. It is idempotent.
	Close() error
}

// Session is a request/response connection to an MCP server. It assigns
// ids starting at 1, never reuses one, and refuses to return results that
// do not match the request they answer. A Session is safe for concurrent
// use; calls are correlated by id, not by arrival order.
type Session struct {
	transport Transport
	send      middleware.HandlerFunc
	opts      sessionOptions

	mu         sync.RWMutex
	serverInfo *ServerInfo
	requestID  atomic.Int64
}

// ServerInfo holds what the server reported during the initialize
// handshake.
type ServerInfo struct {
	Name            string
	Version         string
	ProtocolVersion string
	Capabilities    Capabilities
}

// Capabilities describes the feature sets the server advertised.
type Capabilities struct {
	Tools bool
}

// Option configures a Session.
type Option func(*sessionOptions)

type sessionOptions struct {
	timeout     time.Duration
	clientName  string
	clientVer   string
	protocolVer string
	middleware  []middleware.Middleware
}

// WithTimeout sets the default per-call timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(o *sessionOptions) {
		o.timeout = d
	}
}

// WithClientInfo sets the client name and version sent in the handshake.
func WithClientInfo(name, version string) Option {
	return func(o *sessionOptions) {
		o.clientName = name
		o.clientVer = version
	}
}

// WithProtocolVersion sets the protocol version sent in the handshake.
func WithProtocolVersion(version string) Option {
	return func(o *sessionOptions) {
		o.protocolVer = version
	}
}

// WithMiddleware wraps the outbound send path with the given middleware.
// The first middleware is outermost.
func WithMiddleware(m ...middleware.Middleware) Option {
	return func(o *sessionOptions) {
		o.middleware = append(o.middleware, m...)
	}
}

// WithLogger installs logging middleware on the outbound send path.
func WithLogger(l middleware.Logger) Option {
	return func(o *sessionOptions) {
		o.middleware = append(o.middleware, middleware.Logging(l))
	}
}

// New creates a Session over the given transport. Call Initialize before
// issuing tool calls.
func New(transport Transport, opts ...Option) *Session {
	options := sessionOptions{
		timeout:     30 * time.Second,
		clientName:  "dopplermcp",
		clientVer:   "1.0.0",
		protocolVer: protocol.MCPVersion,
	}

	for _, opt := range opts {
		opt(&options)
	}

	send := middleware.HandlerFunc(transport.Send)
	if len(options.middleware) > 0 {
		send = middleware.Chain(options.middleware...)(send)
	}

	return &Session{
		transport: transport,
		send:      send,
		opts:      options,
	}
}

// Transport returns the transport the session was built on.
func (s *Session) Transport() Transport {
	return s.transport
}

// Initialize performs the MCP handshake: an initialize call carrying the
// protocol version, empty capabilities and the client info, followed by
// the initialized notification.
func (s *Session) Initialize(ctx context.Context) (*ServerInfo, error) {
	params := map[string]any{
		"protocolVersion": s.opts.protocolVer,
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    s.opts.clientName,
			"version": s.opts.clientVer,
		},
	}

	result, err := s.Call(ctx, protocol.MethodInitialize, params)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	info := &ServerInfo{}
	if m, ok := result.(map[string]any); ok {
		if pv, ok := m["protocolVersion"].(string); ok {
			info.ProtocolVersion = pv
		}
		if si, ok := m["serverInfo"].(map[string]any); ok {
			if name, ok := si["name"].(string); ok {
				info.Name = name
			}
			if ver, ok := si["version"].(string); ok {
				info.Version = ver
			}
		}
		if caps, ok := m["capabilities"].(map[string]any); ok {
			if _, ok := caps["tools"]; ok {
				info.Capabilities.Tools = true
			}
		}
	}

	s.mu.Lock()
	s.serverInfo = info
	s.mu.Unlock()

	notif, err := protocol.NewNotification(protocol.MethodInitialized, nil)
	if err != nil {
		return nil, fmt.Errorf("initialized notification: %w", err)
	}
	if err := s.transport.Notify(ctx, notif); err != nil {
		return nil, fmt.Errorf("initialized notification: %w", err)
	}

	return info, nil
}

// Call sends one request and blocks for its response. The returned value
// is the decoded result. A server-reported failure comes back as a
// *protocol.Error; the session stays usable after one. A call that
// outlives the per-call timeout fails with a *TimeoutError.
func (s *Session) Call(ctx context.Context, method string, params any) (any, error) {
	req, err := protocol.NewRequest(s.requestID.Add(1), method, params)
	if err != nil {
		return nil, err
	}

	if s.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.timeout)
		defer cancel()
	}

	resp, err := s.send(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &TimeoutError{Method: method, Timeout: s.opts.timeout}
		}
		return nil, err
	}

	if string(resp.ID) != string(req.ID) {
		return nil, &CorrelationError{Got: string(resp.ID), Want: string(req.ID)}
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}

// CallTool invokes a tool via tools/call and returns the raw result
// envelope without inspecting its content.
func (s *Session) CallTool(ctx context.Context, name string, arguments any) (*protocol.ToolResult, error) {
	params := map[string]any{
		"name": name,
	}
	if arguments != nil {
		params["arguments"] = arguments
	}

	result, err := s.Call(ctx, protocol.MethodToolsCall, params)
	if err != nil {
		return nil, fmt.Errorf("call tool %q: %w", name, err)
	}

	var tr protocol.ToolResult
	if err := decodeResult(result, &tr); err != nil {
		return nil, &EnvelopeError{Tool: name, Reason: fmt.Sprintf("decode result envelope: %v", err)}
	}
	return &tr, nil
}

// CallToolText invokes a tool and returns the raw text of the first
// content item. Use it for tools whose payload is a bare scalar, such as
// a single secret value.
func (s *Session) CallToolText(ctx context.Context, name string, arguments any) (string, error) {
	tr, err := s.CallTool(ctx, name, arguments)
	if err != nil {
		return "", err
	}
	return unwrapText(name, tr)
}

// CallToolJSON invokes a tool, unwraps the JSON text embedded in the
// first content item and decodes it into out.
func (s *Session) CallToolJSON(ctx context.Context, name string, arguments any, out any) error {
	tr, err := s.CallTool(ctx, name, arguments)
	if err != nil {
		return err
	}
	text, err := unwrapText(name, tr)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return &EnvelopeError{Tool: name, Reason: fmt.Sprintf("embedded payload is not valid JSON: %v", err)}
	}
	return nil
}

// ListTools retrieves the server's tool catalogue via tools/list.
func (s *Session) ListTools(ctx context.Context) ([]protocol.Tool, error) {
	result, err := s.Call(ctx, protocol.MethodToolsList, nil)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}

	var listing struct {
		Tools []protocol.Tool `json:"tools"`
	}
	if err := decodeResult(result, &listing); err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	return listing.Tools, nil
}

// Ping sends a ping to the server.
func (s *Session) Ping(ctx context.Context) error {
	if _, err := s.Call(ctx, protocol.MethodPing, nil); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// ServerInfo returns the info cached by Initialize, or nil before the
// handshake.
func (s *Session) ServerInfo() *ServerInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serverInfo
}

// Close releases the transport. Safe to call more than once and on every
// exit path, including after the server process has already died.
func (s *Session) Close() error {
	return s.transport.Close()
}

// unwrapText extracts the text payload from a tool result envelope,
// enforcing the envelope shape: content is non-empty and the first item
// is text. An envelope flagged isError surfaces as a *protocol.Error so
// tool failures remain distinguishable from transport failures.
func unwrapText(tool string, tr *protocol.ToolResult) (string, error) {
	if len(tr.Content) == 0 {
		return "", &EnvelopeError{Tool: tool, Reason: "empty content"}
	}
	first := tr.Content[0]
	if first.Type != "text" {
		return "", &EnvelopeError{Tool: tool, Reason: fmt.Sprintf("first content item is %q, not text", first.Type)}
	}
	if tr.IsError {
		return "", protocol.NewToolError(first.Text)
	}
	return first.Text, nil
}

// decodeResult re-encodes an already-parsed result value into a typed
// structure.
func decodeResult(v any, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
