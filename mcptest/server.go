package mcptest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dopplerkit/dopplermcp/protocol"
	"github.com/dopplerkit/dopplermcp/schema"
)

// ToolFunc handles one tool invocation. args is the raw arguments object
// from the request. The returned value becomes the result envelope: a
// string passes through as bare text, a *protocol.ToolResult is used
// as-is, and anything else is JSON-encoded into the text payload.
type ToolFunc func(ctx context.Context, args json.RawMessage) (any, error)

type tool struct {
	name        string
	description string
	inputSchema *schema.Schema
	fn          ToolFunc
}

// Info identifies the server in initialize responses.
type Info struct {
	Name    string
	Version string
}

// Server is an in-memory MCP server for tests and demos. It speaks the
// subset of the protocol a Doppler client exercises: initialize, ping,
// tools/list, and tools/call. Transports are layered on top via
// ServeStdio, WebSocketHandler, or NewPipeTransport.
type Server struct {
	mu    sync.RWMutex
	info  Info
	tools map[string]*tool
	order []string
}

// NewServer creates an empty server with the given identity.
func NewServer(info Info) *Server {
	return &Server{
		info:  info,
		tools: make(map[string]*tool),
	}
}

// Register adds a tool. argsProto is a value of the tool's argument
// struct; its generated schema is advertised by tools/list and incoming
// arguments are validated against it before fn runs. Pass nil to skip
// schema generation and validation. Registering the same name twice
// replaces the handler.
func (s *Server) Register(name, description string, argsProto any, fn ToolFunc) error {
	t := &tool{name: name, description: description, fn: fn}

	if argsProto != nil {
		sch, err := schema.Generate(argsProto)
		if err != nil {
			return fmt.Errorf("generate schema for %s: %w", name, err)
		}
		t.inputSchema = sch
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tools[name]; !exists {
		s.order = append(s.order, name)
	}
	s.tools[name] = t
	return nil
}

// Tools returns the registered tools in registration order, as advertised
// by tools/list.
func (s *Server) Tools() []protocol.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]protocol.Tool, 0, len(s.order))
	for _, name := range s.order {
		t := s.tools[name]
		result = append(result, protocol.Tool{
			Name:        t.name,
			Description: t.description,
			InputSchema: t.inputSchema,
		})
	}
	return result
}

func (s *Server) getTool(name string) (*tool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tools[name]
	return t, ok
}

// Handle dispatches one request and returns the response to write back,
// or nil for notifications.
func (s *Server) Handle(ctx context.Context, req *protocol.Request) *protocol.Response {
	if req.IsNotification() {
		return nil
	}

	switch req.Method {
	case protocol.MethodInitialize:
		return s.handleInitialize(req)
	case protocol.MethodPing:
		return protocol.NewResponse(req.ID, map[string]any{})
	case protocol.MethodToolsList:
		return protocol.NewResponse(req.ID, map[string]any{"tools": s.Tools()})
	case protocol.MethodToolsCall:
		return s.handleToolsCall(ctx, req)
	default:
		return protocol.NewErrorResponse(req.ID, protocol.NewMethodNotFound(req.Method))
	}
}

func (s *Server) handleInitialize(req *protocol.Request) *protocol.Response {
	result := map[string]any{
		"protocolVersion": protocol.MCPVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    s.info.Name,
			"version": s.info.Version,
		},
	}
	return protocol.NewResponse(req.ID, result)
}

func (s *Server) handleToolsCall(ctx context.Context, req *protocol.Request) *protocol.Response {
	var params protocol.ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return protocol.NewErrorResponse(req.ID, protocol.NewInvalidParams(err.Error()))
	}

	t, ok := s.getTool(params.Name)
	if !ok {
		return protocol.NewErrorResponse(req.ID, protocol.NewNotFound("tool not found: "+params.Name))
	}

	args := params.Arguments
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	if t.inputSchema != nil {
		if err := t.inputSchema.Validate(args); err != nil {
			return protocol.NewErrorResponse(req.ID, protocol.NewInvalidParams(err.Error()))
		}
	}

	result, err := t.fn(ctx, args)
	if err != nil {
		// Protocol errors become JSON-RPC error responses; anything else
		// is a tool-level failure reported in the result envelope.
		var mcpErr *protocol.Error
		if errors.As(err, &mcpErr) {
			return protocol.NewErrorResponse(req.ID, mcpErr)
		}
		return protocol.NewResponse(req.ID, protocol.ErrorResult(err.Error()))
	}

	envelope, err := toEnvelope(result)
	if err != nil {
		return protocol.NewErrorResponse(req.ID, protocol.NewInternalError(err.Error()))
	}
	return protocol.NewResponse(req.ID, envelope)
}

// toEnvelope wraps a handler's return value in the tool result envelope.
func toEnvelope(result any) (*protocol.ToolResult, error) {
	switch v := result.(type) {
	case *protocol.ToolResult:
		return v, nil
	case string:
		return protocol.TextResult(v), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode tool result: %w", err)
		}
		return protocol.TextResult(string(data)), nil
	}
}
