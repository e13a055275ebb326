// Package dopplermcp is a Go client for Doppler MCP servers.
//
// It spawns the server as a child process (npx -y mcp-doppler-server by
// default), speaks newline-delimited JSON-RPC 2.0 over its stdin/stdout,
// and exposes each Doppler tool as a typed method:
//
//	cfg, err := dopplermcp.ConfigFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg.Token = os.Getenv("DOPPLER_TOKEN")
//
//	dc, err := dopplermcp.Connect(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dc.Close()
//
//	secrets, err := dc.ListSecrets(ctx, "backend", "prd")
//
// The subpackages expose each layer on its own: client carries the
// session and transports, doppler the typed facade, middleware the
// outbound interceptors, mcptest the fakes for testing, and harness the
// YAML scenario runner.
package dopplermcp

import (
	"context"

	"github.com/dopplerkit/dopplermcp/client"
	"github.com/dopplerkit/dopplermcp/doppler"
	"github.com/dopplerkit/dopplermcp/protocol"
)

// Version is the library version reported in the initialize handshake
// and by the CLI.
const Version = "1.0.0"

// Re-export core types for convenience

// Session is the JSON-RPC connection to an MCP server.
type Session = client.Session

// Option configures a Session.
type Option = client.Option

// Transport carries request/response exchanges to the server.
type Transport = client.Transport

// ServerInfo holds what the server reported during the handshake.
type ServerInfo = client.ServerInfo

// Transport implementations.
type (
	StdioTransport     = client.StdioTransport
	StreamTransport    = client.StreamTransport
	WebSocketTransport = client.WebSocketTransport

	StdioTransportOption = client.StdioTransportOption
	WebSocketOption      = client.WebSocketOption
)

// Typed failures; see the client package for semantics.
type (
	StartError             = client.StartError
	ExitError              = client.ExitError
	MalformedResponseError = client.MalformedResponseError
	CorrelationError       = client.CorrelationError
	EnvelopeError          = client.EnvelopeError
	TimeoutError           = client.TimeoutError
)

// ErrClosed reports use of a closed session.
var ErrClosed = client.ErrClosed

// Error is the JSON-RPC error object servers report. Tool-level failures
// carry code CodeToolError.
type Error = protocol.Error

// Tool describes one entry of the server's tool catalogue.
type Tool = protocol.Tool

// ToolResult is the raw tools/call result envelope.
type ToolResult = protocol.ToolResult

// Doppler facade types.
type (
	Client       = doppler.Client
	Config       = doppler.Config
	Project      = doppler.Project
	ConfigInfo   = doppler.ConfigInfo
	ServiceToken = doppler.ServiceToken
	ActivityLog  = doppler.ActivityLog
	ActivityUser = doppler.ActivityUser
)

// Transport constructors and options, re-exported so simple programs
// never import the subpackages.
var (
	NewStdioTransport  = client.NewStdioTransport
	NewStreamTransport = client.NewStreamTransport
	DialWebSocket      = client.DialWebSocket

	WithEnv          = client.WithEnv
	WithCloseGrace   = client.WithCloseGrace
	WithWriteTimeout = client.WithWriteTimeout
)

// Session options.
var (
	WithTimeout         = client.WithTimeout
	WithClientInfo      = client.WithClientInfo
	WithProtocolVersion = client.WithProtocolVersion
	WithMiddleware      = client.WithMiddleware
	WithLogger          = client.WithLogger
)

// IsRPCError reports whether err is a server-reported JSON-RPC error, as
// opposed to a transport or protocol failure.
var IsRPCError = client.IsRPCError

// New creates a Session over the given transport. Call Initialize before
// issuing tool calls.
func New(t Transport, opts ...Option) *Session {
	return client.New(t, opts...)
}

// ConfigFromEnv reads the DOPPLER_* environment variables, applying the
// documented defaults.
func ConfigFromEnv() (Config, error) {
	return doppler.ConfigFromEnv()
}

// Connect spawns the configured server process, performs the handshake
// and returns a typed client. Callers own the client and must Close it.
func Connect(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	return doppler.Connect(ctx, cfg, opts...)
}

// Open connects with the given service token, reading every other setting
// (server command, timeout) from the DOPPLER_* environment with its
// documented default. It is the one-liner for programs that only need the
// defaults:
//
//	dc, err := dopplermcp.Open(ctx, os.Getenv("DOPPLER_TOKEN"))
func Open(ctx context.Context, token string, opts ...Option) (*Client, error) {
	cfg, err := doppler.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	cfg.Token = token
	return doppler.Connect(ctx, cfg, opts...)
}

// NewClient wraps an already-initialized session in the typed facade.
// Use it to drive the facade over a custom transport.
func NewClient(session *Session) *Client {
	return doppler.NewClient(session)
}
