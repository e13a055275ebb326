// Package protocol defines the JSON-RPC 2.0 message types, error codes,
// and method names used when talking to a Doppler MCP server.
//
// This package provides the low-level wire structures used by dopplermcp.
// Most users should use the higher-level client and doppler packages
// instead.
//
// # Request and Response Types
//
// The package defines the core JSON-RPC 2.0 message types:
//
//	type Request struct {
//	    JSONRPC string          `json:"jsonrpc"`
//	    ID      json.RawMessage `json:"id,omitempty"`
//	    Method  string          `json:"method"`
//	    Params  json.RawMessage `json:"params,omitempty"`
//	}
//
//	type Response struct {
//	    JSONRPC string          `json:"jsonrpc"`
//	    ID      json.RawMessage `json:"id,omitempty"`
//	    Result  any             `json:"result,omitempty"`
//	    Error   *Error          `json:"error,omitempty"`
//	}
//
// ParseResponse decodes one newline-delimited wire line and enforces the
// response invariants: version "2.0" and exactly one of result or error
// present.
//
// # Error Codes
//
// Standard JSON-RPC 2.0 error codes are defined as constants:
//
//	CodeParseError     = -32700  // Invalid JSON
//	CodeInvalidRequest = -32600  // Invalid Request object
//	CodeMethodNotFound = -32601  // Method not found
//	CodeInvalidParams  = -32602  // Invalid method parameters
//	CodeInternalError  = -32603  // Internal server error
//
// Helper functions create properly formatted errors:
//
//	err := protocol.NewMethodNotFound("unknown/method")
//	err := protocol.NewInvalidParams("missing required field: name")
//
// # Method and Tool Constants
//
// MCP lifecycle methods and the Doppler tool names are defined as
// constants:
//
//	MethodInitialize = "initialize"
//	MethodToolsCall  = "tools/call"
//	ToolListProjects = "doppler_list_projects"
//	ToolGetSecret    = "doppler_get_secret"
package protocol
