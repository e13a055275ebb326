package mcptest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dopplerkit/dopplermcp/client"
	"github.com/dopplerkit/dopplermcp/protocol"
)

// scriptEntry is one canned reply. Exactly one of resp and err is set.
type scriptEntry struct {
	resp *protocol.Response
	err  error
}

// ScriptTransport is a client.Transport that replays canned responses in
// order, recording every request for later assertions. Queue replies with
// the fluent Respond* methods:
//
//	tr := mcptest.NewScriptTransport().
//	    RespondInitialize("fake-doppler", "1.0.0").
//	    RespondToolJSON([]string{"proj-a", "proj-b"})
//
// A Send with an empty queue fails loudly so a test that drifts from its
// script breaks instead of hanging.
type ScriptTransport struct {
	mu            sync.Mutex
	script        []scriptEntry
	requests      []*protocol.Request
	notifications []*protocol.Request
	closed        bool
	closeCalls    int
}

// NewScriptTransport creates an empty script.
func NewScriptTransport() *ScriptTransport {
	return &ScriptTransport{}
}

// Respond queues a success response whose result is v.
func (t *ScriptTransport) Respond(v any) *ScriptTransport {
	return t.push(scriptEntry{resp: &protocol.Response{JSONRPC: protocol.JSONRPCVersion, Result: v}})
}

// RespondError queues a JSON-RPC error response.
func (t *ScriptTransport) RespondError(code int, message string) *ScriptTransport {
	return t.push(scriptEntry{resp: &protocol.Response{
		JSONRPC: protocol.JSONRPCVersion,
		Error:   protocol.NewError(code, message),
	}})
}

// RespondToolText queues a tool result envelope carrying bare text.
func (t *ScriptTransport) RespondToolText(text string) *ScriptTransport {
	return t.Respond(protocol.TextResult(text))
}

// RespondToolError queues a tool result envelope flagged isError.
func (t *ScriptTransport) RespondToolError(text string) *ScriptTransport {
	return t.Respond(protocol.ErrorResult(text))
}

// RespondToolJSON queues a tool result envelope whose text payload is the
// JSON encoding of v. Panics if v cannot be encoded, since that is a bug
// in the test itself.
func (t *ScriptTransport) RespondToolJSON(v any) *ScriptTransport {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("mcptest: encode scripted payload: %v", err))
	}
	return t.Respond(protocol.TextResult(string(data)))
}

// RespondInitialize queues a standard initialize result.
func (t *ScriptTransport) RespondInitialize(name, version string) *ScriptTransport {
	return t.Respond(map[string]any{
		"protocolVersion": protocol.MCPVersion,
		"capabilities":    map[string]any{"tools": map[string]any{}},
		"serverInfo":      map[string]any{"name": name, "version": version},
	})
}

// FailWith queues a transport-level failure for the next Send.
func (t *ScriptTransport) FailWith(err error) *ScriptTransport {
	return t.push(scriptEntry{err: err})
}

func (t *ScriptTransport) push(e scriptEntry) *ScriptTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.script = append(t.script, e)
	return t
}

// Send records the request and replays the next scripted reply with the
// request's id echoed back.
func (t *ScriptTransport) Send(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, client.ErrClosed
	}
	t.requests = append(t.requests, req)

	if len(t.script) == 0 {
		return nil, fmt.Errorf("mcptest: no scripted response for %q", req.Method)
	}
	entry := t.script[0]
	t.script = t.script[1:]

	if entry.err != nil {
		return nil, entry.err
	}

	resp := *entry.resp
	resp.ID = req.ID
	return &resp, nil
}

// Notify records the notification. Notifications consume no script
// entries.
func (t *ScriptTransport) Notify(ctx context.Context, req *protocol.Request) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return client.ErrClosed
	}
	t.notifications = append(t.notifications, req)
	return nil
}

// Close marks the transport closed. Further sends fail with ErrClosed.
func (t *ScriptTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.closeCalls++
	return nil
}

// Requests returns a copy of every request sent so far.
func (t *ScriptTransport) Requests() []*protocol.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*protocol.Request, len(t.requests))
	copy(out, t.requests)
	return out
}

// Notifications returns a copy of every notification sent so far.
func (t *ScriptTransport) Notifications() []*protocol.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*protocol.Request, len(t.notifications))
	copy(out, t.notifications)
	return out
}

// CloseCalls reports how many times Close has been called.
func (t *ScriptTransport) CloseCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeCalls
}

// Remaining reports how many scripted replies are still queued.
func (t *ScriptTransport) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.script)
}
