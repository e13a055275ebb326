package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dopplerkit/dopplermcp/protocol"
)

// WebSocketTransport speaks JSON-RPC over a websocket connection, one
// message per frame. Correlation and failure semantics match the stream
// transport.
type WebSocketTransport struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	router *router
	done   chan struct{}

	closeOnce    sync.Once
	writeTimeout time.Duration
}

// WebSocketOption configures a WebSocketTransport.
type WebSocketOption func(*WebSocketTransport)

// WithWriteTimeout sets the per-frame write deadline.
func WithWriteTimeout(d time.Duration) WebSocketOption {
	return func(t *WebSocketTransport) {
		t.writeTimeout = d
	}
}

// DialWebSocket connects to an MCP server listening on a websocket URL.
func DialWebSocket(ctx context.Context, url string, opts ...WebSocketOption) (*WebSocketTransport, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	t := &WebSocketTransport{
		conn:         conn,
		router:       newRouter(),
		done:         make(chan struct{}),
		writeTimeout: 10 * time.Second,
	}

	for _, opt := range opts {
		opt(t)
	}

	go t.readLoop()

	return t, nil
}

// Send transmits req and blocks until its response arrives, ctx is done,
// or the connection fails.
func (t *WebSocketTransport) Send(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	var id int64
	if err := json.Unmarshal(req.ID, &id); err != nil {
		return nil, fmt.Errorf("invalid request ID: %w", err)
	}

	ch, err := t.router.register(id)
	if err != nil {
		return nil, err
	}

	if err := t.writeFrame(req); err != nil {
		if ferr := t.router.unregister(id); ferr != nil {
			return nil, ferr
		}
		return nil, err
	}

	return t.router.await(ctx, id, ch)
}

// Notify transmits a request without waiting for a response.
func (t *WebSocketTransport) Notify(ctx context.Context, req *protocol.Request) error {
	if err := t.router.sendable(); err != nil {
		return err
	}
	return t.writeFrame(req)
}

// Close sends a normal-closure frame and tears the connection down. Safe
// to call more than once.
func (t *WebSocketTransport) Close() error {
	t.closeOnce.Do(func() {
		t.router.markClosed()

		t.writeMu.Lock()
		_ = t.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		t.writeMu.Unlock()

		_ = t.conn.Close()
	})
	<-t.done
	return nil
}

func (t *WebSocketTransport) writeFrame(req *protocol.Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.writeTimeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	}
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write request: %w", err)
	}
	return nil
}

func (t *WebSocketTransport) readLoop() {
	defer close(t.done)

	for {
		_, message, err := t.conn.ReadMessage()
		if err != nil {
			var term error
			switch {
			case t.router.isClosed(), websocket.IsCloseError(err, websocket.CloseNormalClosure):
				term = ErrClosed
			default:
				term = fmt.Errorf("read websocket: %w", err)
			}
			t.router.poison(term)
			return
		}

		if len(bytes.TrimSpace(message)) == 0 {
			continue
		}
		if err := t.router.dispatch(message); err != nil {
			_ = t.conn.Close()
			return
		}
	}
}
