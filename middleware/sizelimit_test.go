package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/dopplerkit/dopplermcp/middleware"
	"github.com/dopplerkit/dopplermcp/protocol"
)

// warnCount counts Warn calls; everything else is dropped.
type warnCount struct {
	middleware.NopLogger
	n int
}

func (w *warnCount) Warn(msg string, fields ...middleware.Field) { w.n++ }

func okSend(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	return protocol.NewResponse(req.ID, "ok"), nil
}

func TestSizeLimit(t *testing.T) {
	t.Run("lets ordinary calls through", func(t *testing.T) {
		send := middleware.SizeLimit(middleware.KB)(okSend)

		req := &protocol.Request{
			JSONRPC: "2.0",
			ID:      json.RawMessage(`1`),
			Method:  protocol.MethodToolsCall,
			Params:  json.RawMessage(`{"name":"doppler_get_secret","arguments":{"project":"demo","config":"dev","name":"API_KEY"}}`),
		}
		resp, err := send(context.Background(), req)
		if err != nil {
			t.Fatalf("send: %v", err)
		}
		if resp == nil {
			t.Fatal("no response")
		}
	})

	t.Run("stops oversized params before the transport", func(t *testing.T) {
		logger := &warnCount{}
		reached := false
		send := middleware.SizeLimit(100, middleware.WithSizeLimitLogger(logger))(
			func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
				reached = true
				return protocol.NewResponse(req.ID, "ok"), nil
			})

		// A PEM bundle pasted into a set call, say.
		blob := strings.Repeat("x", 200)
		req := &protocol.Request{
			JSONRPC: "2.0",
			ID:      json.RawMessage(`1`),
			Method:  protocol.MethodToolsCall,
			Params:  json.RawMessage(`{"name":"doppler_set_secret","arguments":{"value":"` + blob + `"}}`),
		}

		_, err := send(context.Background(), req)
		var perr *protocol.Error
		if !errors.As(err, &perr) {
			t.Fatalf("err = %v (%T), want *protocol.Error", err, err)
		}
		if perr.Code != protocol.CodeInvalidRequest {
			t.Errorf("code = %d, want %d", perr.Code, protocol.CodeInvalidRequest)
		}
		if !strings.Contains(perr.Message, "exceeds limit") {
			t.Errorf("message = %q", perr.Message)
		}
		if reached {
			t.Error("oversized request reached the transport")
		}
		if logger.n != 1 {
			t.Errorf("warn count = %d, want 1", logger.n)
		}
	})

	t.Run("requests without params never trip the limit", func(t *testing.T) {
		send := middleware.SizeLimit(1)(okSend)

		req := &protocol.Request{
			JSONRPC: "2.0",
			ID:      json.RawMessage(`1`),
			Method:  protocol.MethodToolsList,
		}
		if _, err := send(context.Background(), req); err != nil {
			t.Fatalf("send: %v", err)
		}
	})

	t.Run("size presets", func(t *testing.T) {
		if middleware.KB != 1024 || middleware.MB != 1024*1024 {
			t.Errorf("KB = %d, MB = %d", middleware.KB, middleware.MB)
		}
	})
}
