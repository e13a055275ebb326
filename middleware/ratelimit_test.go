package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dopplerkit/dopplermcp/middleware"
	"github.com/dopplerkit/dopplermcp/protocol"
)

func rpc(method string) *protocol.Request {
	return &protocol.Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  method,
	}
}

func TestRateLimit(t *testing.T) {
	t.Run("traffic under the limit flows", func(t *testing.T) {
		send := middleware.RateLimit(10, 10)(okSend)

		for i := 0; i < 5; i++ {
			if _, err := send(context.Background(), rpc(protocol.MethodToolsList)); err != nil {
				t.Fatalf("request %d: %v", i, err)
			}
		}
	})

	t.Run("over the limit fails with CodeRateLimited", func(t *testing.T) {
		logger := &warnCount{}
		send := middleware.RateLimit(1, 1, middleware.WithRateLimitLogger(logger))(okSend)

		if _, err := send(context.Background(), rpc(protocol.MethodToolsCall)); err != nil {
			t.Fatalf("first request: %v", err)
		}

		_, err := send(context.Background(), rpc(protocol.MethodToolsCall))
		var perr *protocol.Error
		if !errors.As(err, &perr) {
			t.Fatalf("err = %v (%T), want *protocol.Error", err, err)
		}
		if perr.Code != protocol.CodeRateLimited {
			t.Errorf("code = %d, want %d", perr.Code, protocol.CodeRateLimited)
		}
		if logger.n != 1 {
			t.Errorf("warn count = %d, want 1", logger.n)
		}
	})

	t.Run("burst capacity absorbs spikes", func(t *testing.T) {
		send := middleware.RateLimit(1, 5)(okSend)

		for i := 0; i < 5; i++ {
			if _, err := send(context.Background(), rpc(protocol.MethodToolsCall)); err != nil {
				t.Fatalf("burst request %d: %v", i, err)
			}
		}
		if _, err := send(context.Background(), rpc(protocol.MethodToolsCall)); err == nil {
			t.Fatal("sixth request should exceed the burst")
		}
	})

	t.Run("tokens refill over time", func(t *testing.T) {
		send := middleware.RateLimit(10, 1)(okSend)

		if _, err := send(context.Background(), rpc(protocol.MethodToolsCall)); err != nil {
			t.Fatalf("first request: %v", err)
		}
		if _, err := send(context.Background(), rpc(protocol.MethodToolsCall)); err == nil {
			t.Fatal("second immediate request should be throttled")
		}

		// 10/s refills a token within 100ms.
		time.Sleep(150 * time.Millisecond)
		if _, err := send(context.Background(), rpc(protocol.MethodToolsCall)); err != nil {
			t.Fatalf("after refill: %v", err)
		}
	})

	t.Run("concurrent senders share one bucket", func(t *testing.T) {
		send := middleware.RateLimit(10, 10)(okSend)

		var wg sync.WaitGroup
		var mu sync.Mutex
		allowed, denied := 0, 0

		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := send(context.Background(), rpc(protocol.MethodToolsCall))
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					allowed++
				} else {
					denied++
				}
			}()
		}
		wg.Wait()

		if allowed+denied != 20 {
			t.Fatalf("allowed %d + denied %d != 20", allowed, denied)
		}
		if allowed < 10 || denied < 5 {
			t.Errorf("allowed = %d, denied = %d; want roughly the burst through", allowed, denied)
		}
	})
}

func TestRateLimitByMethod(t *testing.T) {
	send := middleware.RateLimitByMethod(1, 1)(okSend)

	if _, err := send(context.Background(), rpc(protocol.MethodToolsList)); err != nil {
		t.Fatalf("tools/list: %v", err)
	}
	// A different method draws from its own bucket.
	if _, err := send(context.Background(), rpc(protocol.MethodToolsCall)); err != nil {
		t.Fatalf("tools/call: %v", err)
	}
	if _, err := send(context.Background(), rpc(protocol.MethodToolsList)); err == nil {
		t.Fatal("second tools/list should be throttled")
	}
}
