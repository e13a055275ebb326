package mcptest

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dopplerkit/dopplermcp/client"
	"github.com/dopplerkit/dopplermcp/doppler"
)

func TestWebSocketHandler(t *testing.T) {
	srv := NewDopplerServer(DefaultSeed())
	ts := httptest.NewServer(srv.WebSocketHandler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	ctx := context.Background()

	transport, err := client.DialWebSocket(ctx, url)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	session := client.New(transport)
	t.Cleanup(func() { _ = session.Close() })

	info, err := session.Initialize(ctx)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if info.Name != "fake-doppler" {
		t.Errorf("server name = %q", info.Name)
	}

	dc := doppler.NewClient(session)

	secrets, err := dc.ListSecrets(ctx, "demo", "dev")
	if err != nil {
		t.Fatalf("list secrets: %v", err)
	}
	if secrets["API_KEY"] != "sk-demo-12345" {
		t.Errorf("API_KEY = %q", secrets["API_KEY"])
	}

	// Two connections share the same world.
	second, err := client.DialWebSocket(ctx, url)
	if err != nil {
		t.Fatalf("dial second: %v", err)
	}
	session2 := client.New(second)
	t.Cleanup(func() { _ = session2.Close() })
	if _, err := session2.Initialize(ctx); err != nil {
		t.Fatalf("initialize second: %v", err)
	}

	dc2 := doppler.NewClient(session2)
	if err := dc2.SetSecret(ctx, "demo", "dev", "SHARED", "yes"); err != nil {
		t.Fatalf("set secret: %v", err)
	}
	value, err := dc.GetSecret(ctx, "demo", "dev", "SHARED")
	if err != nil {
		t.Fatalf("get secret: %v", err)
	}
	if value != "yes" {
		t.Errorf("value = %q, want %q", value, "yes")
	}
}
