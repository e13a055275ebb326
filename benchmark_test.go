// Package dopplermcp benchmarks for key operations.
package dopplermcp_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dopplerkit/dopplermcp"
	"github.com/dopplerkit/dopplermcp/mcptest"
	"github.com/dopplerkit/dopplermcp/middleware"
	"github.com/dopplerkit/dopplermcp/protocol"
	"github.com/dopplerkit/dopplermcp/schema"
)

// newBenchClient wires a client to the fake server over in-process pipes.
func newBenchClient(b *testing.B) *dopplermcp.Client {
	b.Helper()

	srv := mcptest.NewDopplerServer(mcptest.DefaultSeed())
	session := dopplermcp.New(mcptest.NewPipeTransport(srv))
	b.Cleanup(func() { _ = session.Close() })

	if _, err := session.Initialize(context.Background()); err != nil {
		b.Fatal(err)
	}
	return dopplermcp.NewClient(session)
}

// BenchmarkSessionPing measures a full request/response round trip
// through the serve loop, pipes included.
func BenchmarkSessionPing(b *testing.B) {
	dc := newBenchClient(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := dc.Ping(ctx); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkToolCall measures a typed tool call: argument marshaling,
// server-side schema validation and envelope unwrapping.
func BenchmarkToolCall(b *testing.B) {
	dc := newBenchClient(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dc.GetSecret(ctx, "demo", "dev", "API_KEY"); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkMiddlewareChain measures middleware chain overhead.
func BenchmarkMiddlewareChain(b *testing.B) {
	baseHandler := func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
		return protocol.NewResponse(req.ID, map[string]any{"status": "ok"}), nil
	}

	req := &protocol.Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  "ping",
	}

	b.Run("no_middleware", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, err := baseHandler(context.Background(), req)
			if err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("single_middleware", func(b *testing.B) {
		handler := middleware.Chain(middleware.RequestID())(baseHandler)

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, err := handler(context.Background(), req)
			if err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("default_stack", func(b *testing.B) {
		stack := middleware.DefaultStack(middleware.NopLogger{})
		handler := middleware.Chain(stack...)(baseHandler)

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, err := handler(context.Background(), req)
			if err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkJSONParsing measures wire-level encode/decode performance.
func BenchmarkJSONParsing(b *testing.B) {
	b.Run("request_unmarshal", func(b *testing.B) {
		data := []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"doppler_get_secret","arguments":{"project":"demo","config":"dev","name":"API_KEY"}}}`)

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			var req protocol.Request
			if err := json.Unmarshal(data, &req); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("response_parse", func(b *testing.B) {
		data := []byte(`{"jsonrpc":"2.0","id":1,"result":{"content":[{"type":"text","text":"sk-demo-12345"}]}}`)

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := protocol.ParseResponse(data); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("response_marshal", func(b *testing.B) {
		resp := protocol.NewResponse(json.RawMessage(`1`), protocol.TextResult("sk-demo-12345"))

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, err := json.Marshal(resp)
			if err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkSchemaGeneration measures JSON schema generation.
func BenchmarkSchemaGeneration(b *testing.B) {
	b.Run("simple_struct", func(b *testing.B) {
		type SimpleArgs struct {
			Project string `json:"project" jsonschema:"required"`
			Config  string `json:"config" jsonschema:"required"`
		}

		for i := 0; i < b.N; i++ {
			if _, err := schema.Generate(SimpleArgs{}); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("complex_struct", func(b *testing.B) {
		type ComplexArgs struct {
			Project string   `json:"project" jsonschema:"required"`
			Names   []string `json:"names" jsonschema:"required,description=Secret names"`
			Access  string   `json:"access,omitempty" jsonschema:"enum=read|read/write,default=read"`
			Page    int      `json:"page,omitempty" jsonschema:"minimum=1,maximum=100,default=1"`
		}

		for i := 0; i < b.N; i++ {
			if _, err := schema.Generate(ComplexArgs{}); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkSchemaValidation measures argument validation against a
// generated schema.
func BenchmarkSchemaValidation(b *testing.B) {
	type Args struct {
		Project string `json:"project" jsonschema:"required"`
		Config  string `json:"config" jsonschema:"required"`
		Name    string `json:"name" jsonschema:"required"`
	}

	s, err := schema.Generate(Args{})
	if err != nil {
		b.Fatal(err)
	}
	payload := json.RawMessage(`{"project":"demo","config":"dev","name":"API_KEY"}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.Validate(payload); err != nil {
			b.Fatal(err)
		}
	}
}
