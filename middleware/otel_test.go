package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/dopplerkit/dopplermcp/protocol"
)

// tracing wires OTel middleware to an in-memory span exporter.
func tracing(t *testing.T, opts ...OTelOption) (*tracetest.InMemoryExporter, Middleware) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter, OTel(append([]OTelOption{WithTracerProvider(tp)}, opts...)...)
}

func spanAttr(stub tracetest.SpanStub, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range stub.Attributes {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func onlySpan(t *testing.T, exporter *tracetest.InMemoryExporter) tracetest.SpanStub {
	t.Helper()
	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	return spans[0]
}

func TestOTel(t *testing.T) {
	t.Run("wraps each request in a client span", func(t *testing.T) {
		exporter, mw := tracing(t)
		send := mw(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			return protocol.NewResponse(req.ID, "ok"), nil
		})

		if _, err := send(context.Background(), rpcReq("tools/list", nil)); err != nil {
			t.Fatalf("send: %v", err)
		}

		span := onlySpan(t, exporter)
		if span.Name != "mcp.tools/list" {
			t.Errorf("span name = %q", span.Name)
		}
		if span.SpanKind != trace.SpanKindClient {
			t.Errorf("span kind = %v, want client", span.SpanKind)
		}
		if v, ok := spanAttr(span, "mcp.method"); !ok || v.AsString() != "tools/list" {
			t.Errorf("mcp.method = %v (present %v)", v.AsString(), ok)
		}
		if v, ok := spanAttr(span, "service.name"); !ok || v.AsString() != "dopplermcp" {
			t.Errorf("service.name = %v (present %v)", v.AsString(), ok)
		}
	})

	t.Run("tool calls carry the tool name", func(t *testing.T) {
		exporter, mw := tracing(t)
		send := mw(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			return protocol.NewResponse(req.ID, "ok"), nil
		})

		params := json.RawMessage(`{"name":"doppler_get_secret","arguments":{"project":"demo"}}`)
		if _, err := send(context.Background(), rpcReq(protocol.MethodToolsCall, params)); err != nil {
			t.Fatalf("send: %v", err)
		}

		if v, ok := spanAttr(onlySpan(t, exporter), "mcp.tool"); !ok || v.AsString() != "doppler_get_secret" {
			t.Errorf("mcp.tool = %q (present %v)", v.AsString(), ok)
		}
	})

	t.Run("transport errors mark the span", func(t *testing.T) {
		exporter, mw := tracing(t)
		send := mw(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			return nil, errors.New("pipe closed")
		})

		if _, err := send(context.Background(), rpcReq(protocol.MethodToolsCall, nil)); err == nil {
			t.Fatal("expected the error to surface")
		}

		span := onlySpan(t, exporter)
		if len(span.Events) == 0 {
			t.Error("no error event recorded on the span")
		}
		if _, ok := spanAttr(span, "mcp.error_code"); ok {
			t.Error("plain transport errors should carry no RPC code")
		}
	})

	t.Run("typed errors carry their code", func(t *testing.T) {
		exporter, mw := tracing(t)
		send := mw(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			return nil, protocol.NewNotFound("tool not found")
		})

		_, _ = send(context.Background(), rpcReq(protocol.MethodToolsCall, nil))

		if v, ok := spanAttr(onlySpan(t, exporter), "mcp.error_code"); !ok || v.AsInt64() != int64(protocol.CodeNotFound) {
			t.Errorf("mcp.error_code = %d (present %v)", v.AsInt64(), ok)
		}
	})

	t.Run("error responses inside the envelope count too", func(t *testing.T) {
		exporter, mw := tracing(t)
		send := mw(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			return protocol.NewErrorResponse(req.ID, protocol.NewInvalidParams("missing project")), nil
		})

		if _, err := send(context.Background(), rpcReq(protocol.MethodToolsCall, nil)); err != nil {
			t.Fatalf("send: %v", err)
		}

		if v, ok := spanAttr(onlySpan(t, exporter), "mcp.error_code"); !ok || v.AsInt64() != int64(protocol.CodeInvalidParams) {
			t.Errorf("mcp.error_code = %d (present %v)", v.AsInt64(), ok)
		}
	})

	t.Run("the skip list bypasses tracing", func(t *testing.T) {
		exporter, mw := tracing(t, WithOTelSkipMethods("ping"))
		send := mw(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			return protocol.NewResponse(req.ID, "ok"), nil
		})

		if _, err := send(context.Background(), rpcReq("ping", nil)); err != nil {
			t.Fatalf("send: %v", err)
		}
		if n := len(exporter.GetSpans()); n != 0 {
			t.Errorf("got %d spans for a skipped method", n)
		}
	})

	t.Run("a custom service name travels on every span", func(t *testing.T) {
		exporter, mw := tracing(t, WithOTelServiceName("doppler-cli"))
		send := mw(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			return protocol.NewResponse(req.ID, "ok"), nil
		})

		_, _ = send(context.Background(), rpcReq("tools/list", nil))

		if v, ok := spanAttr(onlySpan(t, exporter), "service.name"); !ok || v.AsString() != "doppler-cli" {
			t.Errorf("service.name = %q (present %v)", v.AsString(), ok)
		}
	})

	t.Run("constructs against the global providers", func(t *testing.T) {
		if OTel() == nil {
			t.Fatal("nil middleware")
		}
	})

	t.Run("records request counts", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

		_, mw := tracing(t, WithMeterProvider(mp))
		send := mw(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			return protocol.NewResponse(req.ID, "ok"), nil
		})

		for i := 0; i < 3; i++ {
			if _, err := send(context.Background(), rpcReq("tools/list", nil)); err != nil {
				t.Fatalf("send: %v", err)
			}
		}

		var rm metricdata.ResourceMetrics
		if err := reader.Collect(context.Background(), &rm); err != nil {
			t.Fatalf("collect: %v", err)
		}

		var total int64
		for _, scope := range rm.ScopeMetrics {
			for _, m := range scope.Metrics {
				if m.Name != "mcp.client.requests" {
					continue
				}
				sum, ok := m.Data.(metricdata.Sum[int64])
				if !ok {
					t.Fatalf("mcp.client.requests data type = %T", m.Data)
				}
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
		if total != 3 {
			t.Errorf("request count = %d, want 3", total)
		}
	})
}

func rpcReq(method string, params json.RawMessage) *protocol.Request {
	return &protocol.Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  method,
		Params:  params,
	}
}

func TestSpanHelpers(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	tracer := tp.Tracer("helpers")
	ctx, span := tracer.Start(context.Background(), "call")

	if got := SpanFromContext(ctx); got != span {
		t.Error("SpanFromContext did not return the active span")
	}

	AddSpanEvent(ctx, "cache-miss", attribute.String("key", "API_KEY"))

	SetSpanAttribute(ctx, "project", "demo")
	SetSpanAttribute(ctx, "page", 2)
	SetSpanAttribute(ctx, "rows", int64(40))
	SetSpanAttribute(ctx, "ratio", 0.5)
	SetSpanAttribute(ctx, "dry_run", true)
	SetSpanAttribute(ctx, "names", []string{"API_KEY", "DATABASE_URL"})
	span.End()

	stub := onlySpan(t, exporter)
	if len(stub.Events) != 1 || stub.Events[0].Name != "cache-miss" {
		t.Errorf("events = %+v", stub.Events)
	}

	for _, key := range []attribute.Key{"project", "page", "rows", "ratio", "dry_run", "names"} {
		if _, ok := spanAttr(stub, key); !ok {
			t.Errorf("attribute %q was not set", key)
		}
	}
}
