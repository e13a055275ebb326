package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/dopplerkit/dopplermcp/protocol"
)

const instrumentationName = "github.com/dopplerkit/dopplermcp"

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*otelConfig)

type otelConfig struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	serviceName    string
	skipMethods    map[string]bool
}

// WithTracerProvider sets a custom tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *otelConfig) {
		c.tracerProvider = tp
	}
}

// WithMeterProvider sets a custom meter provider.
func WithMeterProvider(mp metric.MeterProvider) OTelOption {
	return func(c *otelConfig) {
		c.meterProvider = mp
	}
}

// WithOTelServiceName sets the service name for telemetry.
func WithOTelServiceName(name string) OTelOption {
	return func(c *otelConfig) {
		c.serviceName = name
	}
}

// WithOTelSkipMethods specifies methods to skip for tracing.
func WithOTelSkipMethods(methods ...string) OTelOption {
	return func(c *otelConfig) {
		for _, m := range methods {
			c.skipMethods[m] = true
		}
	}
}

// instruments holds the metric handles shared by every request.
type instruments struct {
	requests metric.Int64Counter
	failures metric.Int64Counter
	latency  metric.Float64Histogram
}

func newInstruments(meter metric.Meter) instruments {
	var inst instruments
	inst.requests, _ = meter.Int64Counter(
		"mcp.client.requests",
		metric.WithDescription("Total number of MCP requests sent"),
		metric.WithUnit("{request}"),
	)
	inst.failures, _ = meter.Int64Counter(
		"mcp.client.errors",
		metric.WithDescription("Total number of failed MCP requests"),
		metric.WithUnit("{error}"),
	)
	inst.latency, _ = meter.Float64Histogram(
		"mcp.client.request.duration",
		metric.WithDescription("Duration of MCP requests"),
		metric.WithUnit("ms"),
	)
	return inst
}

// OTel returns middleware that adds OpenTelemetry tracing and metrics to
// the outbound send path. Each request becomes a client span; counts and
// latency are recorded per method, and tool calls additionally carry the
// tool name.
func OTel(opts ...OTelOption) Middleware {
	cfg := &otelConfig{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		serviceName:    "dopplermcp",
		skipMethods:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	tracer := cfg.tracerProvider.Tracer(
		instrumentationName,
		trace.WithInstrumentationVersion("1.0.0"),
	)
	inst := newInstruments(cfg.meterProvider.Meter(
		instrumentationName,
		metric.WithInstrumentationVersion("1.0.0"),
	))

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			if cfg.skipMethods[req.Method] {
				return next(ctx, req)
			}

			attrs := []attribute.KeyValue{
				attribute.String("mcp.method", req.Method),
				attribute.String("service.name", cfg.serviceName),
			}
			if tool := toolName(req); tool != "" {
				attrs = append(attrs, attribute.String("mcp.tool", tool))
			}

			ctx, span := tracer.Start(ctx, "mcp."+req.Method,
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(attrs...),
			)
			defer span.End()
			if id := RequestIDFromContext(ctx); id != "" {
				span.SetAttributes(attribute.String("mcp.request_id", id))
			}

			start := time.Now()
			inst.requests.Add(ctx, 1, metric.WithAttributes(attrs...))

			resp, err := next(ctx, req)

			elapsed := float64(time.Since(start).Milliseconds())
			inst.latency.Record(ctx, elapsed, metric.WithAttributes(attrs...))

			rpcErr := rpcError(resp, err)
			switch {
			case err != nil:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			case rpcErr != nil:
				span.SetStatus(codes.Error, rpcErr.Message)
			default:
				span.SetStatus(codes.Ok, "")
				return resp, nil
			}

			if rpcErr != nil {
				span.SetAttributes(attribute.Int("mcp.error_code", rpcErr.Code))
				attrs = append(attrs, attribute.Int("mcp.error_code", rpcErr.Code))
			}
			inst.failures.Add(ctx, 1, metric.WithAttributes(attrs...))
			return resp, err
		}
	}
}

// rpcError digs the protocol-level error out of a failed exchange,
// whether it surfaced as a Go error or inside the response envelope.
func rpcError(resp *protocol.Response, err error) *protocol.Error {
	var perr *protocol.Error
	if errors.As(err, &perr) {
		return perr
	}
	if resp != nil && resp.Error != nil {
		return resp.Error
	}
	return nil
}

// toolName extracts the tool name from a tools/call request, or returns
// an empty string for other methods.
func toolName(req *protocol.Request) string {
	if req.Method != protocol.MethodToolsCall || len(req.Params) == 0 {
		return ""
	}
	var params protocol.ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return ""
	}
	return params.Name
}

// SpanFromContext returns the span recorded on the context, or a no-op
// span when tracing is not active.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent adds an event to the current span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanAttribute sets an attribute on the current span, mapping the
// Go value to the matching attribute kind.
func SetSpanAttribute(ctx context.Context, key string, value any) {
	span := trace.SpanFromContext(ctx)
	switch v := value.(type) {
	case string:
		span.SetAttributes(attribute.String(key, v))
	case int:
		span.SetAttributes(attribute.Int(key, v))
	case int64:
		span.SetAttributes(attribute.Int64(key, v))
	case float64:
		span.SetAttributes(attribute.Float64(key, v))
	case bool:
		span.SetAttributes(attribute.Bool(key, v))
	case []string:
		span.SetAttributes(attribute.StringSlice(key, v))
	}
}
