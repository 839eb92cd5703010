package observability

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const ServiceName = "grapevine"

// Config holds the configuration for OpenTelemetry tracing
type Config struct {
	ServiceVersion string
	Environment    string
	Enabled        bool
	LangfuseHost   string
	PublicKey      string
	SecretKey      string
}

// TracerProvider wraps the OpenTelemetry tracer provider with cleanup
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	enabled  bool
}

// InitTracing installs a global tracer provider exporting to Langfuse over OTLP/HTTP.
// With tracing disabled the global provider is left untouched and spans are no-ops.
func InitTracing(ctx context.Context, config Config) (*TracerProvider, error) {
	if !config.Enabled {
		return &TracerProvider{enabled: false}, nil
	}

	exporter, err := createLangfuseExporter(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Langfuse exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(5*time.Second),
			sdktrace.WithMaxExportBatchSize(100),
		),
		sdktrace.WithResource(createResource(config)),
		sdktrace.WithSpanProcessor(sessionInjector{}),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)

	return &TracerProvider{
		provider: tp,
		enabled:  true,
	}, nil
}

// GetTracer returns a tracer for the given name
func (tp *TracerProvider) GetTracer(name string, options ...trace.TracerOption) trace.Tracer {
	if !tp.enabled {
		return noop.NewTracerProvider().Tracer(name, options...)
	}
	return otel.Tracer(name, options...)
}

// Shutdown flushes pending spans and stops the exporter.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if !tp.enabled || tp.provider == nil {
		return nil
	}
	return tp.provider.Shutdown(ctx)
}

func (tp *TracerProvider) IsEnabled() bool {
	return tp.enabled
}

func createLangfuseExporter(ctx context.Context, config Config) (sdktrace.SpanExporter, error) {
	auth := base64.StdEncoding.EncodeToString([]byte(config.PublicKey + ":" + config.SecretKey))

	host := strings.TrimSuffix(config.LangfuseHost, "/")
	endpoint := fmt.Sprintf("%s/api/public/otel/v1/traces", host)

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(endpoint),
		otlptracehttp.WithHeaders(map[string]string{
			"Authorization": "Basic " + auth,
		}),
		otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
		otlptracehttp.WithTimeout(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP HTTP exporter: %w", err)
	}

	return exporter, nil
}

func createResource(config Config) *resource.Resource {
	return resource.NewWithAttributes(
		"",
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(config.ServiceVersion),
		attribute.String("deployment.environment", config.Environment),
	)
}

// CreateGenAIAttributes creates GenAI semantic convention attributes for LLM spans.
// A negative temperature is omitted.
func CreateGenAIAttributes(system, model string, inputTokens, outputTokens int, temperature float64) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("gen_ai.operation.name", "chat"),
		attribute.String("gen_ai.system", system),
		attribute.String("gen_ai.request.model", model),
	}

	if inputTokens > 0 {
		attrs = append(attrs, attribute.Int("gen_ai.usage.input_tokens", inputTokens))
	}

	if outputTokens > 0 {
		attrs = append(attrs, attribute.Int("gen_ai.usage.output_tokens", outputTokens))
	}

	if temperature >= 0 {
		attrs = append(attrs, attribute.Float64("gen_ai.request.temperature", temperature))
	}

	return attrs
}

// CreateTickAttributes tags a diffusion tick span.
func CreateTickAttributes(tick int, nodes, edges int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("langfuse.trace.name", "grapevine.tick"),
		attribute.Int("grapevine.tick", tick),
		attribute.Int("grapevine.nodes", nodes),
		attribute.Int("grapevine.edges", edges),
	}
}

type sessionInjector struct{}

func (sessionInjector) OnStart(ctx context.Context, s sdktrace.ReadWriteSpan) {
	if sid := GetSessionIDFromContext(ctx); sid != "" {
		s.SetAttributes(
			attribute.String("langfuse.session.id", sid),
			attribute.String("session.id", sid),
		)
	}
}

func (sessionInjector) OnEnd(s sdktrace.ReadOnlySpan)      {}
func (sessionInjector) Shutdown(context.Context) error   { return nil }
func (sessionInjector) ForceFlush(context.Context) error { return nil }

type contextKey string

const sessionIDKey contextKey = "session_id"

func GetSessionIDFromContext(ctx context.Context) string {
	if sessionID, ok := ctx.Value(sessionIDKey).(string); ok {
		return sessionID
	}
	return ""
}

func GetSessionIDKey() contextKey {
	return sessionIDKey
}
