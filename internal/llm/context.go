package llm

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"grapevine/internal/observability"
)

type contextKey string

const (
	operationTypeKey contextKey = "operation_type"
	simContextKey    contextKey = "sim_context"
)

func WithOperationType(ctx context.Context, opType string) context.Context {
	return context.WithValue(ctx, operationTypeKey, opType)
}

// WithSimContext attaches simulation attributes (agent, receiver, tick...) that
// are copied onto every LLM span started under ctx.
func WithSimContext(ctx context.Context, simCtx map[string]interface{}) context.Context {
	// Merge with any existing context instead of overwriting
	if existing, ok := ctx.Value(simContextKey).(map[string]interface{}); ok && existing != nil {
		merged := make(map[string]interface{}, len(existing)+len(simCtx))
		for k, v := range existing {
			merged[k] = v
		}
		for k, v := range simCtx {
			merged[k] = v
		}
		return context.WithValue(ctx, simContextKey, merged)
	}
	return context.WithValue(ctx, simContextKey, simCtx)
}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, observability.GetSessionIDKey(), sessionID)
}

// OperationType returns the operation tag set by WithOperationType, or "".
func OperationType(ctx context.Context) string {
	if opType, ok := ctx.Value(operationTypeKey).(string); ok {
		return opType
	}
	return ""
}

func getSimContext(ctx context.Context) map[string]interface{} {
	if simCtx, ok := ctx.Value(simContextKey).(map[string]interface{}); ok {
		return simCtx
	}
	return nil
}

// CopySimContextToSpan attaches simulation context and session id attributes to an existing span.
func CopySimContextToSpan(ctx context.Context, span trace.Span) {
	if span == nil {
		return
	}
	if sid := observability.GetSessionIDFromContext(ctx); sid != "" {
		span.SetAttributes(
			attribute.String("langfuse.session.id", sid),
			attribute.String("session.id", sid),
		)
	}
	for k, v := range getSimContext(ctx) {
		switch val := v.(type) {
		case string:
			span.SetAttributes(attribute.String("grapevine."+k, val))
		case int:
			span.SetAttributes(attribute.Int("grapevine."+k, val))
		case float64:
			span.SetAttributes(attribute.Float64("grapevine."+k, val))
		case []string:
			span.SetAttributes(attribute.StringSlice("grapevine."+k, val))
		}
	}
}
