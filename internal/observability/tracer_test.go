package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInitTracingDisabled(t *testing.T) {
	tp, err := InitTracing(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.GetTracer("test"))
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestCreateGenAIAttributes(t *testing.T) {
	attrs := CreateGenAIAttributes("openai", "gpt-4o-mini", 0, 12, -1)

	keys := map[attribute.Key]attribute.Value{}
	for _, kv := range attrs {
		keys[kv.Key] = kv.Value
	}

	assert.Equal(t, "gpt-4o-mini", keys["gen_ai.request.model"].AsString())
	assert.Equal(t, int64(12), keys["gen_ai.usage.output_tokens"].AsInt64())
	_, hasInput := keys["gen_ai.usage.input_tokens"]
	assert.False(t, hasInput)
	_, hasTemp := keys["gen_ai.request.temperature"]
	assert.False(t, hasTemp)
}

func TestSessionIDRoundTrip(t *testing.T) {
	ctx := context.WithValue(context.Background(), GetSessionIDKey(), "abc")
	assert.Equal(t, "abc", GetSessionIDFromContext(ctx))
	assert.Equal(t, "", GetSessionIDFromContext(context.Background()))
}
