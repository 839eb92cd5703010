package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"grapevine/internal/observability"
)

func TestWithSimContextMerges(t *testing.T) {
	ctx := WithSimContext(context.Background(), map[string]interface{}{"agent": "Mira"})
	ctx = WithSimContext(ctx, map[string]interface{}{"receiver": "Thorne"})

	simCtx := getSimContext(ctx)
	assert.Equal(t, "Mira", simCtx["agent"])
	assert.Equal(t, "Thorne", simCtx["receiver"])
}

func TestOperationTypeAndSession(t *testing.T) {
	ctx := WithOperationType(context.Background(), "memory.importance")
	ctx = WithSessionID(ctx, "session-1")

	assert.Equal(t, "memory.importance", OperationType(ctx))
	assert.Equal(t, "session-1", observability.GetSessionIDFromContext(ctx))
	assert.Equal(t, "", OperationType(context.Background()))
}
