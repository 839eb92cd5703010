package mcp

import (
	"context"
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grapevine/internal/grapevine"
	"grapevine/internal/llm/llmtest"
	"grapevine/internal/memory"
	"grapevine/internal/world"
)

const scenario = `
player: Traveller
world: A quiet village.
agents:
  - name: Alice
    seed: "Alice bakes bread; Alice knows Bob"
  - name: Bob
    seed: "Bob forges swords"
edges:
  - {from: Alice, to: Bob, d: 7, e: 3, mutual: true}
  - {from: Traveller, to: Alice, d: 2, e: 0, mutual: true}
`

func newTestServer(t *testing.T, fake *llmtest.Fake) *Server {
	t.Helper()
	s, err := world.ParseScenario([]byte(scenario))
	require.NoError(t, err)
	cfg := memory.DefaultConfig()
	cfg.Recency = memory.RecencyFreshness
	w, err := world.Build(context.Background(), s, world.Deps{
		LLM:    fake,
		Memory: cfg,
		Rand:   rand.New(rand.NewSource(1)),
	})
	require.NoError(t, err)
	return NewServer(w, nil)
}

func params[In any](args In) *mcp.CallToolParamsFor[In] {
	return &mcp.CallToolParamsFor[In]{Arguments: args}
}

func text(t *testing.T, res *mcp.CallToolResultFor[any]) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestObserveAndQuery(t *testing.T) {
	s := newTestServer(t, llmtest.New())
	ctx := context.Background()

	res, err := s.Observe(ctx, nil, params(ObserveArgs{Agent: "Bob", Text: "Bob saw a dragon"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "Bob observed: Bob saw a dragon", text(t, res))

	res, err = s.QueryMemory(ctx, nil, params(QueryArgs{Agent: "Bob", Query: "dragon", K: 10}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	var memories []string
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &memories))
	assert.Len(t, memories, 2)
	assert.Equal(t, "Bob saw a dragon", memories[0])
}

func TestUnknownAgentIsToolError(t *testing.T) {
	s := newTestServer(t, llmtest.New())
	ctx := context.Background()

	res, err := s.Observe(ctx, nil, params(ObserveArgs{Agent: "Nobody", Text: "hi"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "Nobody")

	res, err = s.Observe(ctx, nil, params(ObserveArgs{Agent: "Bob", Text: "  "}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.Reflect(ctx, nil, params(ReflectArgs{Agent: "Traveller"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestGraphTool(t *testing.T) {
	s := newTestServer(t, llmtest.New())
	ctx := context.Background()

	res, err := s.Graph(ctx, nil, params(GraphArgs{}))
	require.NoError(t, err)
	var edges []grapevine.EdgeSnapshot
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &edges))
	assert.Len(t, edges, 4)

	res, err = s.Graph(ctx, nil, params(GraphArgs{Around: "Bob", By: "emotion", Thresh: 5}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	res, err = s.Graph(ctx, nil, params(GraphArgs{Around: "Bob", By: "mood"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestTickTool(t *testing.T) {
	s := newTestServer(t, llmtest.New())

	res, err := s.Tick(context.Background(), nil, params(TickArgs{Count: 2}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	var reports []grapevine.TickReport
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &reports))
	require.Len(t, reports, 2)
	assert.Equal(t, 1, reports[0].Tick)
	assert.Equal(t, 2, reports[1].Tick)
}

func TestTalkConversation(t *testing.T) {
	fake := llmtest.New().
		Script("agent.dialogue", "Alice: Bread?").
		Script("agent.dialogue_summary", "The traveller wanted bread")
	s := newTestServer(t, fake)
	ctx := context.Background()

	res, err := s.Talk(ctx, nil, params(TalkArgs{Agent: "Alice", Line: "Hello"}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	var reply TalkReply
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &reply))
	assert.NotEmpty(t, reply.ConversationID)
	assert.Equal(t, "Alice: Bread?", reply.Reply)

	res, err = s.Talk(ctx, nil, params(TalkArgs{ConversationID: reply.ConversationID, End: true}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	var closed TalkReply
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &closed))
	assert.Equal(t, []string{"The traveller wanted bread"}, closed.Remembered)

	res, err = s.Talk(ctx, nil, params(TalkArgs{ConversationID: reply.ConversationID, Line: "Still there?"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
