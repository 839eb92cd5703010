package world

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grapevine/internal/grapevine"
	"grapevine/internal/llm/llmtest"
	"grapevine/internal/memory"
)

const testScenario = `
player: Traveller
world: A quiet village.
agents:
  - name: Alice
    pronoun: her
    age: 30
    traits: [warm]
    statuses: [baking]
    seed: "Alice bakes bread; Alice knows Bob"
  - name: Bob
    age: 41
    seed: "Bob forges swords"
edges:
  - {from: Alice, to: Bob, d: 7, e: 3, mutual: true}
  - {from: Traveller, to: Alice, d: 2, e: 0, mutual: true}
  - {from: Bob, to: Traveller, d: 1, e: -1}
`

func TestParseScenario(t *testing.T) {
	s, err := ParseScenario([]byte(testScenario))
	require.NoError(t, err)

	assert.Equal(t, "Traveller", s.Player)
	require.Len(t, s.Agents, 2)
	assert.Equal(t, []string{"warm"}, s.Agents[0].Traits)

	assert.Equal(t, []grapevine.EdgeSpec{
		{From: "Alice", To: "Bob", D: 7, E: 3},
		{From: "Bob", To: "Alice", D: 7, E: 3},
		{From: "Traveller", To: "Alice", D: 2, E: 0},
		{From: "Alice", To: "Traveller", D: 2, E: 0},
		{From: "Bob", To: "Traveller", D: 1, E: -1},
	}, s.EdgeSpecs())
}

func TestParseScenarioRejectsBadNames(t *testing.T) {
	tests := map[string]string{
		"no player":     "agents: [{name: A}]",
		"duplicate":     "player: P\nagents: [{name: A}, {name: A}]",
		"player clash":  "player: A\nagents: [{name: A}]",
		"unnamed agent": "player: P\nagents: [{age: 3}]",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseScenario([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalidScenario)
		})
	}
}

func TestLoadBundledScenario(t *testing.T) {
	s, err := LoadScenario(filepath.Join("..", "..", "scenarios", "aleria.yaml"))
	require.NoError(t, err)
	assert.Len(t, s.Agents, 4)
	assert.NotEmpty(t, s.World)
}

func buildTestWorld(t *testing.T, fake *llmtest.Fake) *World {
	t.Helper()
	s, err := ParseScenario([]byte(testScenario))
	require.NoError(t, err)

	w, err := Build(context.Background(), s, Deps{
		LLM:    fake,
		Memory: memory.DefaultConfig(),
		Rand:   rand.New(rand.NewSource(1)),
		Clock:  NewClock(0, 1),
	})
	require.NoError(t, err)
	return w
}

func TestBuild(t *testing.T) {
	w := buildTestWorld(t, llmtest.New())

	assert.Equal(t, []string{"Traveller", "Alice", "Bob"}, w.Graph.Nodes())
	require.Len(t, w.Agents(), 2)

	alice, err := w.Agent("Alice")
	require.NoError(t, err)
	assert.Equal(t, 2, alice.Memory().Len())

	_, err = w.Agent("Traveller")
	assert.ErrorIs(t, err, grapevine.ErrUnknownNode)
}

func TestBuildRejectsBadEdges(t *testing.T) {
	s, err := ParseScenario([]byte("player: P\nagents: [{name: A}]\nedges: [{from: A, to: Z, d: 1}]"))
	require.NoError(t, err)

	_, err = Build(context.Background(), s, Deps{LLM: llmtest.New(), Memory: memory.DefaultConfig()})
	assert.ErrorIs(t, err, grapevine.ErrUnknownNode)
}

func TestObserveAdvancesClock(t *testing.T) {
	fake := llmtest.New().Script("memory.importance", "9")
	w := buildTestWorld(t, fake)
	start := w.Clock.Now()

	require.NoError(t, w.Observe(context.Background(), "Bob", "A dragon was seen over the hills"))
	bob, _ := w.Agent("Bob")
	records := bob.Memory().Records()
	require.Len(t, records, 2)
	assert.Equal(t, start+1, records[1].Timestamp)

	assert.ErrorIs(t, w.Observe(context.Background(), "Nobody", "x"), grapevine.ErrUnknownNode)
}

func TestConversation(t *testing.T) {
	fake := llmtest.New().
		Script("agent.dialogue", "Alice: Fresh bread, traveller?").
		Script("agent.dialogue_summary", "The traveller asked about bread\nAlice offered a loaf").
		Script("agent.emotion_level", "4").
		Script("grapevine.player_emotion", "9").
		Script("memory.importance", "6")
	w := buildTestWorld(t, fake)
	ctx := context.Background()

	conv, err := w.StartConversation("Alice")
	require.NoError(t, err)

	reply, err := conv.Say(ctx, "Hello there!")
	require.NoError(t, err)
	assert.Equal(t, "Alice: Fresh bread, traveller?", reply)
	assert.Equal(t, []string{"Traveller: Hello there!", "Alice: Fresh bread, traveller?"}, conv.History())

	dialogue := fake.Calls("agent.dialogue")
	require.Len(t, dialogue, 1)
	assert.Contains(t, dialogue[0].Prompt(), "Alice is conversing with Traveller")

	_, err = conv.Say(ctx, "   ")
	assert.Error(t, err)

	statements, err := conv.End(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"The traveller asked about bread", "Alice offered a loaf"}, statements)

	alice, _ := w.Agent("Alice")
	assert.Equal(t, 4, alice.Memory().Len())

	pa, _ := w.Graph.Edge("Traveller", "Alice")
	ap, _ := w.Graph.Edge("Alice", "Traveller")
	assert.Equal(t, 9.0, pa.E)
	assert.Equal(t, 4.0, ap.E)

	_, err = w.StartConversation("Nobody")
	assert.ErrorIs(t, err, grapevine.ErrUnknownNode)
}

func TestClock(t *testing.T) {
	c := NewClock(10, 0)
	assert.Equal(t, 10.0, c.Now())
	assert.Equal(t, 11.0, c.Advance())
	assert.Equal(t, 11.0, c.Now())
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("player: [unclosed"), 0o644))
	_, err = LoadScenario(path)
	assert.Error(t, err)
}
