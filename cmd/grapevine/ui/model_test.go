package ui

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grapevine/internal/llm/llmtest"
	"grapevine/internal/memory"
	"grapevine/internal/world"
)

const scenario = `
player: Traveller
agents:
  - name: Alice
    seed: "Alice bakes bread"
  - name: Bob
    seed: "Bob forges swords"
edges:
  - {from: Alice, to: Bob, d: 7, e: 3, mutual: true}
  - {from: Traveller, to: Alice, d: 2, e: 0, mutual: true}
`

func newTestModel(t *testing.T, fake *llmtest.Fake) Model {
	t.Helper()
	s, err := world.ParseScenario([]byte(scenario))
	require.NoError(t, err)
	w, err := world.Build(context.Background(), s, world.Deps{
		LLM:    fake,
		Memory: memory.DefaultConfig(),
		Rand:   rand.New(rand.NewSource(1)),
	})
	require.NoError(t, err)
	return NewModel(w, nil)
}

func typeLine(t *testing.T, m Model, line string) (Model, tea.Cmd) {
	t.Helper()
	var model tea.Model = m
	for _, r := range line {
		if r == ' ' {
			model, _ = model.Update(tea.KeyMsg{Type: tea.KeySpace})
			continue
		}
		model, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return model.(Model), cmd
}

// drain runs a batched command and feeds every non-animation message back.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if c == nil {
				continue
			}
			inner := c()
			if _, ok := inner.(animationTickMsg); ok {
				continue
			}
			next, _ := m.Update(inner)
			m = next.(Model)
		}
		return m
	}
	next, _ := m.Update(msg)
	return next.(Model)
}

func last(m Model, n int) []string {
	msgs := m.Messages()
	if len(msgs) < n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}

func TestTalkFlow(t *testing.T) {
	fake := llmtest.New().
		Script("agent.dialogue", "Alice: Bread?").
		Script("agent.dialogue_summary", "The traveller wanted bread")
	m := newTestModel(t, fake)

	m, cmd := typeLine(t, m, "hello")
	assert.Nil(t, cmd)
	assert.Contains(t, strings.Join(m.Messages(), "\n"), "Nobody is listening")

	m, cmd = typeLine(t, m, "/talk Alice")
	assert.Nil(t, cmd)
	require.True(t, m.InConversation())

	m, cmd = typeLine(t, m, "fresh bread please")
	require.NotNil(t, cmd)
	m = drain(t, m, cmd)
	assert.Equal(t, []string{"Alice: Bread?", ""}, last(m, 2))
	assert.NotContains(t, m.Messages(), loadingMarker)

	m, cmd = typeLine(t, m, "/end")
	m = drain(t, m, cmd)
	assert.False(t, m.InConversation())
	assert.Equal(t, []string{"You leave Alice.", ""}, last(m, 2))
}

func TestTickCommand(t *testing.T) {
	m := newTestModel(t, llmtest.New())

	m, cmd := typeLine(t, m, "/tick 2")
	m = drain(t, m, cmd)

	joined := strings.Join(m.Messages(), "\n")
	assert.Contains(t, joined, "Tick 1:")
	assert.Contains(t, joined, "Tick 2:")
}

func TestBadCommands(t *testing.T) {
	m := newTestModel(t, llmtest.New())

	for _, line := range []string{"/tick zero", "/talk", "/end", "/dance", "/talk Nobody"} {
		var cmd tea.Cmd
		m, cmd = typeLine(t, m, line)
		assert.Nil(t, cmd, line)
	}
	joined := strings.Join(m.Messages(), "\n")
	assert.Contains(t, joined, "Usage: /tick [n]")
	assert.Contains(t, joined, "You are not talking to anyone.")
	assert.Contains(t, joined, "Unknown command")
	assert.Contains(t, joined, "Error: ")
	assert.False(t, m.InConversation())
}

func TestGraphCommand(t *testing.T) {
	m := newTestModel(t, llmtest.New())

	m, _ = typeLine(t, m, "/graph")
	assert.Contains(t, strings.Join(m.Messages(), "\n"), "Alice -> Bob | D,E = 7.00,3.00")
}

func TestWrap(t *testing.T) {
	assert.Equal(t, " short", wrap("short", 20))
	assert.Equal(t, " one two\n three", wrap("one two three", 8))
	assert.Equal(t, " a\n extraordinarily\n b", wrap("a extraordinarily b", 6))
}

func TestStyleFor(t *testing.T) {
	assert.Equal(t, Heading, styleFor("> hello"))
	assert.Equal(t, Failure, styleFor("Error: boom"))
	assert.Equal(t, Warn, styleFor("[DEBUG] x"))
	assert.Equal(t, Plain, styleFor("Alice: hi"))
}
