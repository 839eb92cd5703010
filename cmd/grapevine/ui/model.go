package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"grapevine/internal/debug"
	"grapevine/internal/grapevine"
	"grapevine/internal/world"
)

// Model is the interactive view of a running world: the player either issues slash
// commands or, inside a conversation, talks to one agent.
type Model struct {
	messages       []string
	input          string
	width          int
	height         int
	loading        bool
	animationFrame int

	world        *world.World
	conversation *world.Conversation
	debug        *debug.Logger
}

func NewModel(w *world.World, debugLogger *debug.Logger) Model {
	messages := []string{
		fmt.Sprintf("Welcome to %d agents gossiping. You are %s.", len(w.Agents()), w.Player()),
		"Type /help for commands.",
		"",
	}
	if debugLogger.IsEnabled() {
		messages = append(messages, fmt.Sprintf("[DEBUG] %d nodes, %d edges", len(w.Graph.Nodes()), len(w.Graph.Edges())), "")
	}
	return Model{
		messages: messages,
		world:    w,
		debug:    debugLogger,
	}
}

// WithConversation opens a conversation with name before the program starts.
func (m Model) WithConversation(name string) (Model, error) {
	conv, err := m.world.StartConversation(name)
	if err != nil {
		return m, err
	}
	m.conversation = conv
	m.messages = append(m.messages, fmt.Sprintf("You approach %s. /end to walk away.", name), "")
	return m, nil
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Messages returns the transcript shown in the chat panel.
func (m Model) Messages() []string {
	out := make([]string, len(m.messages))
	copy(out, m.messages)
	return out
}

func (m Model) InConversation() bool { return m.conversation != nil }

type animationTickMsg struct{}

type tickDoneMsg struct {
	reports []*grapevine.TickReport
	err     error
}

type replyMsg struct {
	reply string
	err   error
}

type endedMsg struct {
	agent      string
	remembered []string
	err        error
}

type linesMsg struct {
	lines []string
	err   error
}

func edgeLines(edges []grapevine.EdgeSnapshot) []string {
	lines := make([]string, 0, len(edges))
	for _, e := range edges {
		lines = append(lines, fmt.Sprintf("%s -> %s | D,E = %.2f,%.2f", e.From, e.To, e.D, e.E))
	}
	return lines
}

func reportLines(r *grapevine.TickReport) []string {
	lines := []string{fmt.Sprintf("Tick %d: %d pairs considered, %d conversations", r.Tick, r.Considered, len(r.Conversations))}
	for _, c := range r.Conversations {
		lines = append(lines, fmt.Sprintf("  %s and %s talked for %d rounds", c.X, c.Y, c.Rounds))
		for _, h := range c.History {
			lines = append(lines, "    "+strings.TrimSpace(h))
		}
	}
	return lines
}
