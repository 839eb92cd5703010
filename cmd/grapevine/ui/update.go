package ui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

const loadingMarker = "LOADING_ANIMATION"

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickDoneMsg:
		return m.handleTickDone(msg)
	case replyMsg:
		return m.handleReply(msg)
	case endedMsg:
		return m.handleEnded(msg)
	case linesMsg:
		return m.handleLines(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case animationTickMsg:
		if m.loading {
			m.animationFrame++
			return m, animationTimer()
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}
	return m, nil
}

// finish drops the loading marker and appends lines followed by a blank separator.
func (m Model) finish(lines []string, err error) Model {
	if m.loading && len(m.messages) > 0 && m.messages[len(m.messages)-1] == loadingMarker {
		m.messages = m.messages[:len(m.messages)-1]
	}
	m.loading = false
	m.messages = append(m.messages, lines...)
	if err != nil {
		m.messages = append(m.messages, "Error: "+err.Error())
		m.debug.Printf("ui: %v", err)
	}
	m.messages = append(m.messages, "")
	return m
}

func (m Model) handleTickDone(msg tickDoneMsg) (tea.Model, tea.Cmd) {
	var lines []string
	for _, r := range msg.reports {
		lines = append(lines, reportLines(r)...)
	}
	return m.finish(lines, msg.err), nil
}

func (m Model) handleReply(msg replyMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m.finish(nil, msg.err), nil
	}
	return m.finish([]string{msg.reply}, nil), nil
}

func (m Model) handleEnded(msg endedMsg) (tea.Model, tea.Cmd) {
	m.conversation = nil
	lines := []string{fmt.Sprintf("You leave %s.", msg.agent)}
	if m.debug.IsEnabled() {
		for _, r := range msg.remembered {
			lines = append(lines, fmt.Sprintf("[DEBUG] %s remembers: %s", msg.agent, r))
		}
	}
	return m.finish(lines, msg.err), nil
}

func (m Model) handleLines(msg linesMsg) (tea.Model, tea.Cmd) {
	return m.finish(msg.lines, msg.err), nil
}

func (m Model) startLoading(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.loading = true
	m.animationFrame = 0
	m.messages = append(m.messages, loadingMarker)
	return m, tea.Batch(cmd, animationTimer())
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "enter":
		input := strings.TrimSpace(m.input)
		if input == "" || m.loading {
			return m, nil
		}
		m.input = ""
		m.messages = append(m.messages, "> "+input)
		if strings.HasPrefix(input, "/") {
			return m.runCommand(input)
		}
		if m.conversation == nil {
			m.messages = append(m.messages, "Nobody is listening. Try /talk <agent>.", "")
			return m, nil
		}
		return m.startLoading(sayCmd(m.conversation, input))

	case "backspace":
		if len(m.input) > 0 && !m.loading {
			m.input = m.input[:len(m.input)-1]
		}
		return m, nil

	default:
		if m.loading {
			return m, nil
		}
		switch msg.Type {
		case tea.KeySpace:
			m.input += " "
		case tea.KeyRunes:
			m.input += string(msg.Runes)
		}
		return m, nil
	}
}

func (m Model) runCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "/quit", "/q":
		return m, tea.Quit
	case "/help":
		m.messages = append(m.messages,
			"/tick [n]               run n rounds of gossip",
			"/talk <agent>           start talking to an agent",
			"/end                    walk away from the conversation",
			"/observe <agent> <text> tell an agent something happened",
			"/recall <agent> <query> show an agent's most relevant memories",
			"/reflect <agent>        make an agent reflect",
			"/graph [agent]          show edges, optionally around one agent",
			"/quit                   leave",
			"")
		return m, nil
	case "/tick":
		n := 1
		if len(args) > 0 {
			parsed, err := strconv.Atoi(args[0])
			if err != nil || parsed < 1 {
				m.messages = append(m.messages, "Usage: /tick [n]", "")
				return m, nil
			}
			n = parsed
		}
		return m.startLoading(tickCmd(m.world, n))
	case "/talk":
		if len(args) != 1 {
			m.messages = append(m.messages, "Usage: /talk <agent>", "")
			return m, nil
		}
		if m.conversation != nil {
			m.messages = append(m.messages, fmt.Sprintf("You are already talking to %s.", m.conversation.Agent().Name()), "")
			return m, nil
		}
		next, err := m.WithConversation(args[0])
		if err != nil {
			return m.finish(nil, err), nil
		}
		return next, nil
	case "/end":
		if m.conversation == nil {
			m.messages = append(m.messages, "You are not talking to anyone.", "")
			return m, nil
		}
		return m.startLoading(endCmd(m.conversation))
	case "/observe":
		if len(args) < 2 {
			m.messages = append(m.messages, "Usage: /observe <agent> <text>", "")
			return m, nil
		}
		return m.startLoading(observeCmd(m.world, args[0], strings.Join(args[1:], " ")))
	case "/recall":
		if len(args) < 2 {
			m.messages = append(m.messages, "Usage: /recall <agent> <query>", "")
			return m, nil
		}
		return m.startLoading(recallCmd(m.world, args[0], strings.Join(args[1:], " ")))
	case "/reflect":
		if len(args) != 1 {
			m.messages = append(m.messages, "Usage: /reflect <agent>", "")
			return m, nil
		}
		return m.startLoading(reflectCmd(m.world, args[0]))
	case "/graph":
		edges := m.world.Graph.Edges()
		if len(args) > 0 {
			sub, err := m.world.Graph.SubsetByStrength(args[0], 0)
			if err != nil {
				return m.finish(nil, err), nil
			}
			edges = sub.Edges()
		}
		m.messages = append(m.messages, edgeLines(edges)...)
		m.messages = append(m.messages, "")
		return m, nil
	}
	m.messages = append(m.messages, "Unknown command. Try /help", "")
	return m, nil
}
