package ui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"grapevine/internal/grapevine"
	"grapevine/internal/world"
)

func animationTimer() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(time.Time) tea.Msg {
		return animationTickMsg{}
	})
}

func tickCmd(w *world.World, n int) tea.Cmd {
	return func() tea.Msg {
		reports := make([]*grapevine.TickReport, 0, n)
		for i := 0; i < n; i++ {
			report, err := w.Graph.Tick(context.Background())
			if report != nil {
				reports = append(reports, report)
			}
			if err != nil {
				return tickDoneMsg{reports: reports, err: err}
			}
		}
		return tickDoneMsg{reports: reports}
	}
}

func sayCmd(conv *world.Conversation, line string) tea.Cmd {
	return func() tea.Msg {
		reply, err := conv.Say(context.Background(), line)
		return replyMsg{reply: reply, err: err}
	}
}

func endCmd(conv *world.Conversation) tea.Cmd {
	return func() tea.Msg {
		remembered, err := conv.End(context.Background())
		return endedMsg{agent: conv.Agent().Name(), remembered: remembered, err: err}
	}
}

func observeCmd(w *world.World, name, text string) tea.Cmd {
	return func() tea.Msg {
		if err := w.Observe(context.Background(), name, text); err != nil {
			return linesMsg{err: err}
		}
		return linesMsg{lines: []string{fmt.Sprintf("%s observed: %s", name, text)}}
	}
}

func reflectCmd(w *world.World, name string) tea.Cmd {
	return func() tea.Msg {
		a, err := w.Agent(name)
		if err != nil {
			return linesMsg{err: err}
		}
		insights, err := a.Reflect(context.Background(), w.Clock.Advance())
		if err != nil {
			return linesMsg{err: err}
		}
		lines := []string{fmt.Sprintf("%s reflected:", name)}
		for _, in := range insights {
			lines = append(lines, "  "+in)
		}
		return linesMsg{lines: lines}
	}
}

func recallCmd(w *world.World, name, query string) tea.Cmd {
	return func() tea.Msg {
		a, err := w.Agent(name)
		if err != nil {
			return linesMsg{err: err}
		}
		k := 3
		if n := a.Memory().Len(); k > n {
			k = n
		}
		memories, err := a.Memory().Query(context.Background(), query, k, w.Clock.Now())
		if err != nil {
			return linesMsg{err: err}
		}
		lines := []string{fmt.Sprintf("%s remembers:", name)}
		for _, mem := range memories {
			lines = append(lines, "  "+mem)
		}
		return linesMsg{lines: lines}
	}
}
