package ui

import (
	"strings"
)

const inputRows = 3

var spinnerFrames = []string{"◜", "◠", "◝", "◞", "◡", "◟"}

func (m Model) View() string {
	panelHeight := max(m.height-inputRows, 3)
	rows := max(panelHeight-2, 1)
	textWidth := m.width - 4

	visible := m.messages
	if len(visible) > rows {
		visible = visible[len(visible)-rows:]
	}

	var b strings.Builder
	b.WriteString(strings.Repeat("\n", rows-len(visible)))
	for _, line := range visible {
		switch line {
		case "":
		case loadingMarker:
			b.WriteString(Spinner.Render(wrap(spinnerFrames[m.animationFrame%len(spinnerFrames)], textWidth)))
		default:
			b.WriteString(styleFor(line).Render(wrap(line, textWidth)))
		}
		b.WriteString("\n")
	}

	prompt := m.input + "│"
	if m.conversation != nil {
		prompt = m.conversation.Agent().Name() + " ◂ " + prompt
	}

	chat := Panel.Width(m.width).Height(panelHeight).Padding(1).Render(b.String())
	input := Panel.Padding(0, 1).Width(max(m.width-4, 10)).Render(prompt)
	return chat + "\n" + input
}

// wrap breaks text on spaces so no line exceeds width, indenting every line by one
// column. Words longer than width get a line of their own.
func wrap(text string, width int) string {
	words := strings.Fields(text)
	if width <= 0 || len(words) == 0 || len(text) <= width {
		return " " + text
	}

	var lines []string
	current := ""
	for _, w := range words {
		if current != "" && len(current)+1+len(w) > width-1 {
			lines = append(lines, " "+current)
			current = ""
		}
		if current == "" {
			current = w
		} else {
			current += " " + w
		}
	}
	lines = append(lines, " "+current)
	return strings.Join(lines, "\n")
}
