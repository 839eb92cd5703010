package agent

import (
	"fmt"
	"regexp"
	"strings"

	"grapevine/internal/llm"
)

const (
	generalStyle  = "Speak in absolutes. Be concise."
	dialogueStyle = "Be concise, and act as a realistic character within the game. Always respond in the format <character> : <speech>."

	ratingRules = "-10 means an absolute hatred, 0 means completely neutral, and 10 means absolute love. YOU CAN ONLY RETURN A NUMBER FROM -10 to 10!"
)

func bulletList(b *strings.Builder, lines []string) {
	for _, l := range lines {
		fmt.Fprintf(b, "- %s\n", strings.TrimSpace(l))
	}
}

func worldLine(world string) string {
	if strings.TrimSpace(world) == "" {
		return ""
	}
	return strings.TrimSpace(world) + "\n"
}

func coreCharacteristicsPrompt(world, name string, statements []string) []llm.Message {
	b := &strings.Builder{}
	b.WriteString("<statements>\n")
	bulletList(b, statements)
	b.WriteString("</statements>")

	return []llm.Message{
		llm.System(worldLine(world) + generalStyle),
		llm.User(fmt.Sprintf("How would you describe %s's core characteristics given the following statements?\n%s", name, b.String())),
	}
}

func lifeProgressPrompt(world, name, pronoun string, statements []string) []llm.Message {
	b := &strings.Builder{}
	b.WriteString("<statements>\n")
	bulletList(b, statements)
	b.WriteString("</statements>")

	if strings.TrimSpace(pronoun) == "" {
		pronoun = "their"
	}
	return []llm.Message{
		llm.System(worldLine(world) + generalStyle),
		llm.User(fmt.Sprintf("How would you describe %s's feelings about %s current progress in life given the following statements?\n%s", name, pronoun, b.String())),
	}
}

// characterSummary is the persona header every dialogue prompt starts from.
func characterSummary(p Profile, core, progress string) string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "Name: %s (age: %d)\n", p.Name, p.Age)
	if len(p.Traits) > 0 {
		fmt.Fprintf(b, "Tone/Personality (ENSURE YOU TALK IN THIS MANNER, THIS IS OF UTMOST IMPORTANCE): %s\n", strings.Join(p.Traits, ", "))
	}
	if s := strings.TrimSpace(core); s != "" {
		b.WriteString(s)
		b.WriteString("\n")
	}
	if s := strings.TrimSpace(progress); s != "" {
		b.WriteString(s)
	}
	return strings.TrimSpace(b.String())
}

func salientQuestionsPrompt(recent []string) []llm.Message {
	b := &strings.Builder{}
	b.WriteString("Given only the information below, what are 3 most salient high-level questions we can answer about the subjects in the statements? Separate with newlines.\n")
	bulletList(b, recent)
	return []llm.Message{llm.User(strings.TrimSpace(b.String()))}
}

func insightPrompt(memories []string) []llm.Message {
	b := &strings.Builder{}
	bulletList(b, memories)
	b.WriteString("What one-sentence high-level insight can you infer from the above statements?")
	return []llm.Message{
		llm.System(generalStyle),
		llm.User(b.String()),
	}
}

func emotionLevelPrompt(name, about string, memories []string) []llm.Message {
	b := &strings.Builder{}
	bulletList(b, memories)
	fmt.Fprintf(b, "Based on these memories about %s from %s, generate a number from -10 to 10 based on how much %s likes or dislikes %s. %s",
		about, name, name, about, ratingRules)
	return []llm.Message{llm.User(b.String())}
}

// PlayerEmotionPrompt rates how much player likes agent from a conversation transcript.
func PlayerEmotionPrompt(player, agent string, history []string) []llm.Message {
	b := &strings.Builder{}
	for _, line := range history {
		b.WriteString(strings.TrimSpace(line))
		b.WriteString("\n")
	}
	fmt.Fprintf(b, "Based on the dialogue between %s and %s, generate a number from -10 to 10 based on how much %s seems to like or dislike %s. %s",
		player, agent, player, agent, ratingRules)
	return []llm.Message{llm.User(b.String())}
}

func dialogueContextPrompt(name, receiver string, aboutReceiver, aboutDialogue []string) []llm.Message {
	b := &strings.Builder{}
	fmt.Fprintf(b, "%s is speaking to %s. Briefly summarize the context given what %s remembers:\n", name, receiver, name)
	bulletList(b, aboutReceiver)
	bulletList(b, aboutDialogue)
	return []llm.Message{
		llm.System(generalStyle),
		llm.User(strings.TrimSpace(b.String())),
	}
}

func dialoguePrompt(world, name, summary string, t float64, status, context string, history []string) []llm.Message {
	sys := &strings.Builder{}
	sys.WriteString(worldLine(world))
	sys.WriteString(dialogueStyle)
	sys.WriteString("\n\n<character>\n")
	sys.WriteString(summary)
	sys.WriteString("\n</character>")

	b := &strings.Builder{}
	fmt.Fprintf(b, "<time>%g</time>\n", t)
	if s := strings.TrimSpace(status); s != "" {
		fmt.Fprintf(b, "<status>%s</status>\n", s)
	}
	fmt.Fprintf(b, "You ONLY know whatever is in the following context. Summary of relevant context from %s's memory:\n", name)
	b.WriteString("<context>\n")
	b.WriteString(strings.TrimSpace(context))
	b.WriteString("\n</context>\n\n")
	b.WriteString("<dialogue_history>\n")
	for _, line := range history {
		b.WriteString(strings.TrimSpace(line))
		b.WriteString("\n")
	}
	b.WriteString("</dialogue_history>\n\n")
	fmt.Fprintf(b, "You are %s. How would you respond?", name)

	return []llm.Message{
		llm.System(sys.String()),
		llm.User(b.String()),
	}
}

func dialogueSummaryPrompt(summary string, t float64, status string, history []string) []llm.Message {
	b := &strings.Builder{}
	fmt.Fprintf(b, "<time>%g</time>\n", t)
	if s := strings.TrimSpace(status); s != "" {
		fmt.Fprintf(b, "<status>%s</status>\n", s)
	}
	b.WriteString("<dialogue_history>\n")
	for _, line := range history {
		b.WriteString(strings.TrimSpace(line))
		b.WriteString("\n")
	}
	b.WriteString("</dialogue_history>\n\n")
	b.WriteString("Succinctly summarize the conversation into two or three salient, new-line separated statements based primarily on the given dialogue history.")

	return []llm.Message{
		llm.System(summary),
		llm.User(b.String()),
	}
}

// listMarker matches a leading bullet or "1." / "2)" enumeration, not a bare number.
var listMarker = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+`)

// splitLines returns up to limit non-blank lines with list markers removed.
func splitLines(text string, limit int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == limit {
			break
		}
	}
	return out
}
