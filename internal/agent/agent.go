// Package agent is the cognitive cycle of a memory-bearing character: it turns
// observations into memories, memories into reflections, and both into dialogue.
package agent

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"grapevine/internal/debug"
	"grapevine/internal/llm"
	"grapevine/internal/memory"
)

const (
	DefaultReflectionBufferLength = 10

	seedSeparator = ";"
)

// Profile is the static identity of an agent.
type Profile struct {
	Name     string   `yaml:"name" json:"name"`
	Pronoun  string   `yaml:"pronoun" json:"pronoun"`
	Age      int      `yaml:"age" json:"age"`
	Traits   []string `yaml:"traits" json:"traits"`
	Statuses []string `yaml:"statuses" json:"statuses"`
	Seed     string   `yaml:"seed" json:"seed"`
}

type Agent struct {
	profile    Profile
	memory     *memory.Store
	llm        memory.Completer
	rng        *rand.Rand
	world      string
	reflectLen int
	debug      *debug.Logger
	tracer     trace.Tracer

	mu      sync.RWMutex
	summary string
}

type Option func(*Agent)

func WithRand(r *rand.Rand) Option {
	return func(a *Agent) { a.rng = r }
}

func WithReflectionBufferLength(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.reflectLen = n
		}
	}
}

// WithWorld sets the setting description prepended to persona prompts.
func WithWorld(world string) Option {
	return func(a *Agent) { a.world = world }
}

func WithDebug(d *debug.Logger) Option {
	return func(a *Agent) { a.debug = d }
}

// New seeds the agent's memory with each ";"-separated statement of the profile seed,
// committed at maximum importance, then synthesizes its summary.
func New(ctx context.Context, profile Profile, store *memory.Store, completer memory.Completer, t float64, opts ...Option) (*Agent, error) {
	if strings.TrimSpace(profile.Name) == "" {
		return nil, fmt.Errorf("agent name is required")
	}

	a := &Agent{
		profile:    profile,
		memory:     store,
		llm:        completer,
		reflectLen: DefaultReflectionBufferLength,
		tracer:     otel.Tracer("agent"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	ctx = a.simContext(ctx)
	for _, statement := range strings.Split(profile.Seed, seedSeparator) {
		statement = strings.TrimSpace(statement)
		if statement == "" {
			continue
		}
		err := store.Record(ctx, statement, t, memory.WithImportance(memory.MaxImportance), memory.ForceCommit())
		if err != nil {
			return nil, fmt.Errorf("seed memory for %s: %w", profile.Name, err)
		}
	}

	if err := a.SynthesizeSummary(ctx, t); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Agent) Name() string             { return a.profile.Name }
func (a *Agent) Profile() Profile         { return a.profile }
func (a *Agent) Memory() *memory.Store    { return a.memory }
func (a *Agent) ReflectionBufferLen() int { return a.reflectLen }

func (a *Agent) Summary() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.summary
}

// Equal reports whether both agents carry the same name.
func (a *Agent) Equal(other *Agent) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.profile.Name == other.profile.Name
}

func (a *Agent) simContext(ctx context.Context) context.Context {
	return llm.WithSimContext(ctx, map[string]interface{}{"agent": a.profile.Name})
}

func (a *Agent) complete(ctx context.Context, operation string, messages []llm.Message) (string, error) {
	ctx = llm.WithOperationType(ctx, operation)
	resp, err := a.llm.Complete(ctx, messages)
	if err != nil {
		a.debug.Printf("agent %s: %s failed: %v", a.profile.Name, operation, err)
		return "", fmt.Errorf("%s: %w", operation, err)
	}
	return strings.TrimSpace(resp), nil
}

// recall queries memory with k clamped to what has been committed.
func (a *Agent) recall(ctx context.Context, query string, k int, t float64) ([]string, error) {
	if n := a.memory.Len(); k > n {
		k = n
	}
	if k <= 0 {
		return []string{}, nil
	}
	return a.memory.Query(ctx, query, k, t)
}

// SynthesizeSummary rebuilds the persona from the top core-characteristic and
// life-progress memories.
func (a *Agent) SynthesizeSummary(ctx context.Context, t float64) error {
	ctx, span := a.tracer.Start(a.simContext(ctx), "agent.synthesize_summary",
		trace.WithAttributes(attribute.String("agent.name", a.profile.Name)))
	defer span.End()

	name := a.profile.Name
	core, err := a.recall(ctx, fmt.Sprintf("%s's core characteristics.", name), 3, t)
	if err != nil {
		span.RecordError(err)
		return err
	}
	progress, err := a.recall(ctx, fmt.Sprintf("%s's feelings about %s recent progress in life.", name, a.profile.Pronoun), 3, t)
	if err != nil {
		span.RecordError(err)
		return err
	}

	coreText, err := a.complete(ctx, "agent.core_characteristics", coreCharacteristicsPrompt(a.world, name, core))
	if err != nil {
		span.RecordError(err)
		return err
	}
	progressText, err := a.complete(ctx, "agent.life_progress", lifeProgressPrompt(a.world, name, a.profile.Pronoun, progress))
	if err != nil {
		span.RecordError(err)
		return err
	}

	summary := characterSummary(a.profile, coreText, progressText)
	a.mu.Lock()
	a.summary = summary
	a.mu.Unlock()

	a.debug.Printf("agent %s: summary updated (%d chars)", name, len(summary))
	return nil
}

// Observe records text with a collaborator-scored importance.
func (a *Agent) Observe(ctx context.Context, text string, t float64) error {
	return a.memory.Record(a.simContext(ctx), text, t)
}

// Reflect derives up to three salient questions from the most recent memories, answers
// each with an insight drawn from the five most relevant memories, and observes every
// insight. It returns the insights in order.
func (a *Agent) Reflect(ctx context.Context, t float64) ([]string, error) {
	ctx, span := a.tracer.Start(a.simContext(ctx), "agent.reflect",
		trace.WithAttributes(attribute.String("agent.name", a.profile.Name)))
	defer span.End()

	recent := a.memory.Recent(a.reflectLen)
	if len(recent) == 0 {
		return nil, nil
	}

	resp, err := a.complete(ctx, "agent.salient_questions", salientQuestionsPrompt(recent))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	questions := splitLines(resp, 3)
	insights := make([]string, 0, len(questions))
	for _, q := range questions {
		relevant, err := a.recall(ctx, q, 5, t)
		if err != nil {
			span.RecordError(err)
			return insights, err
		}
		insight, err := a.complete(ctx, "agent.insight", insightPrompt(relevant))
		if err != nil {
			span.RecordError(err)
			return insights, err
		}
		if insight == "" {
			continue
		}
		if err := a.Observe(ctx, insight, t); err != nil {
			span.RecordError(err)
			return insights, err
		}
		insights = append(insights, insight)
	}

	span.SetAttributes(attribute.Int("agent.insights", len(insights)))
	a.debug.Printf("agent %s: reflected on %d memories, %d insights", a.profile.Name, len(recent), len(insights))
	return insights, nil
}

// Dialogue produces the agent's next line to receiver. It reads memory but records
// nothing.
func (a *Agent) Dialogue(ctx context.Context, status string, history []string, receiver string, t float64) (string, error) {
	ctx = llm.WithSimContext(a.simContext(ctx), map[string]interface{}{"receiver": receiver})
	ctx, span := a.tracer.Start(ctx, "agent.dialogue",
		trace.WithAttributes(
			attribute.String("agent.name", a.profile.Name),
			attribute.String("agent.receiver", receiver),
			attribute.Int("dialogue.history", len(history)),
		))
	defer span.End()

	aboutReceiver, err := a.recall(ctx, fmt.Sprintf("Who is %s?", receiver), 1, t)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	aboutDialogue := []string{}
	if len(history) > 0 {
		aboutDialogue, err = a.recall(ctx, history[len(history)-1], 3, t)
		if err != nil {
			span.RecordError(err)
			return "", err
		}
	}

	remembered, err := a.complete(ctx, "agent.dialogue_context",
		dialogueContextPrompt(a.profile.Name, receiver, aboutReceiver, aboutDialogue))
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	reply, err := a.complete(ctx, "agent.dialogue",
		dialoguePrompt(a.world, a.profile.Name, a.Summary(), t, status, remembered, history))
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return reply, nil
}

// SynthesizeDialogue condenses a finished conversation into two or three statements
// and observes each.
func (a *Agent) SynthesizeDialogue(ctx context.Context, status string, history []string, t float64) ([]string, error) {
	ctx = a.simContext(ctx)
	resp, err := a.complete(ctx, "agent.dialogue_summary", dialogueSummaryPrompt(a.Summary(), t, status, history))
	if err != nil {
		return nil, err
	}

	statements := splitLines(resp, 3)
	for _, s := range statements {
		if err := a.Observe(ctx, s, t); err != nil {
			return nil, err
		}
	}
	return statements, nil
}

// Sentiment rates how much the agent likes about, from its three most relevant
// memories. ok is false when the answer carries no integer.
func (a *Agent) Sentiment(ctx context.Context, about string, t float64) (int, bool, error) {
	ctx = llm.WithSimContext(a.simContext(ctx), map[string]interface{}{"about": about})
	memories, err := a.recall(ctx, fmt.Sprintf("What are your thoughts on %s", about), 3, t)
	if err != nil {
		return 0, false, err
	}

	resp, err := a.complete(ctx, "agent.emotion_level", emotionLevelPrompt(a.profile.Name, about, memories))
	if err != nil {
		return 0, false, err
	}

	level, perr := llm.FirstInt(resp)
	if perr != nil {
		return 0, false, nil
	}
	return level, true, nil
}

// RandomState picks one of the configured statuses, or "" when there are none.
func (a *Agent) RandomState() string {
	if len(a.profile.Statuses) == 0 {
		return ""
	}
	return a.profile.Statuses[a.rng.Intn(len(a.profile.Statuses))]
}

func (a *Agent) String() string {
	return a.profile.Name
}
