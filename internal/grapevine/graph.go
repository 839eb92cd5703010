// Package grapevine is the social graph over agents and the player. Each tick it lets
// well-connected pairs talk, reflect, and re-rate how they feel about each other.
package grapevine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"grapevine/internal/agent"
	"grapevine/internal/debug"
	"grapevine/internal/llm"
	"grapevine/internal/observability"
)

const (
	openingLine = "Hello!"

	DefaultGateMean   = 5.0
	DefaultGateStdDev = 2.0
)

var (
	ErrUnknownNode   = errors.New("grapevine: unknown node")
	ErrEdgeBounds    = errors.New("grapevine: edge weight out of bounds")
	ErrDuplicateNode = errors.New("grapevine: duplicate node")
)

// Participant is an agent as the graph drives it.
type Participant interface {
	Name() string
	Dialogue(ctx context.Context, status string, history []string, receiver string, t float64) (string, error)
	Reflect(ctx context.Context, t float64) ([]string, error)
	Sentiment(ctx context.Context, about string, t float64) (int, bool, error)
}

// Completer rates player transcripts.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// EventLogger receives one line per notable graph event.
type EventLogger interface {
	Log(text string)
}

// LengthPolicy maps an emotion weight to a number of conversation rounds.
type LengthPolicy func(e float64) int

// ClampLength truncates E and floors it at zero, so hostile pairs do not talk.
func ClampLength(e float64) int {
	n := int(e)
	if n < 0 {
		return 0
	}
	return n
}

// AbsLength truncates |E|, so strong feelings of either sign make long talks.
func AbsLength(e float64) int {
	return int(math.Abs(e))
}

type Graph struct {
	player       string
	order        []string
	participants map[string]Participant
	edges        map[string]map[string]*Edge
	neighbors    map[string][]string

	rater         Completer
	rng           *rand.Rand
	clock         func() float64
	length        LengthPolicy
	gateMean      float64
	gateStdDev    float64
	trackStrength bool
	events        EventLogger
	debug         *debug.Logger
	tracer        trace.Tracer

	mu    sync.Mutex
	ticks int
}

type Option func(*Graph)

func WithRand(r *rand.Rand) Option {
	return func(g *Graph) { g.rng = r }
}

// WithClock sets the simulation-time source handed to participants.
func WithClock(clock func() float64) Option {
	return func(g *Graph) { g.clock = clock }
}

func WithLengthPolicy(p LengthPolicy) Option {
	return func(g *Graph) {
		if p != nil {
			g.length = p
		}
	}
}

// WithGate sets the normal distribution a pair's D is compared against.
func WithGate(mean, stddev float64) Option {
	return func(g *Graph) {
		g.gateMean = mean
		g.gateStdDev = stddev
	}
}

// WithStrengthTracking makes every considered pair push 10 (talked) or 0 (did not)
// into both edges' strength windows, so D follows the recent conversation rate.
func WithStrengthTracking(on bool) Option {
	return func(g *Graph) { g.trackStrength = on }
}

func WithEventLog(l EventLogger) Option {
	return func(g *Graph) { g.events = l }
}

func WithDebug(d *debug.Logger) Option {
	return func(g *Graph) { g.debug = d }
}

// New builds the graph. Nodes are the player plus every participant, in that order.
// Every edge endpoint must be a node and every weight must be within bounds.
func New(player string, participants []Participant, edges []EdgeSpec, rater Completer, opts ...Option) (*Graph, error) {
	g := &Graph{
		player:       player,
		participants: make(map[string]Participant, len(participants)),
		edges:        make(map[string]map[string]*Edge),
		neighbors:    make(map[string][]string),
		rater:        rater,
		length:       ClampLength,
		gateMean:     DefaultGateMean,
		gateStdDev:   DefaultGateStdDev,
		tracer:       otel.Tracer("grapevine"),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if g.clock == nil {
		g.clock = func() float64 { return float64(time.Now().UnixNano()) / float64(time.Second) }
	}

	if err := g.addNode(player); err != nil {
		return nil, err
	}
	for _, p := range participants {
		if err := g.addNode(p.Name()); err != nil {
			return nil, err
		}
		g.participants[p.Name()] = p
	}

	for _, spec := range edges {
		if err := g.checkEndpoints(spec); err != nil {
			return nil, err
		}
		if err := spec.validate(); err != nil {
			return nil, err
		}
		g.putEdge(spec)
	}
	return g, nil
}

func (g *Graph) addNode(name string) error {
	if _, ok := g.edges[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, name)
	}
	g.order = append(g.order, name)
	g.edges[name] = make(map[string]*Edge)
	return nil
}

func (g *Graph) checkEndpoints(spec EdgeSpec) error {
	if _, ok := g.edges[spec.From]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, spec.From)
	}
	if _, ok := g.edges[spec.To]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, spec.To)
	}
	return nil
}

// putEdge inserts or replaces an edge. A replaced edge keeps its neighbour position.
func (g *Graph) putEdge(spec EdgeSpec) {
	if _, exists := g.edges[spec.From][spec.To]; !exists {
		g.neighbors[spec.From] = append(g.neighbors[spec.From], spec.To)
	}
	g.edges[spec.From][spec.To] = newEdge(spec.From, spec.To, spec.D, spec.E)
}

func (g *Graph) Player() string { return g.player }

// Nodes returns every node name in construction order, the player first.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

func (g *Graph) Participant(name string) (Participant, error) {
	p, ok := g.participants[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	return p, nil
}

// Participants returns the agents in construction order.
func (g *Graph) Participants() []Participant {
	out := make([]Participant, 0, len(g.participants))
	for _, name := range g.order {
		if p, ok := g.participants[name]; ok {
			out = append(out, p)
		}
	}
	return out
}

// RandomParticipant returns a uniformly chosen agent, or nil when there are none.
func (g *Graph) RandomParticipant() Participant {
	g.mu.Lock()
	defer g.mu.Unlock()

	all := g.Participants()
	if len(all) == 0 {
		return nil
	}
	return all[g.rng.Intn(len(all))]
}

func (g *Graph) Edge(from, to string) (EdgeSnapshot, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.edges[from][to]
	if !ok {
		return EdgeSnapshot{}, false
	}
	return e.snapshot(), true
}

// Edges snapshots every edge in construction order.
func (g *Graph) Edges() []EdgeSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []EdgeSnapshot
	for _, from := range g.order {
		for _, to := range g.neighbors[from] {
			out = append(out, g.edges[from][to].snapshot())
		}
	}
	return out
}

func (g *Graph) Ticks() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ticks
}

func (g *Graph) logf(format string, args ...interface{}) {
	if g.events != nil {
		g.events.Log(fmt.Sprintf(format, args...))
	}
}

type pair struct{ a, b string }

func unordered(x, y string) pair {
	if y < x {
		x, y = y, x
	}
	return pair{x, y}
}

// Conversation is one exchange that happened during a tick.
type Conversation struct {
	X        string   `json:"x"`
	Y        string   `json:"y"`
	Rounds   int      `json:"rounds"`
	History  []string `json:"history"`
	Insights []string `json:"insights,omitempty"`
}

type TickReport struct {
	Tick          int            `json:"tick"`
	Considered    int            `json:"considered"`
	Conversations []Conversation `json:"conversations"`
}

// Tick runs one round of information diffusion. Every unordered pair of agents joined
// by an edge is considered once; a pair talks when the edge's D beats a normal draw.
// The first collaborator error aborts the tick and is returned with the partial report.
func (g *Graph) Tick(ctx context.Context) (*TickReport, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.ticks++
	report := &TickReport{Tick: g.ticks}

	ctx, span := g.tracer.Start(ctx, "grapevine.tick",
		trace.WithAttributes(observability.CreateTickAttributes(g.ticks, len(g.order), g.edgeCount())...),
	)
	defer span.End()
	ctx = llm.WithSimContext(ctx, map[string]interface{}{"tick": g.ticks})

	processed := make(map[pair]bool)
	for _, x := range g.order {
		for _, y := range g.neighbors[x] {
			if x == g.player || y == g.player || x == y {
				continue
			}
			key := unordered(x, y)
			if processed[key] {
				continue
			}
			processed[key] = true
			report.Considered++

			edge := g.edges[x][y]
			talked := g.conversationOccurs(edge.D())
			if talked {
				conv, err := g.converse(ctx, x, y, edge)
				if err != nil {
					span.RecordError(err)
					return report, err
				}
				report.Conversations = append(report.Conversations, *conv)
			}
			if g.trackStrength {
				g.pushStrength(x, y, talked)
			}
		}
	}

	span.SetAttributes(
		attribute.Int("grapevine.considered", report.Considered),
		attribute.Int("grapevine.conversations", len(report.Conversations)),
	)
	g.debug.Printf("grapevine: tick %d considered %d pairs, %d conversations", g.ticks, report.Considered, len(report.Conversations))
	return report, nil
}

func (g *Graph) edgeCount() int {
	n := 0
	for _, m := range g.edges {
		n += len(m)
	}
	return n
}

func (g *Graph) conversationOccurs(d float64) bool {
	return d > g.rng.NormFloat64()*g.gateStdDev+g.gateMean
}

func (g *Graph) pushStrength(x, y string, talked bool) {
	v := MinStrength
	if talked {
		v = MaxStrength
	}
	g.edges[x][y].PushStrength(v)
	if back, ok := g.edges[y][x]; ok {
		back.PushStrength(v)
	}
}

func (g *Graph) converse(ctx context.Context, x, y string, edge *Edge) (*Conversation, error) {
	a, b := g.participants[x], g.participants[y]
	rounds := g.length(edge.E())

	ctx = llm.WithSimContext(ctx, map[string]interface{}{"conversation": x + "+" + y})
	ctx, span := g.tracer.Start(ctx, "grapevine.conversation",
		trace.WithAttributes(
			attribute.String("grapevine.x", x),
			attribute.String("grapevine.y", y),
			attribute.Int("grapevine.rounds", rounds),
		),
	)
	defer span.End()

	history := []string{openingLine}
	for i := 0; i < rounds; i++ {
		line, err := a.Dialogue(ctx, fmt.Sprintf("%s is conversing with %s", x, y), history, y, g.clock())
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("dialogue %s -> %s: %w", x, y, err)
		}
		history = append(history, line)
		g.logf("%s to %s: %s", x, y, line)

		line, err = b.Dialogue(ctx, fmt.Sprintf("%s is conversing with %s", y, x), history, x, g.clock())
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("dialogue %s -> %s: %w", y, x, err)
		}
		history = append(history, line)
		g.logf("%s to %s: %s", y, x, line)
	}

	conv := &Conversation{X: x, Y: y, Rounds: rounds, History: history}
	for _, p := range []Participant{a, b} {
		insights, err := p.Reflect(ctx, g.clock())
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("reflect %s: %w", p.Name(), err)
		}
		conv.Insights = append(conv.Insights, insights...)
	}

	if err := g.updateEmotion(ctx, edge); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if back, ok := g.edges[y][x]; ok {
		if err := g.updateEmotion(ctx, back); err != nil {
			span.RecordError(err)
			return nil, err
		}
	} else {
		g.debug.Printf("grapevine: no edge %s -> %s, skipping its emotion update", y, x)
	}

	g.logf("%s and %s talked for %d rounds", x, y, rounds)
	return conv, nil
}

// updateEmotion asks the perceiving agent how it feels about the other end. A rating
// without an integer leaves the edge unchanged.
func (g *Graph) updateEmotion(ctx context.Context, edge *Edge) error {
	perceiver, ok := g.participants[edge.From]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, edge.From)
	}
	level, ok, err := perceiver.Sentiment(ctx, edge.To, g.clock())
	if err != nil {
		return fmt.Errorf("sentiment %s -> %s: %w", edge.From, edge.To, err)
	}
	if ok {
		edge.PushEmotion(float64(level))
	}
	return nil
}

// UpdatePlayerEmotion re-rates both directions between the player and receiver after
// they talk: player -> receiver from the transcript, receiver -> player from the
// receiver's memory. Missing edges are skipped.
func (g *Graph) UpdatePlayerEmotion(ctx context.Context, receiver string, history []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.participants[receiver]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, receiver)
	}

	ctx = llm.WithSimContext(ctx, map[string]interface{}{"receiver": receiver})
	ctx, span := g.tracer.Start(ctx, "grapevine.player_emotion",
		trace.WithAttributes(attribute.String("grapevine.receiver", receiver)))
	defer span.End()

	if edge, ok := g.edges[g.player][receiver]; ok && g.rater != nil {
		resp, err := g.rater.Complete(llm.WithOperationType(ctx, "grapevine.player_emotion"),
			agent.PlayerEmotionPrompt(g.player, receiver, history))
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("rate player emotion: %w", err)
		}
		if level, err := llm.FirstInt(resp); err == nil {
			edge.PushEmotion(float64(level))
		}
		if g.trackStrength {
			edge.PushStrength(MaxStrength)
		}
	}

	if edge, ok := g.edges[receiver][g.player]; ok {
		if err := g.updateEmotion(ctx, edge); err != nil {
			span.RecordError(err)
			return err
		}
		if g.trackStrength {
			edge.PushStrength(MaxStrength)
		}
	}
	return nil
}

// SubsetByStrength builds a graph localized to v: v, the player, and every node n with
// D(v, n) > thresh, keeping the edges among them at their current weights.
func (g *Graph) SubsetByStrength(v string, thresh float64) (*Graph, error) {
	return g.subset(v, func(e *Edge) bool { return e.D() > thresh })
}

// SubsetByEmotion is SubsetByStrength keyed on E(v, n).
func (g *Graph) SubsetByEmotion(v string, thresh float64) (*Graph, error) {
	return g.subset(v, func(e *Edge) bool { return e.E() > thresh })
}

func (g *Graph) subset(v string, keep func(*Edge) bool) (*Graph, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.edges[v]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, v)
	}

	members := map[string]bool{g.player: true, v: true}
	for _, n := range g.neighbors[v] {
		if keep(g.edges[v][n]) {
			members[n] = true
		}
	}

	var participants []Participant
	for _, name := range g.order {
		if p, ok := g.participants[name]; ok && members[name] {
			participants = append(participants, p)
		}
	}

	var specs []EdgeSpec
	for _, from := range g.order {
		if !members[from] {
			continue
		}
		for _, to := range g.neighbors[from] {
			if !members[to] {
				continue
			}
			e := g.edges[from][to]
			specs = append(specs, EdgeSpec{
				From: from,
				To:   to,
				D:    clamp(e.D(), MinStrength, MaxStrength),
				E:    clamp(e.E(), MinEmotion, MaxEmotion),
			})
		}
	}

	return New(g.player, participants, specs, g.rater,
		WithRand(g.rng),
		WithClock(g.clock),
		WithLengthPolicy(g.length),
		WithGate(g.gateMean, g.gateStdDev),
		WithStrengthTracking(g.trackStrength),
		WithEventLog(g.events),
		WithDebug(g.debug),
	)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
