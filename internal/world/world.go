package world

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"grapevine/internal/agent"
	"grapevine/internal/debug"
	"grapevine/internal/grapevine"
	"grapevine/internal/memory"
)

// Clock is the simulation time shared by every agent and the graph. Each Advance
// moves it forward by one step.
type Clock struct {
	mu   sync.Mutex
	now  float64
	step float64
}

func NewClock(start, step float64) *Clock {
	if step <= 0 {
		step = 1
	}
	return &Clock{now: start, step: step}
}

func (c *Clock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += c.step
	return c.now
}

// Deps are the shared collaborators every agent and the graph are built with.
type Deps struct {
	LLM          memory.Collaborator
	Memory       memory.Config
	Events       memory.Logger
	Debug        *debug.Logger
	Rand         *rand.Rand
	Clock        *Clock
	AgentOptions []agent.Option
	GraphOptions []grapevine.Option
}

type World struct {
	Scenario *Scenario
	Graph    *grapevine.Graph
	Clock    *Clock

	agents []*agent.Agent
	byName map[string]*agent.Agent
	debug  *debug.Logger
}

// Build gives every agent its own memory store, seeds it, and wires the graph.
func Build(ctx context.Context, s *Scenario, deps Deps) (*World, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if deps.Clock == nil {
		deps.Clock = NewClock(0, 1)
	}

	w := &World{
		Scenario: s,
		Clock:    deps.Clock,
		byName:   make(map[string]*agent.Agent, len(s.Agents)),
		debug:    deps.Debug,
	}

	agentOpts := []agent.Option{agent.WithWorld(s.World), agent.WithDebug(deps.Debug)}
	if deps.Rand != nil {
		agentOpts = append(agentOpts, agent.WithRand(deps.Rand))
	}
	agentOpts = append(agentOpts, deps.AgentOptions...)

	participants := make([]grapevine.Participant, 0, len(s.Agents))
	for _, profile := range s.Agents {
		store, err := memory.NewStore(deps.Memory, deps.LLM, deps.Events, deps.Debug)
		if err != nil {
			return nil, err
		}
		a, err := agent.New(ctx, profile, store, deps.LLM, deps.Clock.Now(), agentOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create agent %s: %w", profile.Name, err)
		}
		w.agents = append(w.agents, a)
		w.byName[a.Name()] = a
		participants = append(participants, a)
		deps.Debug.Printf("world: agent %s ready with %d memories", a.Name(), store.Len())
	}

	graphOpts := []grapevine.Option{
		grapevine.WithClock(deps.Clock.Advance),
		grapevine.WithDebug(deps.Debug),
	}
	if deps.Events != nil {
		graphOpts = append(graphOpts, grapevine.WithEventLog(deps.Events))
	}
	if deps.Rand != nil {
		graphOpts = append(graphOpts, grapevine.WithRand(deps.Rand))
	}
	graphOpts = append(graphOpts, deps.GraphOptions...)

	g, err := grapevine.New(s.Player, participants, s.EdgeSpecs(), deps.LLM, graphOpts...)
	if err != nil {
		return nil, err
	}
	w.Graph = g
	return w, nil
}

func (w *World) Player() string { return w.Scenario.Player }

// Agents returns the agents in scenario order.
func (w *World) Agents() []*agent.Agent {
	out := make([]*agent.Agent, len(w.agents))
	copy(out, w.agents)
	return out
}

func (w *World) Agent(name string) (*agent.Agent, error) {
	a, ok := w.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", grapevine.ErrUnknownNode, name)
	}
	return a, nil
}

// Observe records an observation in one agent's memory at the current time.
func (w *World) Observe(ctx context.Context, name, text string) error {
	a, err := w.Agent(name)
	if err != nil {
		return err
	}
	return a.Observe(ctx, text, w.Clock.Advance())
}
