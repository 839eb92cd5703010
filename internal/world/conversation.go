package world

import (
	"context"
	"fmt"
	"strings"

	"grapevine/internal/agent"
)

// Conversation is a player talking with one agent. End must be called once the
// player walks away so the agent remembers the talk and both edges are re-rated.
type Conversation struct {
	world   *World
	agent   *agent.Agent
	history []string
}

func (w *World) StartConversation(name string) (*Conversation, error) {
	a, err := w.Agent(name)
	if err != nil {
		return nil, err
	}
	return &Conversation{world: w, agent: a}, nil
}

func (c *Conversation) Agent() *agent.Agent { return c.agent }

func (c *Conversation) History() []string {
	out := make([]string, len(c.history))
	copy(out, c.history)
	return out
}

func (c *Conversation) status() string {
	return fmt.Sprintf("%s is conversing with %s", c.agent.Name(), c.world.Player())
}

// Say appends the player's line and returns the agent's reply.
func (c *Conversation) Say(ctx context.Context, line string) (string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("nothing to say")
	}
	c.history = append(c.history, fmt.Sprintf("%s: %s", c.world.Player(), line))

	reply, err := c.agent.Dialogue(ctx, c.status(), c.history, c.world.Player(), c.world.Clock.Advance())
	if err != nil {
		c.history = c.history[:len(c.history)-1]
		return "", err
	}
	c.history = append(c.history, reply)
	return reply, nil
}

// End condenses the talk into the agent's memory and updates the player edges. It
// returns the statements the agent remembered.
func (c *Conversation) End(ctx context.Context) ([]string, error) {
	if len(c.history) == 0 {
		return nil, nil
	}

	statements, err := c.agent.SynthesizeDialogue(ctx, c.status(), c.history, c.world.Clock.Advance())
	if err != nil {
		return nil, err
	}
	if err := c.world.Graph.UpdatePlayerEmotion(ctx, c.agent.Name(), c.history); err != nil {
		return statements, err
	}
	c.world.debug.Printf("world: %s remembered %d statements from talking with %s", c.agent.Name(), len(statements), c.world.Player())
	return statements, nil
}
