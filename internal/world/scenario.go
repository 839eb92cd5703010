// Package world loads a scenario file and assembles the agents, their memories and
// the social graph it describes.
package world

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"grapevine/internal/agent"
	"grapevine/internal/grapevine"
)

var ErrInvalidScenario = errors.New("world: invalid scenario")

// EdgeDecl is an edge as written in a scenario. Mutual expands into both directions.
type EdgeDecl struct {
	grapevine.EdgeSpec `yaml:",inline"`
	Mutual             bool `yaml:"mutual"`
}

type Scenario struct {
	Player string          `yaml:"player"`
	World  string          `yaml:"world"`
	Agents []agent.Profile `yaml:"agents"`
	Edges  []EdgeDecl      `yaml:"edges"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks names only. Edge endpoints and weights are checked when the graph
// is built.
func (s *Scenario) Validate() error {
	if strings.TrimSpace(s.Player) == "" {
		return fmt.Errorf("%w: player name is required", ErrInvalidScenario)
	}
	seen := map[string]bool{s.Player: true}
	for i, a := range s.Agents {
		if strings.TrimSpace(a.Name) == "" {
			return fmt.Errorf("%w: agent %d has no name", ErrInvalidScenario, i)
		}
		if seen[a.Name] {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidScenario, a.Name)
		}
		seen[a.Name] = true
	}
	return nil
}

// EdgeSpecs expands mutual declarations, keeping declaration order.
func (s *Scenario) EdgeSpecs() []grapevine.EdgeSpec {
	var out []grapevine.EdgeSpec
	for _, e := range s.Edges {
		if e.Mutual {
			out = append(out, grapevine.Mutual(e.From, e.To, e.D, e.E)...)
			continue
		}
		out = append(out, e.EdgeSpec)
	}
	return out
}
