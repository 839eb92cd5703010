package grapevine

import "fmt"

// WindowSize is how many updates each edge weight averages over.
const WindowSize = 4

const (
	MinStrength = 0.0
	MaxStrength = 10.0
	MinEmotion  = -10.0
	MaxEmotion  = 10.0
)

// window is a fixed-size FIFO whose mean is the weight it smooths. Until the first
// push the construction value is reported and does not occupy a slot.
type window struct {
	initial float64
	values  []float64
}

func (w *window) push(v float64) {
	if len(w.values) == WindowSize {
		copy(w.values, w.values[1:])
		w.values = w.values[:WindowSize-1]
	}
	w.values = append(w.values, v)
}

func (w *window) mean() float64 {
	if len(w.values) == 0 {
		return w.initial
	}
	var sum float64
	for _, v := range w.values {
		sum += v
	}
	return sum / float64(len(w.values))
}

func (w *window) snapshot() []float64 {
	out := make([]float64, len(w.values))
	copy(out, w.values)
	return out
}

// Edge is the directed relation From -> To. D is communication strength, E is how
// From feels about To.
type Edge struct {
	From string
	To   string

	strength window
	emotion  window
}

func newEdge(from, to string, d, e float64) *Edge {
	return &Edge{
		From:     from,
		To:       to,
		strength: window{initial: d},
		emotion:  window{initial: e},
	}
}

func (e *Edge) D() float64 { return e.strength.mean() }
func (e *Edge) E() float64 { return e.emotion.mean() }

func (e *Edge) Weights() (float64, float64) {
	return e.D(), e.E()
}

// PushEmotion adds a sentiment rating to the emotion window.
func (e *Edge) PushEmotion(v float64) { e.emotion.push(v) }

// PushStrength adds a communication-rate sample to the strength window.
func (e *Edge) PushStrength(v float64) { e.strength.push(v) }

func (e *Edge) String() string {
	return fmt.Sprintf("%s -> %s | D,E = %.2f,%.2f", e.From, e.To, e.D(), e.E())
}

func (e *Edge) snapshot() EdgeSnapshot {
	return EdgeSnapshot{
		From:            e.From,
		To:              e.To,
		D:               e.D(),
		E:               e.E(),
		StrengthHistory: e.strength.snapshot(),
		EmotionHistory:  e.emotion.snapshot(),
	}
}

// EdgeSnapshot is a read-only copy of an edge's current weights.
type EdgeSnapshot struct {
	From            string    `json:"from"`
	To              string    `json:"to"`
	D               float64   `json:"d"`
	E               float64   `json:"e"`
	StrengthHistory []float64 `json:"strength_history,omitempty"`
	EmotionHistory  []float64 `json:"emotion_history,omitempty"`
}

// EdgeSpec declares an edge at construction.
type EdgeSpec struct {
	From string  `yaml:"from" json:"from"`
	To   string  `yaml:"to" json:"to"`
	D    float64 `yaml:"d" json:"d"`
	E    float64 `yaml:"e" json:"e"`
}

// Mutual returns both directed edges between x and y with the same weights.
func Mutual(x, y string, d, e float64) []EdgeSpec {
	return []EdgeSpec{
		{From: x, To: y, D: d, E: e},
		{From: y, To: x, D: d, E: e},
	}
}

func (s EdgeSpec) validate() error {
	if s.D < MinStrength || s.D > MaxStrength {
		return fmt.Errorf("%w: %s -> %s D=%g outside [%g, %g]", ErrEdgeBounds, s.From, s.To, s.D, MinStrength, MaxStrength)
	}
	if s.E < MinEmotion || s.E > MaxEmotion {
		return fmt.Errorf("%w: %s -> %s E=%g outside [%g, %g]", ErrEdgeBounds, s.From, s.To, s.E, MinEmotion, MaxEmotion)
	}
	return nil
}
