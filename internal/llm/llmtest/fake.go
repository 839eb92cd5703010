// Package llmtest provides a scripted, deterministic stand-in for llm.Service.
package llmtest

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"grapevine/internal/llm"
)

// Call is one recorded completion request.
type Call struct {
	Operation string
	Messages  []llm.Message
}

// Prompt joins the message contents of the call.
func (c Call) Prompt() string {
	parts := make([]string, len(c.Messages))
	for i, m := range c.Messages {
		parts[i] = m.Content
	}
	return strings.Join(parts, "\n")
}

// Fake answers completions from per-operation scripts and embeds text as a hashed
// bag of words, so texts sharing words land close together.
type Fake struct {
	mu sync.Mutex

	scripts  map[string][]string
	fallback string

	CompleteErr error
	EmbedErr    error

	calls      []Call
	embedCalls [][]string
}

func New() *Fake {
	return &Fake{scripts: make(map[string][]string), fallback: "5"}
}

// Script queues responses for an operation type. The last response repeats once the
// queue drains.
func (f *Fake) Script(operation string, responses ...string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[operation] = append(f.scripts[operation], responses...)
	return f
}

// Fallback sets the answer for operations with no script.
func (f *Fake) Fallback(response string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallback = response
	return f
}

func (f *Fake) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	op := llm.OperationType(ctx)
	cp := make([]llm.Message, len(messages))
	copy(cp, messages)
	f.calls = append(f.calls, Call{Operation: op, Messages: cp})

	if f.CompleteErr != nil {
		return "", f.CompleteErr
	}

	queue := f.scripts[op]
	switch len(queue) {
	case 0:
		return f.fallback, nil
	case 1:
		return queue[0], nil
	}
	f.scripts[op] = queue[1:]
	return queue[0], nil
}

func (f *Fake) Embed(_ context.Context, texts []string, dimensions int) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := make([]string, len(texts))
	copy(cp, texts)
	f.embedCalls = append(f.embedCalls, cp)

	if f.EmbedErr != nil {
		return nil, f.EmbedErr
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = BagOfWords(t, dimensions)
	}
	return out, nil
}

// Calls returns every completion request, optionally filtered by operation type.
func (f *Fake) Calls(operation ...string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(operation) == 0 {
		out := make([]Call, len(f.calls))
		copy(out, f.calls)
		return out
	}
	var out []Call
	for _, c := range f.calls {
		for _, op := range operation {
			if c.Operation == op {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// EmbedCalls returns the text batches passed to Embed, in call order.
func (f *Fake) EmbedCalls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.embedCalls))
	copy(out, f.embedCalls)
	return out
}

// BagOfWords hashes each lowercased word of text into one of dims buckets.
func BagOfWords(text string, dims int) []float32 {
	v := make([]float32, dims)
	if dims <= 0 {
		return v
	}
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%uint32(dims)]++
	}
	return v
}
