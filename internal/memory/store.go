// Package memory implements an agent's memory stream: importance-gated recording,
// batched embedding into an append-only vector index, and retrieval ranked by a
// weighted mix of recency, relevance and importance.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"grapevine/internal/debug"
	"grapevine/internal/llm"
)

const (
	MinImportance = 0
	MaxImportance = 10
)

const importancePrompt = `On a scale of 1 to 10, where 1 is purely mundane (e.g., brushing teeth, making bed) and 10 is extremely poignant (e.g., a break up, college acceptance, murder), rate the likely poignancy of the following memory.`

// ErrQueryUndersized means more results were requested than there are committed
// memories. It signals a sequencing error by the caller and is never retried.
var ErrQueryUndersized = errors.New("memory: query k exceeds committed memories")

type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

type Embedder interface {
	Embed(ctx context.Context, texts []string, dimensions int) ([][]float32, error)
}

// Collaborator is the part of the LLM service the store needs.
type Collaborator interface {
	Completer
	Embedder
}

// Logger is the write-only event record.
type Logger interface {
	Log(text string)
}

// Record is a committed memory. Position in the stream is its recency order.
type Record struct {
	Text       string  `json:"text"`
	Timestamp  float64 `json:"timestamp"`
	Importance int     `json:"importance"`
}

type Store struct {
	cfg    Config
	llm    Collaborator
	log    Logger
	debug  *debug.Logger
	tracer trace.Tracer

	mu      sync.Mutex
	pending []Record
	records []Record
	index   *FlatIndex
}

func NewStore(cfg Config, collaborator Collaborator, log Logger, debug *debug.Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		cfg:    cfg,
		llm:    collaborator,
		log:    log,
		debug:  debug,
		tracer: otel.Tracer("memory"),
		index:  NewFlatIndex(cfg.Dimensions),
	}, nil
}

type recordOptions struct {
	force      bool
	rated      bool
	importance int
}

type RecordOption func(*recordOptions)

// ForceCommit flushes the pending buffer right after this record is buffered.
func ForceCommit() RecordOption {
	return func(o *recordOptions) { o.force = true }
}

// WithImportance skips the rating call. n is clamped to [MinImportance, MaxImportance],
// so a negative value is a zero rating, not a request to ask the collaborator.
func WithImportance(n int) RecordOption {
	return func(o *recordOptions) {
		o.rated = true
		o.importance = clampImportance(n)
	}
}

// Record buffers text if its importance reaches the threshold and flushes the buffer
// when it is full or the commit is forced. On a collaborator error the store is left
// exactly as it was.
func (s *Store) Record(ctx context.Context, text string, timestamp float64, opts ...RecordOption) error {
	var o recordOptions
	for _, opt := range opts {
		opt(&o)
	}

	importance := o.importance
	if !o.rated {
		var err error
		importance, err = s.Importance(ctx, text)
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if float64(importance) < s.cfg.ImportanceThreshold {
		s.debug.Printf("memory: dropped %q (importance %d < %.1f)", text, importance, s.cfg.ImportanceThreshold)
		return nil
	}

	s.pending = append(s.pending, Record{Text: text, Timestamp: timestamp, Importance: importance})
	if !o.force && len(s.pending) < s.cfg.BatchSize {
		return nil
	}

	if err := s.flushLocked(ctx); err != nil {
		s.pending = s.pending[:len(s.pending)-1]
		return err
	}
	return nil
}

// Flush commits whatever is pending. It is a no-op on an empty buffer.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

func (s *Store) flushLocked(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}

	ctx, span := s.tracer.Start(ctx, "memory.flush",
		trace.WithAttributes(attribute.Int("memory.batch", len(s.pending))),
	)
	defer span.End()

	texts := make([]string, len(s.pending))
	for i, r := range s.pending {
		texts[i] = r.Text
	}

	ctx = llm.WithOperationType(ctx, "memory.embed")
	embeddings, err := s.llm.Embed(ctx, texts, s.cfg.Dimensions)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("embed memory batch: %w", err)
	}
	if len(embeddings) != len(texts) {
		err := fmt.Errorf("embed memory batch: got %d vectors for %d texts", len(embeddings), len(texts))
		span.RecordError(err)
		return err
	}

	if err := s.index.Add(NormalizeVectors(embeddings)); err != nil {
		span.RecordError(err)
		return err
	}
	s.records = append(s.records, s.pending...)
	s.pending = nil

	span.SetAttributes(attribute.Int("memory.committed", len(s.records)))
	s.debug.Printf("memory: flushed %d records, %d committed", len(texts), len(s.records))
	return nil
}

// Query returns the k committed memories nearest to text, re-ranked by the weighted
// recency/relevance/importance score. k larger than Len fails with ErrQueryUndersized
// before any collaborator call is made.
func (s *Store) Query(ctx context.Context, text string, k int, now float64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if k > s.index.Len() {
		return nil, fmt.Errorf("%w: requested %d, have %d", ErrQueryUndersized, k, s.index.Len())
	}
	if k <= 0 {
		return []string{}, nil
	}

	ctx, span := s.tracer.Start(ctx, "memory.query",
		trace.WithAttributes(
			attribute.String("memory.query", text),
			attribute.Int("memory.k", k),
		),
	)
	defer span.End()

	ctx = llm.WithOperationType(ctx, "memory.embed_query")
	embeddings, err := s.llm.Embed(ctx, []string{text}, s.cfg.Dimensions)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(embeddings))
	}

	neighbors, err := s.index.Search(normalize(embeddings[0]), k)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	timeDeltas := make([]float64, len(neighbors))
	relevances := make([]float64, len(neighbors))
	importances := make([]float64, len(neighbors))
	for i, n := range neighbors {
		r := s.records[n.Index]
		timeDeltas[i] = now - r.Timestamp
		if s.cfg.Recency == RecencyFreshness {
			timeDeltas[i] = -timeDeltas[i]
		}
		relevances[i] = 1 / (n.Distance + s.cfg.Epsilon)
		importances[i] = float64(r.Importance)
	}

	scaledTime := ScaleToRange(timeDeltas, s.cfg.ScaleMax)
	scaledRelevance := ScaleToRange(relevances, s.cfg.ScaleMax)
	scaledImportance := ScaleToRange(importances, s.cfg.ScaleMax)

	type scored struct {
		score float64
		index int
	}
	scores := make([]scored, len(neighbors))
	for i, n := range neighbors {
		scores[i] = scored{
			score: s.cfg.RecencyWeight*scaledTime[i] +
				s.cfg.RelevanceWeight*scaledRelevance[i] +
				s.cfg.ImportanceWeight*scaledImportance[i],
			index: n.Index,
		}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	if len(scores) > k {
		scores = scores[:k]
	}
	out := make([]string, len(scores))
	for i, sc := range scores {
		out[i] = s.records[sc.index].Text
	}
	return out, nil
}

// Importance asks the collaborator to rate text. An unparseable answer is logged and
// rated MaxImportance so the memory is kept.
func (s *Store) Importance(ctx context.Context, text string) (int, error) {
	ctx = llm.WithOperationType(ctx, "memory.importance")
	response, err := s.llm.Complete(ctx, []llm.Message{
		llm.System(importancePrompt),
		llm.User(fmt.Sprintf("Memory: %s \n Rating: <fill in>", text)),
	})
	if err != nil {
		return 0, fmt.Errorf("rate importance: %w", err)
	}

	importance := MaxImportance
	n, perr := llm.FirstInt(response)
	if perr != nil {
		s.logf("Importance regex failed for memory %s.", text)
	} else {
		importance = clampImportance(n)
	}
	s.logf("Memory: %s, Importance: %d.", text, importance)
	return importance, nil
}

func (s *Store) logf(format string, args ...interface{}) {
	if s.log != nil {
		s.log.Log(fmt.Sprintf(format, args...))
	}
}

// Len is the number of committed (indexed) memories.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Pending is the number of buffered, not yet embedded memories.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Recent returns the texts of the last n committed memories, oldest first.
func (s *Store) Recent(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n > len(s.records) {
		n = len(s.records)
	}
	if n <= 0 {
		return []string{}
	}
	out := make([]string, 0, n)
	for _, r := range s.records[len(s.records)-n:] {
		out = append(out, r.Text)
	}
	return out
}

func (s *Store) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Store) Config() Config {
	return s.cfg
}

func clampImportance(n int) int {
	if n < MinImportance {
		return MinImportance
	}
	if n > MaxImportance {
		return MaxImportance
	}
	return n
}
