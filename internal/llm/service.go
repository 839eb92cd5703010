package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"grapevine/internal/debug"
	"grapevine/internal/observability"
)

const (
	DefaultChatModel      = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
)

// Role tags a message part for the completion endpoint.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

func System(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message      { return Message{Role: RoleUser, Content: content} }
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Options configures a Service. Zero values fall back to the package defaults.
type Options struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	MaxTokens      int
	Cooldown       time.Duration
	WaitOnCooldown bool
}

// Service is the completion and embedding collaborator. Every call, completion or
// embedding, draws from the same cooldown.
type Service struct {
	client         *openai.Client
	chatModel      string
	embeddingModel string
	maxTokens      int
	cooldown       *Cooldown
	wait           bool
	debug          *debug.Logger
	tracer         trace.Tracer
}

func NewService(opts Options, debug *debug.Logger) *Service {
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if strings.TrimSpace(opts.BaseURL) != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := openai.NewClient(reqOpts...)

	chatModel := opts.ChatModel
	if strings.TrimSpace(chatModel) == "" {
		chatModel = DefaultChatModel
	}
	embeddingModel := opts.EmbeddingModel
	if strings.TrimSpace(embeddingModel) == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 300
	}

	return &Service{
		client:         &client,
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		maxTokens:      maxTokens,
		cooldown:       NewCooldown(opts.Cooldown, time.Now),
		wait:           opts.WaitOnCooldown,
		debug:          debug,
		tracer:         otel.Tracer("llm-service"),
	}
}

// admit takes the cooldown token or reports ErrRateLimited. In wait mode it blocks
// until the token is available instead.
func (s *Service) admit(ctx context.Context) error {
	if s.wait {
		return s.cooldown.Wait(ctx)
	}
	return s.cooldown.Take()
}

func (s *Service) Complete(ctx context.Context, messages []Message) (string, error) {
	operationType := "text_completion"
	if opType := OperationType(ctx); opType != "" {
		operationType = opType
	}

	ctx, span := s.tracer.Start(ctx, operationType,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			observability.CreateGenAIAttributes("openai", s.chatModel, 0, 0, -1)...,
		),
	)
	defer span.End()

	span.SetAttributes(
		attribute.Int("gen_ai.request.max_tokens", s.maxTokens),
		attribute.String("langfuse.observation.type", "generation"),
		attribute.String("grapevine.operation_type", operationType),
	)
	CopySimContextToSpan(ctx, span)

	if err := s.admit(ctx); err != nil {
		span.SetAttributes(attribute.String("error.type", "rate_limited"))
		span.RecordError(err)
		if s.debug != nil {
			s.debug.Printf("LLM completion refused (%s): %v", operationType, err)
		}
		return "", err
	}

	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	var input strings.Builder
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			params = append(params, openai.SystemMessage(m.Content))
		case RoleAssistant:
			params = append(params, openai.AssistantMessage(m.Content))
		default:
			params = append(params, openai.UserMessage(m.Content))
		}
		input.WriteString(m.Content)
		input.WriteString("\n\n")
	}

	span.AddEvent("gen_ai.user.message", trace.WithAttributes(
		attribute.String("gen_ai.system", "openai"),
		attribute.String("content", input.String()),
	))

	startTime := time.Now()

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               shared.ChatModel(s.chatModel),
		Messages:            params,
		MaxCompletionTokens: openai.Int(int64(s.maxTokens)),
	})
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "llm_completion_error"))
		span.RecordError(err)
		if s.debug != nil {
			s.debug.Printf("LLM completion error (%s): %v", operationType, err)
		}
		return "", fmt.Errorf("text completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no completion choices returned")
		span.RecordError(err)
		return "", err
	}

	content := resp.Choices[0].Message.Content
	duration := time.Since(startTime)

	span.SetAttributes(
		attribute.Int64("gen_ai.usage.input_tokens", resp.Usage.PromptTokens),
		attribute.Int64("gen_ai.usage.output_tokens", resp.Usage.CompletionTokens),
		attribute.Int64("response_time_ms", duration.Milliseconds()),
		attribute.String("langfuse.observation.input", input.String()),
		attribute.String("langfuse.observation.output", content),
		attribute.String("langfuse.observation.model.name", s.chatModel),
	)
	span.AddEvent("gen_ai.choice", trace.WithAttributes(
		attribute.String("gen_ai.system", "openai"),
		attribute.String("content", content),
	))

	if s.debug != nil {
		s.debug.Printf("LLM completion (%s) length: %d, tokens: %d/%d, duration: %v",
			operationType, len(content), resp.Usage.PromptTokens, resp.Usage.CompletionTokens, duration)
	}

	return content, nil
}

// Embed returns one vector per input text, in input order.
func (s *Service) Embed(ctx context.Context, texts []string, dimensions int) ([][]float32, error) {
	ctx, span := s.tracer.Start(ctx, "llm.embed",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.operation.name", "embeddings"),
			attribute.String("gen_ai.system", "openai"),
			attribute.String("gen_ai.request.model", s.embeddingModel),
			attribute.Int("embedding.batch_size", len(texts)),
			attribute.Int("embedding.dimensions", dimensions),
		),
	)
	defer span.End()
	CopySimContextToSpan(ctx, span)

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	if err := s.admit(ctx); err != nil {
		span.SetAttributes(attribute.String("error.type", "rate_limited"))
		span.RecordError(err)
		return nil, err
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(s.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	}
	if dimensions > 0 {
		params.Dimensions = openai.Int(int64(dimensions))
	}

	resp, err := s.client.Embeddings.New(ctx, params)
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "llm_embedding_error"))
		span.RecordError(err)
		if s.debug != nil {
			s.debug.Printf("LLM embedding error: %v", err)
		}
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	if len(resp.Data) != len(texts) {
		err := fmt.Errorf("embedding returned %d vectors for %d inputs", len(resp.Data), len(texts))
		span.RecordError(err)
		return nil, err
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, len(data))
	for i, d := range data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}

	span.SetAttributes(attribute.Int64("gen_ai.usage.input_tokens", resp.Usage.PromptTokens))
	if s.debug != nil {
		s.debug.Printf("LLM embedding batch=%d dims=%d tokens=%d", len(texts), dimensions, resp.Usage.PromptTokens)
	}

	return out, nil
}
