// Package llm talks to OpenAI-compatible chat, speech-to-text and embedding endpoints.
package llm

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"
	"time"

	"github.com/jimdaga/aether/internal/config"
	"github.com/jimdaga/aether/internal/observability"
	openai "github.com/sashabaranov/go-openai"
)

// ErrEmptyResponse is returned when the model produced no choices.
var ErrEmptyResponse = errors.New("empty model response")

// StubEmbeddingDims is the vector size produced in stub mode.
const StubEmbeddingDims = 1536

// Stub mode responses.
const (
	stubJSON       = `{"events": [], "themes": [{"name": "Planning", "value": 7}]}`
	stubText       = "Stub summary: the team discussed next steps."
	stubTranscript = "Stub transcript of the recorded meeting."
)

// Operation labels for metrics and spans.
const (
	OpChat       = "chat"
	OpTranscribe = "transcribe"
	OpEmbed      = "embed"
)

// Options configures a Client.
type Options struct {
	APIKey             string
	BaseURL            string
	ChatModel          string
	TranscriptionModel string

	EmbeddingAPIKey  string
	EmbeddingBaseURL string
	EmbeddingModel   string

	Timeout  time.Duration
	StubMode bool

	Metrics *observability.Metrics
	Tracer  *observability.Tracer
}

// Client handles communication with the language model provider.
type Client struct {
	chat  *openai.Client
	embed *openai.Client

	chatModel          string
	transcriptionModel string
	embeddingModel     string

	stubMode bool
	metrics  *observability.Metrics
	tracer   *observability.Tracer
}

// NewClient creates a new client with the given configuration.
func NewClient(opts Options) *Client {
	httpClient := &http.Client{Timeout: opts.Timeout}

	chatCfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		chatCfg.BaseURL = opts.BaseURL
	}
	chatCfg.HTTPClient = httpClient

	embedKey := opts.EmbeddingAPIKey
	if embedKey == "" {
		embedKey = opts.APIKey
	}
	embedCfg := openai.DefaultConfig(embedKey)
	if opts.EmbeddingBaseURL != "" {
		embedCfg.BaseURL = opts.EmbeddingBaseURL
	}
	embedCfg.HTTPClient = httpClient

	tracer := opts.Tracer
	if tracer == nil {
		tracer = observability.NewTracer()
	}

	return &Client{
		chat:               openai.NewClientWithConfig(chatCfg),
		embed:              openai.NewClientWithConfig(embedCfg),
		chatModel:          opts.ChatModel,
		transcriptionModel: opts.TranscriptionModel,
		embeddingModel:     opts.EmbeddingModel,
		stubMode:           opts.StubMode,
		metrics:            opts.Metrics,
		tracer:             tracer,
	}
}

// NewClientFromConfig builds a Client from application configuration.
func NewClientFromConfig(cfg *config.Config, metrics *observability.Metrics) *Client {
	return NewClient(Options{
		APIKey:             cfg.GroqAPIKey,
		BaseURL:            cfg.LLMBaseURL,
		ChatModel:          cfg.ChatModel,
		TranscriptionModel: cfg.TranscriptionModel,
		EmbeddingAPIKey:    cfg.EmbeddingAPIKey,
		EmbeddingBaseURL:   cfg.EmbeddingBaseURL,
		EmbeddingModel:     cfg.EmbeddingModel,
		Timeout:            cfg.LLMTimeout,
		StubMode:           cfg.LLMStubMode,
		Metrics:            metrics,
	})
}

// CompleteJSON sends a system and user message in JSON output mode and returns the raw content.
func (c *Client) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	if c.stubMode {
		return stubJSON, nil
	}
	return c.complete(ctx, system, user, &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	})
}

// Complete sends a system and user message and returns the free-text reply.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if c.stubMode {
		return stubText, nil
	}
	return c.complete(ctx, system, user, nil)
}

func (c *Client) complete(ctx context.Context, system, user string, format *openai.ChatCompletionResponseFormat) (content string, err error) {
	ctx, span := c.tracer.StartLLMSpan(ctx, OpChat, c.chatModel)
	start := time.Now()
	defer func() {
		c.metrics.RecordAIOperation(OpChat, c.chatModel, err, time.Since(start))
		observability.EndSpan(span, err)
	}()

	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: format,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}

// TranscribeFile sends the audio file at path to the speech-to-text model.
// Silence may legitimately produce an empty string.
func (c *Client) TranscribeFile(ctx context.Context, path string) (text string, err error) {
	if c.stubMode {
		return stubTranscript, nil
	}

	ctx, span := c.tracer.StartLLMSpan(ctx, OpTranscribe, c.transcriptionModel)
	start := time.Now()
	defer func() {
		c.metrics.RecordAIOperation(OpTranscribe, c.transcriptionModel, err, time.Since(start))
		observability.EndSpan(span, err)
	}()

	resp, err := c.chat.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.transcriptionModel,
		FilePath: path,
	})
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) (vec []float32, err error) {
	if c.stubMode {
		return stubEmbedding(text), nil
	}

	ctx, span := c.tracer.StartLLMSpan(ctx, OpEmbed, c.embeddingModel)
	start := time.Now()
	defer func() {
		c.metrics.RecordAIOperation(OpEmbed, c.embeddingModel, err, time.Since(start))
		observability.EndSpan(span, err)
	}()

	resp, err := c.embed.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, ErrEmptyResponse
	}

	return resp.Data[0].Embedding, nil
}

// stubEmbedding derives a deterministic unit-range vector from text.
func stubEmbedding(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	state := h.Sum64()

	vec := make([]float32, StubEmbeddingDims)
	for i := range vec {
		state = state*6364136223846793005 + 1442695040888963407
		vec[i] = float32(state>>40)/float32(1<<24)*2 - 1
	}
	return vec
}
