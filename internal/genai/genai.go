// Package genai provides completion clients for MamaMind.
//
// The primary client speaks the OpenAI chat-completions API and works with
// any compatible endpoint (OpenAI, Perplexity) via a configurable base URL.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel is used when no model hint is supplied.
const DefaultModel = "sonar-pro"

// ErrNoChoices indicates the completion service returned an empty choice list.
var ErrNoChoices = errors.New("no choices returned from completion service")

// CompleteOption adjusts a single Complete call.
type CompleteOption func(*completeOpts)

type completeOpts struct {
	model string
}

// WithModelHint selects the model for one completion call.
func WithModelHint(model string) CompleteOption {
	return func(o *completeOpts) { o.model = model }
}

// CompletionClient is the black-box text-completion dependency used by the
// conversation flow, meal plan generator, and tip sweep.
type CompletionClient interface {
	// Complete sends a system/user prompt pair and returns the raw response
	// text. Callers must tolerate non-JSON text, reasoning preambles, and
	// truncated output.
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts ...CompleteOption) (string, error)
}

// chatService defines the minimal interface for chat completions, allowing
// the real client to be swapped for a mock in tests.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// openAIChatService adapts the openai-go client to the chatService seam.
type openAIChatService struct {
	client openai.Client
}

func (s openAIChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Opts holds configuration options for the completion client.
type Opts struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Option defines a configuration option for the completion client.
type Option func(*Opts)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithModel sets the default model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// Client wraps an OpenAI-compatible chat completion service.
type Client struct {
	chat  chatService
	model string
}

// NewClient initializes a completion client. The API key falls back to
// COMPLETION_API_KEY, then OPENAI_API_KEY, if not provided via options.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("COMPLETION_API_KEY")
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("completion API key not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	cli := openai.NewClient(reqOpts...)
	slog.Debug("genai.NewClient: completion client created", "base_url_set", cfg.BaseURL != "", "model", cfg.Model)
	return &Client{chat: openAIChatService{client: cli}, model: cfg.Model}, nil
}

// Complete sends a system/user prompt pair and returns the raw response text.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, opts ...CompleteOption) (string, error) {
	var callOpts completeOpts
	for _, opt := range opts {
		opt(&callOpts)
	}
	model := callOpts.model
	if model == "" {
		model = c.model
	}

	messages := []openai.ChatCompletionMessageParamUnion{}
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userPrompt))

	resp, err := c.chat.Create(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	})
	if err != nil {
		slog.Error("genai.Complete: completion request failed", "error", err, "model", model)
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Error("genai.Complete: empty choice list", "model", model)
		return "", ErrNoChoices
	}
	slog.Debug("genai.Complete: completion succeeded", "model", model, "length", len(resp.Choices[0].Message.Content))
	return resp.Choices[0].Message.Content, nil
}
