package genai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	gemini "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model hint is supplied.
const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiClient is a CompletionClient backed by Google's Gemini API.
type GeminiClient struct {
	client *gemini.Client
	model  string
}

// NewGeminiClient initializes a Gemini-backed completion client.
func NewGeminiClient(ctx context.Context, apiKey string, opts ...Option) (*GeminiClient, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}

	cli, err := gemini.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		slog.Error("genai.NewGeminiClient: failed to create client", "error", err)
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	slog.Debug("genai.NewGeminiClient: client created", "model", cfg.Model)
	return &GeminiClient{client: cli, model: cfg.Model}, nil
}

// Complete sends a system/user prompt pair and returns the raw response text.
func (c *GeminiClient) Complete(ctx context.Context, systemPrompt, userPrompt string, opts ...CompleteOption) (string, error) {
	var callOpts completeOpts
	for _, opt := range opts {
		opt(&callOpts)
	}
	modelName := callOpts.model
	if modelName == "" {
		modelName = c.model
	}

	model := c.client.GenerativeModel(modelName)
	if systemPrompt != "" {
		model.SystemInstruction = &gemini.Content{Parts: []gemini.Part{gemini.Text(systemPrompt)}}
	}

	resp, err := model.GenerateContent(ctx, gemini.Text(userPrompt))
	if err != nil {
		slog.Error("genai.GeminiClient.Complete: request failed", "error", err, "model", modelName)
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		slog.Error("genai.GeminiClient.Complete: empty candidate list", "model", modelName)
		return "", ErrNoChoices
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(gemini.Text); ok {
			sb.WriteString(string(text))
		}
	}
	out := sb.String()
	if out == "" {
		return "", ErrNoChoices
	}
	slog.Debug("genai.GeminiClient.Complete: completion succeeded", "model", modelName, "length", len(out))
	return out, nil
}

// Close releases the underlying Gemini client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}
