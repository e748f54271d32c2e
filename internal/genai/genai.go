// Package genai provides the Language Model Service client used by all
// analysis and generation stages, backed by the OpenAI API.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// DefaultModel is used when a stage does not configure its own model.
const DefaultModel = "gpt-4o-mini"

// ErrNoChoicesReturned indicates the API returned an empty choice list.
var ErrNoChoicesReturned = errors.New("no choices returned")

// ErrAPIKeyNotSet indicates no API key was configured or found in the environment.
var ErrAPIKeyNotSet = errors.New("OPENAI_API_KEY not set")

// chatService defines the minimal interface for chat completions.
// It exists so tests can substitute a mock for the OpenAI client.
type chatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// ClientInterface defines the operations pipeline stages need from the
// Language Model Service.
type ClientInterface interface {
	// GeneratePrompt generates free text using the default model.
	GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// GenerateWithModel generates text with an explicit model; when
	// structured is true the JSON-object response format is requested.
	GenerateWithModel(ctx context.Context, systemPrompt, userPrompt, model string, structured bool) (string, error)
}

// Opts holds configuration for the GenAI client.
type Opts struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// Option configures the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the API key explicitly instead of reading the environment.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL overrides the API endpoint (e.g. an OpenAI-compatible router).
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithDefaultModel overrides the model used by GeneratePrompt.
func WithDefaultModel(model string) Option {
	return func(o *Opts) { o.DefaultModel = model }
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	chat         chatService
	defaultModel string
}

// NewClient initializes a GenAI client. The API key comes from options or
// the OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DefaultModel
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	cli := openai.NewClient(reqOpts...)
	slog.Debug("genai.NewClient: client initialized", "baseURL_set", cfg.BaseURL != "", "defaultModel", cfg.DefaultModel)
	return &Client{chat: &cli.Chat.Completions, defaultModel: cfg.DefaultModel}, nil
}

// GeneratePrompt generates a response using the default model.
func (c *Client) GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.GenerateWithModel(ctx, systemPrompt, userPrompt, c.defaultModel, false)
}

// GenerateWithModel generates a response with the given model. When
// structured is true, the JSON-object response format is requested so the
// caller can parse the output.
func (c *Client) GenerateWithModel(ctx context.Context, systemPrompt, userPrompt, model string, structured bool) (string, error) {
	if model == "" {
		model = c.defaultModel
	}
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	}
	if structured {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.chat.New(ctx, params)
	if err != nil {
		slog.Error("genai.GenerateWithModel: chat completion failed", "error", err, "model", model, "structured", structured)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Error("genai.GenerateWithModel: empty choices", "model", model)
		return "", ErrNoChoicesReturned
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	slog.Debug("genai.GenerateWithModel: completion succeeded", "model", model, "structured", structured, "length", len(content))
	return content, nil
}
