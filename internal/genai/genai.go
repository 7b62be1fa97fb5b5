// Package genai phrases interview replies with an OpenAI-compatible chat completion API.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lumopack/lumobot/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Default generation settings.
const (
	DefaultModel       = string(openai.ChatModelGPT4oMini)
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1024
)

var (
	ErrNoChoicesReturned = errors.New("no choices returned")
	ErrMissingAPIKey     = errors.New("API key is required")
	ErrNoExtractedData   = errors.New("response has no EXTRACTED_DATA section")
)

// chatService defines minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

type openaiChatService struct {
	client openai.Client
}

func (s *openaiChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Opts holds configuration for the GenAI client.
type Opts struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int64
}

// Option configures the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithModel sets the chat model name.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Opts) { o.Temperature = t }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int64) Option {
	return func(o *Opts) { o.MaxTokens = n }
}

// Client wraps the chat completion service.
type Client struct {
	chat        chatService
	model       string
	temperature float64
	maxTokens   int64
}

// NewClient initializes a new GenAI client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{Model: DefaultModel, Temperature: DefaultTemperature, MaxTokens: DefaultMaxTokens}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	slog.Debug("GenAI.NewClient: creating client", "model", cfg.Model, "base_url_set", cfg.BaseURL != "")
	return &Client{
		chat:        &openaiChatService{client: openai.NewClient(reqOpts...)},
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func (c *Client) params(messages []openai.ChatCompletionMessageParamUnion) openai.ChatCompletionNewParams {
	model := c.model
	if model == "" {
		model = DefaultModel
	}
	p := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	if c.temperature > 0 {
		p.Temperature = openai.Float(c.temperature)
	}
	if c.maxTokens > 0 {
		p.MaxTokens = openai.Int(c.maxTokens)
	}
	return p
}

func buildMessages(systemPrompt, userPrompt string, history []models.Message) []openai.ChatCompletionMessageParamUnion {
	messages := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(systemPrompt)}
	for _, m := range history {
		switch m.Role {
		case models.RoleUser:
			messages = append(messages, openai.UserMessage(m.Content))
		case models.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		}
	}
	return append(messages, openai.UserMessage(userPrompt))
}

func (c *Client) complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := c.chat.Create(ctx, c.params(messages))
	if err != nil {
		slog.Warn("GenAI.complete: chat completion failed", "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Generate produces a reply given the step instructions, the customer's text and recent history.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string, history []models.Message) (string, error) {
	out, err := c.complete(ctx, buildMessages(systemPrompt, userPrompt, history))
	if err != nil {
		return "", err
	}
	slog.Debug("GenAI.Generate: generated reply", "chars", len(out), "history", len(history))
	return out, nil
}

// Extraction is a reply with structured fields pulled out by the model.
type Extraction struct {
	Response string                 `json:"response"`
	Data     map[string]interface{} `json:"extracted_data"`
}

const extractionInstructions = `

Answer in exactly this format:
RESPONSE: <your reply to the customer in Thai>
EXTRACTED_DATA: <one JSON object with the fields %s; use null for anything not stated>`

// GenerateWithExtraction asks the model for a reply plus a JSON object holding fields.
func (c *Client) GenerateWithExtraction(ctx context.Context, systemPrompt, userPrompt string, history []models.Message, fields []string) (Extraction, error) {
	system := systemPrompt + fmt.Sprintf(extractionInstructions, strings.Join(fields, ", "))
	out, err := c.complete(ctx, buildMessages(system, userPrompt, history))
	if err != nil {
		return Extraction{}, err
	}
	return ParseExtraction(out)
}

// ParseExtraction splits a RESPONSE/EXTRACTED_DATA completion.
func ParseExtraction(out string) (Extraction, error) {
	idx := strings.Index(out, "EXTRACTED_DATA:")
	if idx < 0 {
		return Extraction{Response: strings.TrimSpace(strings.TrimPrefix(out, "RESPONSE:"))}, ErrNoExtractedData
	}
	response := strings.TrimSpace(out[:idx])
	response = strings.TrimSpace(strings.TrimPrefix(response, "RESPONSE:"))

	raw := strings.TrimSpace(out[idx+len("EXTRACTED_DATA:"):])
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		raw = raw[start : end+1]
	}
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return Extraction{Response: response}, fmt.Errorf("failed to decode extracted data: %w", err)
	}
	return Extraction{Response: response, Data: data}, nil
}
