package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"NewsDesk/internal/ports"
	"NewsDesk/internal/ratelimit"
)

// Config defines how to contact an OpenAI-compatible chat API.
type Config struct {
	// BaseURL is the API root, e.g. https://api.openai.com/v1.
	BaseURL      string
	Model        string
	APIKey       string
	SystemPrompt string
	MaxTokens    int
	Temperature  float32
	Timeout      time.Duration
}

// ChatGPTClient implements ports.GenerationProvider backed by OpenAI-compatible APIs.
type ChatGPTClient struct {
	client       *openai.Client
	model        string
	apiKey       string
	systemPrompt string
	maxTokens    int
	temperature  float32
}

var _ ports.GenerationProvider = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration; nil httpClient uses cfg.Timeout (default 90s).
func NewChatGPTClient(cfg Config, httpClient *http.Client) *ChatGPTClient {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 90 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	oc.HTTPClient = httpClient

	return &ChatGPTClient{
		client:       openai.NewClientWithConfig(oc),
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
	}
}

// Generate sends one chat completion and returns the first choice's text.
// HTTP 429 is reported as ratelimit.ErrRateLimited so the queue can back off.
func (c *ChatGPTClient) Generate(ctx context.Context, req ports.GenerationRequest) (string, error) {
	if c == nil {
		return "", fmt.Errorf("chatgpt client is nil")
	}
	if c.apiKey == "" || c.model == "" {
		return "", fmt.Errorf("chatgpt client misconfigured")
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: safePrompt(req.System, c.systemPrompt)},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		if statusCode(err) == http.StatusTooManyRequests {
			return "", fmt.Errorf("chatgpt %s: %w", req.Purpose, ratelimit.ErrRateLimited)
		}
		return "", fmt.Errorf("chatgpt %s: %w", req.Purpose, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chatgpt %s: empty completion", req.Purpose)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("chatgpt %s: empty completion", req.Purpose)
	}
	return text, nil
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func safePrompt(prompt, fallback string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt != "" {
		return prompt
	}
	fallback = strings.TrimSpace(fallback)
	if fallback == "" {
		return "You are a careful international news editor."
	}
	return fallback
}
