package openaicompat

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"chainforge/internal/application/port/output"
	"chainforge/internal/domain/entity"

	"github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms"
)

var _ output.LLMPort = (*Adapter)(nil)

const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// Adapter talks to any OpenAI-compatible chat completions endpoint:
// OpenAI itself, OpenRouter, or a local gateway.
type Adapter struct {
	client      *openai.Client
	model       string
	temperature float64
	maxTokens   int
	logger      output.LoggerPort
}

type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	HTTPClient  *http.Client
	Logger      output.LoggerPort
}

func DefaultConfig(apiKey, model string) Config {
	return Config{
		APIKey:      apiKey,
		Model:       model,
		Temperature: 0.7,
		MaxTokens:   2000,
	}
}

type loggingTransport struct {
	base   http.RoundTripper
	logger output.LoggerPort
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	t.logger.Debug("HTTP Request",
		"method", req.Method,
		"url", req.URL.String(),
		"contentLength", req.ContentLength,
	)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.logger.Warn("HTTP Request failed", "url", req.URL.String(), "error", err)
		return nil, err
	}

	t.logger.Debug("HTTP Response",
		"status", resp.Status,
		"statusCode", resp.StatusCode,
		"duration", time.Since(start),
	)
	return resp, nil
}

func New(cfg Config) *Adapter {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.Logger != nil {
		base := httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		wrapped := *httpClient
		wrapped.Transport = &loggingTransport{base: base, logger: cfg.Logger}
		httpClient = &wrapped
	}
	config.HTTPClient = httpClient

	return &Adapter{
		client:      openai.NewClientWithConfig(config),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      cfg.Logger,
	}
}

func (a *Adapter) Generate(ctx context.Context, req *entity.LLMRequest) (*entity.LLMResponse, error) {
	start := time.Now()

	resp, err := a.client.CreateChatCompletion(ctx, a.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0]
	return &entity.LLMResponse{
		Text:  choice.Message.Content,
		Model: resp.Model,
		TokenUsage: entity.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		FinishReason: string(choice.FinishReason),
		Latency:      time.Since(start),
	}, nil
}

func (a *Adapter) buildRequest(req *entity.LLMRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemMessage != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemMessage,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	out := openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    messages,
		Temperature: float32(a.temperature),
		MaxTokens:   a.maxTokens,
		Stop:        req.StopSequences,
	}
	if req.Model != "" {
		out.Model = req.Model
	}
	if req.Temperature != nil {
		out.Temperature = float32(*req.Temperature)
	}
	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}
	if req.TopP != nil {
		out.TopP = float32(*req.TopP)
	}
	return out
}

// CountTokens uses the tiktoken encoding of the configured model.
func (a *Adapter) CountTokens(text string) int {
	return llms.CountTokens(a.model, text)
}

func (a *Adapter) Model() string {
	return a.model
}
