package langchain

import (
	"context"
	"fmt"
	"time"

	"chainforge/internal/application/port/output"
	"chainforge/internal/domain/entity"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/huggingface"
	"github.com/tmc/langchaingo/llms/ollama"
)

var _ output.LLMPort = (*Adapter)(nil)

// Adapter exposes any langchaingo model as an LLMPort. Token usage is
// normalized across the key names different providers report.
type Adapter struct {
	model     llms.Model
	modelName string
}

func New(model llms.Model, modelName string) *Adapter {
	return &Adapter{model: model, modelName: modelName}
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

func NewOllama(cfg OllamaConfig) (*Adapter, error) {
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return New(llm, cfg.Model), nil
}

type HuggingFaceConfig struct {
	Token string
	Model string
}

func NewHuggingFace(cfg HuggingFaceConfig) (*Adapter, error) {
	opts := []huggingface.Option{huggingface.WithModel(cfg.Model)}
	if cfg.Token != "" {
		opts = append(opts, huggingface.WithToken(cfg.Token))
	}
	llm, err := huggingface.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create huggingface client: %w", err)
	}
	return New(llm, cfg.Model), nil
}

// Unwrap returns the underlying langchaingo model.
func (a *Adapter) Unwrap() llms.Model {
	return a.model
}

func (a *Adapter) Generate(ctx context.Context, req *entity.LLMRequest) (*entity.LLMResponse, error) {
	messages := make([]llms.MessageContent, 0, 2)
	if req.SystemMessage != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.SystemMessage))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))

	model := a.modelName
	if req.Model != "" {
		model = req.Model
	}

	start := time.Now()
	resp, err := a.model.GenerateContent(ctx, messages, callOptions(req, model)...)
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0]
	return &entity.LLMResponse{
		Text:         choice.Content,
		Model:        model,
		TokenUsage:   normalizeUsage(choice.GenerationInfo),
		FinishReason: choice.StopReason,
		Latency:      latency,
	}, nil
}

func callOptions(req *entity.LLMRequest, model string) []llms.CallOption {
	var opts []llms.CallOption
	if model != "" {
		opts = append(opts, llms.WithModel(model))
	}
	if req.Temperature != nil {
		opts = append(opts, llms.WithTemperature(*req.Temperature))
	}
	if req.MaxTokens != nil {
		opts = append(opts, llms.WithMaxTokens(*req.MaxTokens))
	}
	if req.TopP != nil {
		opts = append(opts, llms.WithTopP(*req.TopP))
	}
	if len(req.StopSequences) > 0 {
		opts = append(opts, llms.WithStopWords(req.StopSequences))
	}
	return opts
}

func (a *Adapter) CountTokens(text string) int {
	return llms.CountTokens(a.modelName, text)
}

func normalizeUsage(info map[string]any) entity.TokenUsage {
	if info == nil {
		return entity.TokenUsage{}
	}
	prompt := firstInt(info, "PromptTokens", "InputTokens", "input_tokens")
	completion := firstInt(info, "CompletionTokens", "OutputTokens", "output_tokens")
	total := firstInt(info, "TotalTokens", "total_tokens")
	if total == 0 {
		total = prompt + completion
	}
	return entity.TokenUsage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      total,
	}
}

// firstInt returns the first positive value found under keys.
func firstInt(m map[string]any, keys ...string) int {
	for _, key := range keys {
		if v := toInt(m[key]); v > 0 {
			return v
		}
	}
	return 0
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	default:
		return 0
	}
}
