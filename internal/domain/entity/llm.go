package entity

import (
	"strings"
	"time"
)

// LLMRequest is a single-prompt generation request. Nil or empty optional
// fields fall back to the provider's defaults.
type LLMRequest struct {
	Prompt        string
	Model         string
	Temperature   *float64
	MaxTokens     *int
	TopP          *float64
	StopSequences []string
	SystemMessage string
}

func NewLLMRequest(prompt string) *LLMRequest {
	return &LLMRequest{Prompt: prompt}
}

func (r *LLMRequest) WithModel(model string) *LLMRequest {
	r.Model = model
	return r
}

func (r *LLMRequest) WithTemperature(t float64) *LLMRequest {
	r.Temperature = &t
	return r
}

func (r *LLMRequest) WithMaxTokens(n int) *LLMRequest {
	r.MaxTokens = &n
	return r
}

func (r *LLMRequest) WithSystemMessage(msg string) *LLMRequest {
	r.SystemMessage = msg
	return r
}

type LLMResponse struct {
	Text         string        `json:"text"`
	Model        string        `json:"model"`
	TokenUsage   TokenUsage    `json:"token_usage"`
	FinishReason string        `json:"finish_reason"`
	Latency      time.Duration `json:"latency"`
}

type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// EstimateCost returns an approximate USD cost for the usage on model.
// Unknown models cost nothing.
func (u TokenUsage) EstimateCost(model string) float64 {
	switch {
	case strings.Contains(model, "gpt-4"):
		return float64(u.PromptTokens)*0.00003 + float64(u.CompletionTokens)*0.00006
	case strings.Contains(model, "gpt-3.5"):
		return float64(u.PromptTokens)*0.0000015 + float64(u.CompletionTokens)*0.000002
	default:
		return 0
	}
}
