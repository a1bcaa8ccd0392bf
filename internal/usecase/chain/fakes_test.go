package chain

import (
	"context"
	"errors"
	"sync"
	"time"

	"chainforge/internal/domain/entity"
)

type fakeLLM struct {
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string) string
	model   string
	usage   entity.TokenUsage
	err     error
	delay   time.Duration
}

func (f *fakeLLM) Generate(ctx context.Context, req *entity.LLMRequest) (*entity.LLMResponse, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, req.Prompt)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	text := "ok"
	if f.reply != nil {
		text = f.reply(req.Prompt)
	}
	return &entity.LLMResponse{
		Text:         text,
		Model:        f.model,
		TokenUsage:   f.usage,
		FinishReason: "stop",
		Latency:      time.Millisecond,
	}, nil
}

func (f *fakeLLM) CountTokens(text string) int { return len(text) }

func (f *fakeLLM) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.prompts))
	copy(out, f.prompts)
	return out
}

type fakeRetriever struct {
	context string
	err     error
	queries []string
}

func (f *fakeRetriever) BuildContext(ctx context.Context, query string) (string, error) {
	f.queries = append(f.queries, query)
	return f.context, f.err
}

// recordingChain returns a fixed output and remembers every input.
type recordingChain struct {
	name   string
	output *entity.ChainOutput
	err    error
	inputs []entity.ChainInput
}

func (c *recordingChain) Name() string        { return c.name }
func (c *recordingChain) Description() string { return c.name + " description" }

func (c *recordingChain) Execute(ctx context.Context, in entity.ChainInput) (*entity.ChainOutput, error) {
	c.inputs = append(c.inputs, in)
	if c.err != nil {
		return nil, c.err
	}
	return c.output, nil
}

func stepOutput(result any, tokens int, cost float64, steps ...string) *entity.ChainOutput {
	infos := make([]entity.StepInfo, 0, len(steps))
	for _, s := range steps {
		infos = append(infos, entity.StepInfo{Name: s, Input: s + "-in", Output: s + "-out"})
	}
	return &entity.ChainOutput{
		Result: result,
		Metadata: entity.ChainMetadata{
			Steps:       infos,
			TotalTokens: tokens,
			TotalCost:   cost,
		},
	}
}

var errBoom = errors.New("boom")
