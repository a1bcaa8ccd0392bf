package chain

import (
	"context"

	"chainforge/internal/application/port/input"
	"chainforge/internal/application/port/output"
	"chainforge/internal/domain/entity"
)

var _ input.Chain = (*Simple)(nil)

// Simple renders a template from the input and makes one LLM call.
type Simple struct {
	name        string
	description string
	llm         output.LLMPort
	template    string
	opts        options
}

func NewSimple(name, description string, llm output.LLMPort, template string, opts ...Option) *Simple {
	return &Simple{
		name:        name,
		description: description,
		llm:         llm,
		template:    template,
		opts:        buildOptions(opts),
	}
}

func (c *Simple) Name() string        { return c.name }
func (c *Simple) Description() string { return c.description }

func (c *Simple) Execute(ctx context.Context, in entity.ChainInput) (*entity.ChainOutput, error) {
	agg := newAggregator(c.name)

	prompt := renderInput(c.template, in)
	c.opts.debug("Simple chain prompt rendered", "chain", c.name, "promptLen", len(prompt))

	resp, err := generate(ctx, c.llm, c.opts, prompt)
	if err != nil {
		return nil, err
	}

	agg.addStep(entity.StepInfo{
		Name:     "llm_call",
		Duration: resp.Latency,
		Input:    prompt,
		Output:   resp.Text,
	})
	agg.addUsage(resp)

	return &entity.ChainOutput{
		Result: map[string]any{
			"output": resp.Text,
			"model":  resp.Model,
		},
		Metadata: agg.finish(),
	}, nil
}
