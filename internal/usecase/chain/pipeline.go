package chain

import (
	"context"
	"fmt"
	"time"

	"chainforge/internal/application/port/input"
	"chainforge/internal/application/port/output"
	"chainforge/internal/domain/entity"
	"chainforge/internal/usecase/deadline"
)

const (
	QueryKey   = "query"
	ContextKey = "context"
)

var _ input.Chain = (*RAGPipeline)(nil)

// RAGPipeline retrieves context for the query variable and answers it with
// one LLM call. The template sees only {context} and {query}.
type RAGPipeline struct {
	name        string
	description string
	llm         output.LLMPort
	retriever   output.RetrieverPort
	template    string
	opts        options
}

func NewRAGPipeline(name, description string, llm output.LLMPort, retriever output.RetrieverPort, template string, opts ...Option) *RAGPipeline {
	return &RAGPipeline{
		name:        name,
		description: description,
		llm:         llm,
		retriever:   retriever,
		template:    template,
		opts:        buildOptions(opts),
	}
}

func (c *RAGPipeline) Name() string        { return c.name }
func (c *RAGPipeline) Description() string { return c.description }

func (c *RAGPipeline) Execute(ctx context.Context, in entity.ChainInput) (*entity.ChainOutput, error) {
	agg := newAggregator(c.name)

	query, ok := in.GetString(QueryKey)
	if !ok {
		return nil, fmt.Errorf("%w: %q is required by chain %q", entity.ErrMissingVariable, QueryKey, c.name)
	}

	retrieveStart := time.Now()
	retrieved, err := deadline.Call(ctx, c.opts.callTimeout, "retrieve context", func(ctx context.Context) (string, error) {
		return c.retriever.BuildContext(ctx, query)
	})
	if err != nil {
		return nil, entity.ProviderFailure("retrieve context", err)
	}
	agg.addStep(entity.StepInfo{
		Name:     "retrieve_context",
		Duration: time.Since(retrieveStart),
		Input:    query,
		Output:   fmt.Sprintf("Retrieved %d characters of context", len(retrieved)),
	})

	prompt := Render(c.template, map[string]any{
		ContextKey: retrieved,
		QueryKey:   query,
	})

	llmStart := time.Now()
	resp, err := generate(ctx, c.llm, c.opts, prompt)
	if err != nil {
		return nil, err
	}
	agg.addStep(entity.StepInfo{
		Name:     "llm_generate",
		Duration: time.Since(llmStart),
		Input:    prompt,
		Output:   resp.Text,
	})
	agg.addUsage(resp)

	return &entity.ChainOutput{
		Result: map[string]any{
			"output":       resp.Text,
			"context_used": retrieved,
			"model":        resp.Model,
		},
		Metadata: agg.finish(),
	}, nil
}
