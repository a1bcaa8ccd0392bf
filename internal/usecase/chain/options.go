package chain

import (
	"context"
	"time"

	"chainforge/internal/application/port/output"
	"chainforge/internal/domain/entity"
	"chainforge/internal/usecase/deadline"
)

type Option func(*options)

type options struct {
	callTimeout time.Duration
	logger      output.LoggerPort
}

// WithCallTimeout bounds every LLM and retriever call made by the chain.
func WithCallTimeout(d time.Duration) Option {
	return func(o *options) { o.callTimeout = d }
}

func WithLogger(l output.LoggerPort) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) debug(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Debug(msg, args...)
	}
}

func generate(ctx context.Context, llm output.LLMPort, o options, prompt string) (*entity.LLMResponse, error) {
	resp, err := deadline.Call(ctx, o.callTimeout, "llm generate", func(ctx context.Context) (*entity.LLMResponse, error) {
		return llm.Generate(ctx, entity.NewLLMRequest(prompt))
	})
	if err != nil {
		return nil, entity.ProviderFailure("llm generate", err)
	}
	return resp, nil
}
