package chain

import (
	"context"
	"time"

	"chainforge/internal/application/port/input"
	"chainforge/internal/domain/entity"
	"chainforge/internal/usecase/deadline"
)

var _ input.Chain = (*Timed)(nil)

// Timed bounds a whole chain execution.
type Timed struct {
	input.Chain
	timeout time.Duration
}

func WithTimeout(c input.Chain, timeout time.Duration) input.Chain {
	if timeout <= 0 {
		return c
	}
	return &Timed{Chain: c, timeout: timeout}
}

func (t *Timed) Execute(ctx context.Context, in entity.ChainInput) (*entity.ChainOutput, error) {
	return deadline.Call(ctx, t.timeout, "chain "+t.Name(), func(ctx context.Context) (*entity.ChainOutput, error) {
		return t.Chain.Execute(ctx, in)
	})
}
