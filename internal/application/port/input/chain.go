package input

import (
	"context"

	"chainforge/internal/domain/entity"
)

// Chain is a reusable unit of prompt templating, retrieval and LLM calls.
// Implementations hold no per-call state and may be executed concurrently.
type Chain interface {
	Execute(ctx context.Context, in entity.ChainInput) (*entity.ChainOutput, error)
	Name() string
	Description() string
}
