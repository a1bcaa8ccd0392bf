package output

import (
	"context"

	"chainforge/internal/domain/entity"
)

// LLMPort is a text generation provider. Implementations must be safe for
// concurrent use.
type LLMPort interface {
	Generate(ctx context.Context, req *entity.LLMRequest) (*entity.LLMResponse, error)
	CountTokens(text string) int
}

type ProviderRegistry interface {
	Register(name string, llm LLMPort)
	Get(name string) (LLMPort, error)
	Default() (LLMPort, error)
	List() []string
}
