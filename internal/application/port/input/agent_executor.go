package input

import (
	"context"

	"chainforge/internal/domain/entity"
)

type AgentExecutor interface {
	Execute(ctx context.Context, task string) (*entity.AgentResult, error)
}
