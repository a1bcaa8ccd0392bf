package output

import (
	"context"

	"chainforge/internal/domain/entity"
)

// ToolPort is a capability the agent can dispatch to. Tools must tolerate
// concurrent calls from independent agent runs.
type ToolPort interface {
	Name() entity.ToolName
	Description() string
	Parameters() entity.ToolParameters
	Execute(ctx context.Context, input string) (*entity.ToolOutput, error)
}

type ToolRegistry interface {
	Register(tool ToolPort)
	Get(name entity.ToolName) (ToolPort, bool)
	List() []ToolPort
	Definitions() []entity.ToolDefinition
}
