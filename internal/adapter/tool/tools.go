package tool

import (
	"fmt"

	"chainforge/internal/application/port/output"
	"chainforge/internal/domain/entity"
)

type Config struct {
	// Enabled lists the tool names to build. Empty builds all of them.
	Enabled       []string
	CodeMaxSteps  uint64
	SearchResults int
}

// Build constructs the configured built-in tools.
func Build(cfg Config, logger output.LoggerPort) ([]output.ToolPort, error) {
	enabled := cfg.Enabled
	if len(enabled) == 0 {
		enabled = []string{
			entity.ToolCalculator.String(),
			entity.ToolWebSearch.String(),
			entity.ToolCodeExecutor.String(),
		}
	}

	result := make([]output.ToolPort, 0, len(enabled))
	for _, name := range enabled {
		switch entity.ToolName(name) {
		case entity.ToolCalculator:
			result = append(result, NewCalculatorTool(logger))
		case entity.ToolCodeExecutor:
			result = append(result, NewCodeExecutorTool(cfg.CodeMaxSteps, logger))
		case entity.ToolWebSearch:
			search, err := NewDuckDuckGoSearchTool(cfg.SearchResults, logger)
			if err != nil {
				return nil, err
			}
			result = append(result, search)
		default:
			return nil, fmt.Errorf("%w: %q", entity.ErrUnknownTool, name)
		}
	}
	return result, nil
}
