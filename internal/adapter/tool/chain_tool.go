package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"chainforge/internal/application/port/input"
	"chainforge/internal/application/port/output"
	"chainforge/internal/domain/entity"
)

var _ output.ToolPort = (*ChainTool)(nil)

// ChainToolPrefix prefixes the tool name of every chain exposed to agents.
const ChainToolPrefix = "chain_"

// ChainTool lets an agent run a registered chain. The action input is bound
// to a single chain variable.
type ChainTool struct {
	id          string
	chain       input.Chain
	variable    string
	description string
	logger      output.LoggerPort
}

func NewChainTool(id string, chain input.Chain, variable, description string, logger output.LoggerPort) *ChainTool {
	if description == "" {
		description = chain.Description()
	}
	return &ChainTool{
		id:          id,
		chain:       chain,
		variable:    variable,
		description: description,
		logger:      logger,
	}
}

func (t *ChainTool) Name() entity.ToolName {
	return entity.ToolName(ChainToolPrefix + t.id)
}

func (t *ChainTool) Description() string {
	return fmt.Sprintf("%s. Input is the %s for the chain.", strings.TrimSuffix(t.description, "."), t.variable)
}

func (t *ChainTool) Parameters() entity.ToolParameters {
	return entity.ToolParameters{
		Required: []string{t.variable},
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				t.variable: map[string]any{
					"type":        "string",
					"description": "Value bound to {" + t.variable + "} in the chain template",
				},
			},
			"required": []any{t.variable},
		},
	}
}

func (t *ChainTool) Execute(ctx context.Context, in string) (*entity.ToolOutput, error) {
	t.logger.Info("Chain tool delegating", "chain", t.id, "variable", t.variable)

	out, err := t.chain.Execute(ctx, entity.NewChainInput().With(t.variable, strings.TrimSpace(in)))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		t.logger.Warn("Chain tool failed", "chain", t.id, "error", err)
		return entity.ToolFailure("Chain error: " + err.Error()), nil
	}

	return entity.ToolSuccess(resultText(out.Result)), nil
}

// resultText extracts the generated text from a chain result.
func resultText(result any) string {
	switch v := result.(type) {
	case string:
		return v
	case map[string]any:
		if s, ok := v["output"].(string); ok {
			return s
		}
	case nil:
		return ""
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprint(result)
	}
	return string(raw)
}
