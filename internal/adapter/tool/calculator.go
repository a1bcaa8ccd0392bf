package tool

import (
	"context"
	"fmt"
	"strings"

	"chainforge/internal/application/port/output"
	"chainforge/internal/domain/entity"

	"go.starlark.net/lib/math"
	"go.starlark.net/starlark"
)

var _ output.ToolPort = (*CalculatorTool)(nil)

// calculatorMaxSteps keeps pathological expressions such as 9**9**9 from
// running away.
const calculatorMaxSteps = 100_000

// CalculatorTool evaluates one arithmetic expression with Starlark. The math
// module members (sqrt, pow, pi, ...) are in scope.
type CalculatorTool struct {
	logger output.LoggerPort
}

func NewCalculatorTool(logger output.LoggerPort) *CalculatorTool {
	return &CalculatorTool{logger: logger}
}

func (t *CalculatorTool) Name() entity.ToolName { return entity.ToolCalculator }
func (t *CalculatorTool) Description() string {
	return "Performs mathematical calculations. Input is a single arithmetic expression such as (2 + 3) * 4 or sqrt(16); math functions like sqrt, pow, floor and constants pi and e are available."
}

func (t *CalculatorTool) Parameters() entity.ToolParameters {
	return entity.ToolParameters{
		Required: []string{"expression"},
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"expression": map[string]any{
					"type":        "string",
					"description": "Arithmetic expression to evaluate",
				},
			},
			"required": []string{"expression"},
		},
	}
}

func (t *CalculatorTool) Execute(ctx context.Context, input string) (*entity.ToolOutput, error) {
	expr := strings.TrimSpace(input)
	if expr == "" {
		return entity.ToolFailure("Invalid calculation expression: empty input"), nil
	}

	thread := &starlark.Thread{Name: "calculator"}
	thread.SetMaxExecutionSteps(calculatorMaxSteps)
	stop := cancelOnDone(ctx, thread)
	defer stop()

	v, err := starlark.Eval(thread, "expression", expr, math.Module.Members)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		t.logger.Debug("Calculation failed", "expression", expr, "error", err)
		return entity.ToolFailure(fmt.Sprintf("Invalid calculation expression: %v", err)), nil
	}

	switch v.(type) {
	case starlark.Int, starlark.Float:
	default:
		return entity.ToolFailure(fmt.Sprintf("Expression did not produce a number: %s", v.Type())), nil
	}

	out := entity.ToolSuccess(v.String())
	out.Metadata["expression"] = expr
	return out, nil
}

// cancelOnDone cancels thread once ctx is done. The returned func must be
// called when evaluation finishes.
func cancelOnDone(ctx context.Context, thread *starlark.Thread) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()
	return func() { close(done) }
}
