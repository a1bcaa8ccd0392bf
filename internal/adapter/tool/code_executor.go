package tool

import (
	"context"
	"fmt"
	"strings"

	"chainforge/internal/application/port/output"
	"chainforge/internal/domain/entity"

	"go.starlark.net/lib/math"
	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
)

func init() {
	// Models write Python-style scripts with top-level loops, reassignment
	// and while loops.
	resolve.AllowGlobalReassign = true
	resolve.AllowRecursion = true
	resolve.AllowSet = true
}

var _ output.ToolPort = (*CodeExecutorTool)(nil)

const DefaultCodeMaxSteps = 1_000_000

// CodeExecutorTool runs a Starlark program in a fresh interpreter with no
// filesystem or network access. Output is everything the program prints,
// followed by the value of a global named result, if the program sets one.
type CodeExecutorTool struct {
	maxSteps uint64
	logger   output.LoggerPort
}

func NewCodeExecutorTool(maxSteps uint64, logger output.LoggerPort) *CodeExecutorTool {
	if maxSteps == 0 {
		maxSteps = DefaultCodeMaxSteps
	}
	return &CodeExecutorTool{maxSteps: maxSteps, logger: logger}
}

func (t *CodeExecutorTool) Name() entity.ToolName { return entity.ToolCodeExecutor }
func (t *CodeExecutorTool) Description() string {
	return "Executes code in a sandboxed Starlark (Python dialect) interpreter. Use print() to produce output or assign the answer to a variable named result. No imports, files or network."
}

func (t *CodeExecutorTool) Parameters() entity.ToolParameters {
	return entity.ToolParameters{
		Required: []string{"code"},
		Optional: []string{"language"},
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"code": map[string]any{
					"type":        "string",
					"description": "Program source",
				},
				"language": map[string]any{
					"type": "string",
					"enum": []string{"starlark", "python"},
				},
			},
			"required": []string{"code"},
		},
	}
}

func (t *CodeExecutorTool) Execute(ctx context.Context, input string) (*entity.ToolOutput, error) {
	code := stripCodeFence(input)
	if strings.TrimSpace(code) == "" {
		return entity.ToolFailure("No code to execute"), nil
	}

	var printed strings.Builder
	thread := &starlark.Thread{
		Name: "code_executor",
		Print: func(_ *starlark.Thread, msg string) {
			printed.WriteString(msg)
			printed.WriteByte('\n')
		},
	}
	thread.SetMaxExecutionSteps(t.maxSteps)
	stop := cancelOnDone(ctx, thread)
	defer stop()

	globals, err := starlark.ExecFile(thread, "main.star", code, math.Module.Members)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		t.logger.Debug("Code execution failed", "error", err, "steps", thread.ExecutionSteps())
		msg := err.Error()
		if evalErr, ok := err.(*starlark.EvalError); ok {
			msg = evalErr.Backtrace()
		}
		out := entity.ToolFailure(fmt.Sprintf("Execution error: %s", msg))
		if printed.Len() > 0 {
			out.Metadata["stdout"] = printed.String()
		}
		return out, nil
	}

	result := printed.String()
	if v, ok := globals["result"]; ok {
		result += v.String()
	}
	result = strings.TrimRight(result, "\n")
	if result == "" {
		result = "Code executed with no output"
	}

	out := entity.ToolSuccess(result)
	out.Metadata["steps"] = thread.ExecutionSteps()
	return out, nil
}

// stripCodeFence removes a surrounding markdown code fence, which models
// often add around programs.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}
