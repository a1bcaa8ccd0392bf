// Package console renders agent progress for terminal users.
package console

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"chainforge/internal/application/port/output"
	"chainforge/internal/domain/entity"

	"github.com/fatih/color"
)

var _ output.AgentObserverPort = (*AgentObserver)(nil)

type AgentObserver struct {
	w io.Writer
}

// NewAgentObserver writes to w, or to stderr when w is nil. Colours follow
// fatih/color's global switch, so they are off for non-terminals.
func NewAgentObserver(w io.Writer) *AgentObserver {
	if w == nil {
		w = os.Stderr
	}
	return &AgentObserver{w: w}
}

func (o *AgentObserver) ShowIteration(ctx context.Context, iteration, maxIterations int) {
	color.New(color.FgCyan, color.Bold).Fprintf(o.w, "\n━━━ Iteration %d/%d ━━━\n", iteration, maxIterations)
}

func (o *AgentObserver) ShowThinking(ctx context.Context, content string) {
	if content == "" {
		return
	}
	color.New(color.FgBlue).Fprint(o.w, "Thought: ")
	color.New(color.Faint).Fprintln(o.w, truncate(content, 500))
}

func (o *AgentObserver) ShowToolStart(ctx context.Context, toolName, input string) {
	label := toolLabel(toolName)
	color.New(color.FgYellow, color.Bold).Fprintf(o.w, "%s\n", label)

	if summary := summarizeInput(toolName, input); summary != "" {
		color.New(color.Faint).Fprintf(o.w, "   %s\n", summary)
	}
}

func (o *AgentObserver) ShowToolResult(ctx context.Context, toolName, result string, isError bool) {
	if isError {
		color.New(color.FgRed).Fprint(o.w, "✗ ")
		color.New(color.Faint).Fprintln(o.w, truncate(result, 300))
		return
	}
	color.New(color.FgGreen).Fprintf(o.w, "✓ %s\n", truncate(firstLine(result), 150))
}

func (o *AgentObserver) ShowFinalAnswer(ctx context.Context, answer string) {
	color.New(color.FgGreen, color.Bold).Fprintln(o.w, "\nFinal answer:")
	color.New(color.Reset).Fprintln(o.w, answer)
}

func toolLabel(toolName string) string {
	labels := map[entity.ToolName]string{
		entity.ToolCalculator:   "Calculator",
		entity.ToolWebSearch:    "Web search",
		entity.ToolCodeExecutor: "Code executor",
	}
	if label, ok := labels[entity.ToolName(toolName)]; ok {
		return label
	}
	return toolName
}

func summarizeInput(toolName, input string) string {
	switch entity.ToolName(toolName) {
	case entity.ToolCalculator:
		return "Expression: " + truncate(input, 80)
	case entity.ToolWebSearch:
		return "Query: " + truncate(input, 80)
	case entity.ToolCodeExecutor:
		lines := strings.Count(strings.TrimSpace(input), "\n") + 1
		if lines == 1 {
			return "Code: " + truncate(input, 80)
		}
		return "Code: " + strconv.Itoa(lines) + " lines"
	}
	return truncate(input, 80)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
