package output

import "context"

// AgentObserverPort receives progress notifications from an agent run.
type AgentObserverPort interface {
	ShowIteration(ctx context.Context, iteration, maxIterations int)
	ShowThinking(ctx context.Context, content string)
	ShowToolStart(ctx context.Context, toolName, input string)
	ShowToolResult(ctx context.Context, toolName, result string, isError bool)
	ShowFinalAnswer(ctx context.Context, answer string)
}
