package console

import (
	"bytes"
	"context"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestAgentObserver_Output(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	o := NewAgentObserver(&buf)
	ctx := context.Background()

	o.ShowIteration(ctx, 1, 10)
	o.ShowThinking(ctx, "need to add")
	o.ShowThinking(ctx, "")
	o.ShowToolStart(ctx, "calculator", "2+2")
	o.ShowToolResult(ctx, "calculator", "4", false)
	o.ShowToolStart(ctx, "code_executor", "x = 1\nprint(x)")
	o.ShowToolResult(ctx, "code_executor", "Execution error: boom", true)
	o.ShowFinalAnswer(ctx, "4")

	out := buf.String()
	assert.Contains(t, out, "Iteration 1/10")
	assert.Contains(t, out, "Thought: need to add\n")
	assert.Contains(t, out, "Calculator\n   Expression: 2+2\n")
	assert.Contains(t, out, "✓ 4\n")
	assert.Contains(t, out, "Code: 2 lines")
	assert.Contains(t, out, "✗ Execution error: boom\n")
	assert.Contains(t, out, "Final answer:\n4\n")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("Thought:")))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab...", truncate("abc", 2))
	assert.Equal(t, "web_other", toolLabel("web_other"))
}
