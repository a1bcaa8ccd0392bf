package tool

import (
	"context"
	"errors"
	"testing"

	"chainforge/internal/application/service"
	"chainforge/internal/domain/entity"
	"chainforge/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChain struct {
	result any
	err    error
	got    entity.ChainInput
}

func (c *fakeChain) Name() string        { return "fake_chain" }
func (c *fakeChain) Description() string { return "Answers questions." }

func (c *fakeChain) Execute(ctx context.Context, in entity.ChainInput) (*entity.ChainOutput, error) {
	c.got = in
	if c.err != nil {
		return nil, c.err
	}
	return &entity.ChainOutput{Result: c.result}, nil
}

func TestChainTool_Execute(t *testing.T) {
	chain := &fakeChain{result: map[string]any{"output": "Paris", "model": "m"}}
	tool := NewChainTool("qa", chain, "question", "", logger.NewNop())

	assert.Equal(t, entity.ToolName("chain_qa"), tool.Name())
	assert.Equal(t, "Answers questions. Input is the question for the chain.", tool.Description())
	assert.Equal(t, []string{"question"}, tool.Parameters().Required)

	out, err := tool.Execute(context.Background(), "  capital of France?  ")
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "Paris", out.Result)

	v, ok := chain.got.GetString("question")
	require.True(t, ok)
	assert.Equal(t, "capital of France?", v)
}

func TestChainTool_ChainErrorIsToolFailure(t *testing.T) {
	tool := NewChainTool("qa", &fakeChain{err: errors.New("provider down")}, "question", "", logger.NewNop())

	out, err := tool.Execute(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Contains(t, out.Result, "provider down")
}

func TestChainTool_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tool := NewChainTool("qa", &fakeChain{err: context.Canceled}, "question", "", logger.NewNop())

	_, err := tool.Execute(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResultText(t *testing.T) {
	assert.Equal(t, "plain", resultText("plain"))
	assert.Equal(t, "", resultText(nil))
	assert.Equal(t, `{"answer":42}`, resultText(map[string]any{"answer": 42}))
	assert.Equal(t, "[1,2]", resultText([]int{1, 2}))
}

func TestChainTool_SchemaIsValid(t *testing.T) {
	reg := service.NewToolRegistry(NewChainTool("qa", &fakeChain{}, "question", "Q&A", logger.NewNop()))
	assert.Empty(t, service.CheckToolSchemas(reg))
}
