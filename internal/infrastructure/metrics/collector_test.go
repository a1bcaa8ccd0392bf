package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"chainforge/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Stats(t *testing.T) {
	c := NewCollector()

	c.RecordRequest()
	c.RecordRequest()
	c.RecordChainExecution()
	c.RecordTokenUsage(120)
	c.RecordTokenUsage(-5)
	c.RecordLLMLatency(300 * time.Millisecond)
	c.RecordAgentRun(string(entity.AgentRunCompleted))
	c.RecordAgentRun(string(entity.AgentRunFailed))
	c.RecordAgentRun(string(entity.AgentRunFailed))

	s := c.Stats()
	assert.Equal(t, uint64(2), s.TotalRequests)
	assert.Equal(t, uint64(1), s.TotalChainExecutions)
	assert.Equal(t, uint64(120), s.TotalTokensUsed)
	assert.Equal(t, uint64(1), s.LLMCalls)
	assert.Equal(t, uint64(1), s.AgentRunsCompleted)
	assert.Equal(t, uint64(2), s.AgentRunsFailed)
	assert.GreaterOrEqual(t, s.UptimeSeconds, 0.0)
}

func TestCollector_IndependentRegistries(t *testing.T) {
	a := NewCollector()
	b := NewCollector()
	a.RecordRequest()

	assert.Equal(t, uint64(1), a.Stats().TotalRequests)
	assert.Equal(t, uint64(0), b.Stats().TotalRequests)
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.RecordChainExecution()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "chainforge_chain_executions 1")
	assert.Contains(t, string(body), "chainforge_llm_latency_ms_bucket")
}

type stubLLM struct {
	resp *entity.LLMResponse
	err  error
}

func (s *stubLLM) Generate(ctx context.Context, req *entity.LLMRequest) (*entity.LLMResponse, error) {
	return s.resp, s.err
}

func (s *stubLLM) CountTokens(text string) int { return 7 }

func TestInstrumentedLLM(t *testing.T) {
	c := NewCollector()
	llm := InstrumentLLM(&stubLLM{resp: &entity.LLMResponse{
		Text:       "ok",
		TokenUsage: entity.TokenUsage{TotalTokens: 42},
	}}, c)

	resp, err := llm.Generate(context.Background(), entity.NewLLMRequest("hi"))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, 7, llm.CountTokens("anything"))

	failing := InstrumentLLM(&stubLLM{err: errors.New("down")}, c)
	_, err = failing.Generate(context.Background(), entity.NewLLMRequest("hi"))
	assert.Error(t, err)

	s := c.Stats()
	assert.Equal(t, uint64(42), s.TotalTokensUsed)
	assert.Equal(t, uint64(2), s.LLMCalls)
}
