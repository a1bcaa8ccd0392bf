package metrics

import (
	"context"
	"time"

	"chainforge/internal/application/port/output"
	"chainforge/internal/domain/entity"
)

var _ output.LLMPort = (*InstrumentedLLM)(nil)

// InstrumentedLLM records latency and token usage of every call that
// reaches the wrapped provider.
type InstrumentedLLM struct {
	next    output.LLMPort
	metrics output.MetricsPort
}

func InstrumentLLM(next output.LLMPort, metrics output.MetricsPort) *InstrumentedLLM {
	return &InstrumentedLLM{next: next, metrics: metrics}
}

func (l *InstrumentedLLM) Generate(ctx context.Context, req *entity.LLMRequest) (*entity.LLMResponse, error) {
	start := time.Now()
	resp, err := l.next.Generate(ctx, req)
	l.metrics.RecordLLMLatency(time.Since(start))
	if err != nil {
		return nil, err
	}
	l.metrics.RecordTokenUsage(resp.TokenUsage.TotalTokens)
	return resp, nil
}

func (l *InstrumentedLLM) CountTokens(text string) int {
	return l.next.CountTokens(text)
}
