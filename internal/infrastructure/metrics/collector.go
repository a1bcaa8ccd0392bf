package metrics

import (
	"net/http"
	"time"

	"chainforge/internal/application/port/output"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

var _ output.MetricsPort = (*Collector)(nil)

// Collector owns its registry so that several collectors (one per test, for
// instance) never clash on the global default registry.
type Collector struct {
	registry        *prometheus.Registry
	totalRequests   prometheus.Counter
	chainExecutions prometheus.Counter
	tokensUsed      prometheus.Counter
	llmLatency      prometheus.Histogram
	agentRuns       *prometheus.CounterVec
	startedAt       time.Time
}

type Stats struct {
	TotalRequests        uint64  `json:"total_requests"`
	TotalChainExecutions uint64  `json:"total_chain_executions"`
	TotalTokensUsed      uint64  `json:"total_tokens_used"`
	LLMCalls             uint64  `json:"llm_calls"`
	AgentRunsCompleted   uint64  `json:"agent_runs_completed"`
	AgentRunsFailed      uint64  `json:"agent_runs_failed"`
	UptimeSeconds        float64 `json:"uptime_seconds"`
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		totalRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chainforge_total_requests",
			Help: "Total number of requests",
		}),
		chainExecutions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chainforge_chain_executions",
			Help: "Total chain executions",
		}),
		tokensUsed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chainforge_tokens_used",
			Help: "Total tokens used",
		}),
		llmLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chainforge_llm_latency_ms",
			Help:    "LLM request latency in milliseconds",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		}),
		agentRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chainforge_agent_runs",
			Help: "Agent runs by outcome",
		}, []string{"status"}),
		startedAt: time.Now(),
	}

	c.registry.MustRegister(
		c.totalRequests,
		c.chainExecutions,
		c.tokensUsed,
		c.llmLatency,
		c.agentRuns,
	)
	return c
}

func (c *Collector) RecordRequest() {
	c.totalRequests.Inc()
}

func (c *Collector) RecordChainExecution() {
	c.chainExecutions.Inc()
}

func (c *Collector) RecordLLMLatency(d time.Duration) {
	c.llmLatency.Observe(float64(d.Milliseconds()))
}

func (c *Collector) RecordTokenUsage(tokens int) {
	if tokens > 0 {
		c.tokensUsed.Add(float64(tokens))
	}
}

func (c *Collector) RecordAgentRun(status string) {
	c.agentRuns.WithLabelValues(status).Inc()
}

// Handler serves the Prometheus text exposition of this collector.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Stats() Stats {
	return Stats{
		TotalRequests:        counterValue(c.totalRequests),
		TotalChainExecutions: counterValue(c.chainExecutions),
		TotalTokensUsed:      counterValue(c.tokensUsed),
		LLMCalls:             histogramCount(c.llmLatency),
		AgentRunsCompleted:   counterValue(c.agentRuns.WithLabelValues("completed")),
		AgentRunsFailed:      counterValue(c.agentRuns.WithLabelValues("failed")),
		UptimeSeconds:        time.Since(c.startedAt).Seconds(),
	}
}

func counterValue(c prometheus.Counter) uint64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil || m.Counter == nil {
		return 0
	}
	return uint64(m.Counter.GetValue())
}

func histogramCount(h prometheus.Histogram) uint64 {
	var m dto.Metric
	if err := h.Write(&m); err != nil || m.Histogram == nil {
		return 0
	}
	return m.Histogram.GetSampleCount()
}
