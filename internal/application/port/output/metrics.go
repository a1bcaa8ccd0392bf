package output

import "time"

type MetricsPort interface {
	RecordRequest()
	RecordChainExecution()
	RecordLLMLatency(d time.Duration)
	RecordTokenUsage(tokens int)
	RecordAgentRun(status string)
}
