package chain

import (
	"time"

	"chainforge/internal/domain/entity"
)

// aggregator accumulates execution metadata for one chain run. Nested runs
// are folded in with absorb, so a composite chain's totals are always the
// sum over its children and its steps keep execution order.
type aggregator struct {
	name   string
	start  time.Time
	steps  []entity.StepInfo
	tokens int
	cost   float64
}

func newAggregator(name string) *aggregator {
	return &aggregator{
		name:  name,
		start: time.Now(),
		steps: make([]entity.StepInfo, 0),
	}
}

func (a *aggregator) addStep(step entity.StepInfo) {
	a.steps = append(a.steps, step)
}

func (a *aggregator) addUsage(resp *entity.LLMResponse) {
	a.tokens += resp.TokenUsage.TotalTokens
	a.cost += resp.TokenUsage.EstimateCost(resp.Model)
}

func (a *aggregator) absorb(child entity.ChainMetadata) {
	a.steps = append(a.steps, child.Steps...)
	a.tokens += child.TotalTokens
	a.cost += child.TotalCost
}

func (a *aggregator) finish() entity.ChainMetadata {
	steps := make([]entity.StepInfo, len(a.steps))
	copy(steps, a.steps)
	return entity.ChainMetadata{
		ChainName:     a.name,
		ExecutionTime: time.Since(a.start),
		Steps:         steps,
		TotalTokens:   a.tokens,
		TotalCost:     a.cost,
	}
}
