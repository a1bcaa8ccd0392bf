package entity

import "time"

// ChainInput carries the variables of one chain execution. Values are
// JSON-like: strings, numbers, bools, nil, []any and map[string]any.
type ChainInput struct {
	Variables map[string]any `json:"variables"`
}

func NewChainInput() ChainInput {
	return ChainInput{Variables: make(map[string]any)}
}

// With returns a copy of the input with key bound to value.
func (in ChainInput) With(key string, value any) ChainInput {
	vars := make(map[string]any, len(in.Variables)+1)
	for k, v := range in.Variables {
		vars[k] = v
	}
	vars[key] = value
	return ChainInput{Variables: vars}
}

// GetString returns the value of key only when it is a plain string.
func (in ChainInput) GetString(key string) (string, bool) {
	v, ok := in.Variables[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (in ChainInput) Get(key string) (any, bool) {
	v, ok := in.Variables[key]
	return v, ok
}

type ChainOutput struct {
	Result   any           `json:"result"`
	Metadata ChainMetadata `json:"metadata"`
}

type ChainMetadata struct {
	ChainName     string        `json:"chain_name"`
	ExecutionTime time.Duration `json:"execution_time"`
	Steps         []StepInfo    `json:"steps"`
	TotalTokens   int           `json:"total_tokens"`
	TotalCost     float64       `json:"total_cost"`
}

// StepInfo is an audit record of one step. Input and Output are snapshots
// taken when the step completed.
type StepInfo struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Input    string        `json:"input"`
	Output   string        `json:"output"`
}

type ChainInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ChainType string

const (
	ChainTypeSimple     ChainType = "simple"
	ChainTypeSequential ChainType = "sequential"
	ChainTypeRAG        ChainType = "rag"
)
