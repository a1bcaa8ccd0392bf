package entity

import "time"

// ActionFinalAnswer is the action type that terminates an agent run.
const ActionFinalAnswer = "final_answer"

// AgentAction is the decision parsed from one LLM reply.
type AgentAction struct {
	Thought     string `json:"thought"`
	ActionType  string `json:"action_type"`
	ActionInput string `json:"action_input"`
}

func (a AgentAction) IsFinal() bool {
	return a.ActionType == ActionFinalAnswer
}

// AgentStep is an append-only record of one iteration.
//
// On the final step Observation repeats ActionInput; IsFinal marks that step
// explicitly so callers don't have to compare strings. ToolSuccess is the
// success flag reported by the tool and is always false on the final step.
type AgentStep struct {
	Iteration   int           `json:"iteration"`
	Thought     string        `json:"thought"`
	Action      string        `json:"action"`
	ActionInput string        `json:"action_input"`
	Observation string        `json:"observation"`
	Duration    time.Duration `json:"duration"`
	IsFinal     bool          `json:"is_final"`
	ToolSuccess bool          `json:"tool_success"`
}

type AgentResult struct {
	FinalAnswer     string      `json:"final_answer"`
	Steps           []AgentStep `json:"steps"`
	TotalIterations int         `json:"total_iterations"`
}

type AgentRunStatus string

const (
	AgentRunCompleted AgentRunStatus = "completed"
	AgentRunFailed    AgentRunStatus = "failed"
)
