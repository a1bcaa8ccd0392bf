package entity

type ToolName string

const (
	ToolCalculator   ToolName = "calculator"
	ToolWebSearch    ToolName = "web_search"
	ToolCodeExecutor ToolName = "code_executor"
)

func (t ToolName) String() string {
	return string(t)
}

// ToolParameters documents what a tool expects. Schema is advisory: tool
// input is never checked against it before dispatch.
type ToolParameters struct {
	Required []string       `json:"required"`
	Optional []string       `json:"optional"`
	Schema   map[string]any `json:"schema"`
}

type ToolOutput struct {
	Result   string         `json:"result"`
	Success  bool           `json:"success"`
	Metadata map[string]any `json:"metadata"`
}

func ToolSuccess(result string) *ToolOutput {
	return &ToolOutput{Result: result, Success: true, Metadata: map[string]any{}}
}

func ToolFailure(result string) *ToolOutput {
	return &ToolOutput{Result: result, Success: false, Metadata: map[string]any{}}
}

type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  ToolParameters `json:"parameters"`
}
