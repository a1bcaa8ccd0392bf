package prompts

import (
	"bytes"
	"fmt"
	"text/template"

	"chainforge/internal/application/port/output"
)

type ToolInfo struct {
	Name        string
	Description string
}

type AgentPromptData struct {
	Tools     []ToolInfo
	Input     string
	Iteration int
}

// AgentPromptBuilder renders the reasoning prompt for one agent iteration.
// The template is parsed once and is safe for concurrent use.
type AgentPromptBuilder struct {
	tmpl *template.Template
}

func NewAgentPromptBuilder(baseTemplate string) (*AgentPromptBuilder, error) {
	if baseTemplate == "" {
		baseTemplate = AgentPrompt
	}
	tmpl, err := template.New("agent").Option("missingkey=error").Parse(baseTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse agent prompt: %w", err)
	}
	return &AgentPromptBuilder{tmpl: tmpl}, nil
}

// Build embeds the catalog of tools, in the order given, with the current
// working input and iteration index.
func (b *AgentPromptBuilder) Build(tools []output.ToolPort, input string, iteration int) (string, error) {
	infos := make([]ToolInfo, 0, len(tools))
	for _, tool := range tools {
		infos = append(infos, ToolInfo{
			Name:        tool.Name().String(),
			Description: tool.Description(),
		})
	}

	data := AgentPromptData{
		Tools:     infos,
		Input:     input,
		Iteration: iteration,
	}

	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
