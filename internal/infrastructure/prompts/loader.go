package prompts

import (
	_ "embed"
)

//go:embed agent.txt
var AgentPrompt string

//go:embed rag.txt
var RAGPrompt string
