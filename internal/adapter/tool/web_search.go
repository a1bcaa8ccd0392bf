package tool

import (
	"context"
	"fmt"
	"strings"

	"chainforge/internal/application/port/output"
	"chainforge/internal/domain/entity"

	"github.com/tmc/langchaingo/tools"
	"github.com/tmc/langchaingo/tools/duckduckgo"
)

var _ output.ToolPort = (*WebSearchTool)(nil)

const defaultSearchResults = 5

// WebSearchTool searches the web through any langchaingo search tool,
// DuckDuckGo by default.
type WebSearchTool struct {
	search tools.Tool
	logger output.LoggerPort
}

func NewWebSearchTool(search tools.Tool, logger output.LoggerPort) *WebSearchTool {
	return &WebSearchTool{search: search, logger: logger}
}

func NewDuckDuckGoSearchTool(maxResults int, logger output.LoggerPort) (*WebSearchTool, error) {
	if maxResults <= 0 {
		maxResults = defaultSearchResults
	}
	ddg, err := duckduckgo.New(maxResults, duckduckgo.DefaultUserAgent)
	if err != nil {
		return nil, fmt.Errorf("create duckduckgo client: %w", err)
	}
	return NewWebSearchTool(ddg, logger), nil
}

func (t *WebSearchTool) Name() entity.ToolName { return entity.ToolWebSearch }
func (t *WebSearchTool) Description() string {
	return "Searches the web for information. Input is a plain search query; returns titles, links and snippets of the top results."
}

func (t *WebSearchTool) Parameters() entity.ToolParameters {
	return entity.ToolParameters{
		Required: []string{"query"},
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search query",
				},
			},
			"required": []string{"query"},
		},
	}
}

func (t *WebSearchTool) Execute(ctx context.Context, input string) (*entity.ToolOutput, error) {
	query := strings.TrimSpace(input)
	if query == "" {
		return entity.ToolFailure("Search query is empty"), nil
	}

	result, err := t.search.Call(ctx, query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		t.logger.Warn("Web search failed", "query", query, "error", err)
		return entity.ToolFailure(fmt.Sprintf("Search failed: %v", err)), nil
	}

	out := entity.ToolSuccess(result)
	out.Metadata["query"] = query
	return out, nil
}
