package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chainforge/internal/application/port/output"
	"chainforge/internal/domain/entity"
	"chainforge/internal/usecase/deadline"
)

const queryTemplate = `Use the following context to answer the question.

%s

Question: %s
Answer:`

type QueryResult struct {
	Answer   string                `json:"answer"`
	Contexts []entity.SearchResult `json:"contexts"`
	Sources  []string              `json:"sources"`
	Tokens   entity.TokenUsage     `json:"tokens"`
}

// QueryService answers a question from indexed documents.
type QueryService struct {
	retriever   *Retriever
	llm         output.LLMPort
	logger      output.LoggerPort
	callTimeout time.Duration
}

func NewQueryService(retriever *Retriever, llm output.LLMPort, logger output.LoggerPort, callTimeout time.Duration) *QueryService {
	return &QueryService{
		retriever:   retriever,
		llm:         llm,
		logger:      logger,
		callTimeout: callTimeout,
	}
}

func (s *QueryService) Query(ctx context.Context, query string, topK int) (*QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", entity.ErrInvalidInput)
	}

	results, err := deadline.Call(ctx, s.callTimeout, "retrieve context",
		func(ctx context.Context) ([]entity.SearchResult, error) {
			return s.retriever.Search(ctx, query, topK)
		})
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(results))
	for i, res := range results {
		texts[i] = res.Text
	}

	resp, err := deadline.Call(ctx, s.callTimeout, "llm generate",
		func(ctx context.Context) (*entity.LLMResponse, error) {
			return s.llm.Generate(ctx, &entity.LLMRequest{
				Prompt: fmt.Sprintf(queryTemplate, FormatContext(texts), query),
			})
		})
	if err != nil {
		return nil, entity.ProviderFailure("llm generate", err)
	}

	s.logger.Debug("Answered query", "contexts", len(results), "tokens", resp.TokenUsage.TotalTokens)

	return &QueryResult{
		Answer:   resp.Text,
		Contexts: results,
		Sources:  sources(results),
		Tokens:   resp.TokenUsage,
	}, nil
}

// sources lists the distinct source metadata values in rank order.
func sources(results []entity.SearchResult) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, res := range results {
		src, _ := res.Metadata["source"].(string)
		if src == "" || seen[src] {
			continue
		}
		seen[src] = true
		out = append(out, src)
	}
	return out
}
