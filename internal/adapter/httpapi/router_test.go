package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"chainforge/internal/adapter/httpapi"
	"chainforge/internal/application/service"
	"chainforge/internal/domain/entity"
	"chainforge/internal/infrastructure/logger"
	"chainforge/internal/infrastructure/metrics"
	"chainforge/internal/infrastructure/prompts"
	infrarag "chainforge/internal/infrastructure/rag"
	"chainforge/internal/infrastructure/session/sqlite"
	"chainforge/internal/infrastructure/vectorstore/memory"
	"chainforge/internal/usecase/chain"
	"chainforge/internal/usecase/executor"
	"chainforge/internal/usecase/rag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queueLLM pops replies in order and echoes the prompt once the queue is empty.
type queueLLM struct {
	mu      sync.Mutex
	replies []string
	err     error
}

func (q *queueLLM) Generate(ctx context.Context, req *entity.LLMRequest) (*entity.LLMResponse, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	text := "echo: " + req.Prompt
	if len(q.replies) > 0 {
		text, q.replies = q.replies[0], q.replies[1:]
	}
	return &entity.LLMResponse{
		Text:         text,
		Model:        "gpt-3.5-turbo",
		TokenUsage:   entity.TokenUsage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5},
		FinishReason: "stop",
	}, nil
}

func (q *queueLLM) CountTokens(text string) int { return len(text) }

type upperTool struct{}

func (upperTool) Name() entity.ToolName { return "upper" }
func (upperTool) Description() string   { return "Uppercases its input" }
func (upperTool) Parameters() entity.ToolParameters {
	return entity.ToolParameters{Required: []string{"text"}}
}
func (upperTool) Execute(ctx context.Context, input string) (*entity.ToolOutput, error) {
	return entity.ToolSuccess(strings.ToUpper(input)), nil
}

type wordEmbedder struct{}

func (wordEmbedder) vector(text string) []float32 {
	text = strings.ToLower(text)
	v := make([]float32, 3)
	for i, kw := range []string{"go", "rust", "tea"} {
		v[i] = float32(strings.Count(text, kw))
	}
	return v
}

func (e wordEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e wordEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

type fixture struct {
	server    *httptest.Server
	llm       *queueLLM
	collector *metrics.Collector
}

func newFixture(t *testing.T, withOptional bool) *fixture {
	t.Helper()
	log := logger.NewNop()
	llm := &queueLLM{}
	collector := metrics.NewCollector()

	providers := service.NewProviderRegistry("fake")
	providers.Register("fake", llm)

	chains := service.NewChainRegistry(log)
	chains.Register("qa", chain.NewSimple("qa_chain", "Answers questions", llm, "Q: {question}"))

	tools := service.NewToolRegistry(upperTool{})
	builder, err := prompts.NewAgentPromptBuilder("")
	require.NoError(t, err)
	agent := executor.New(llm, tools, log, builder, executor.DefaultConfig())

	deps := httpapi.Deps{
		Providers: providers,
		Chains:    chains,
		Tools:     tools,
		Agent:     agent,
		Metrics:   collector,
		Logger:    log,
	}

	if withOptional {
		chunker, err := infrarag.NewChunker(200, 0)
		require.NoError(t, err)
		retriever := rag.NewRetriever(memory.New(wordEmbedder{}), chunker, log, rag.RetrieverConfig{TopK: 3, Threshold: 0.5})
		deps.Retriever = retriever
		deps.Query = rag.NewQueryService(retriever, llm, log, 0)
		deps.Loader = infrarag.NewLoader(nil)

		store, err := sqlite.Open(filepath.Join(t.TempDir(), "sessions.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		deps.Sessions = store
	}

	srv := httptest.NewServer(httpapi.NewRouter(deps))
	t.Cleanup(srv.Close)
	return &fixture{server: srv, llm: llm, collector: collector}
}

func (f *fixture) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Steps []entity.AgentStep `json:"steps"`
}

func TestHealthAndStatus(t *testing.T) {
	f := newFixture(t, false)

	var health map[string]any
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", nil, &health))
	assert.Equal(t, "healthy", health["status"])

	var status struct {
		Providers       []string `json:"providers"`
		DefaultProvider string   `json:"default_provider"`
		Chains          int      `json:"chains"`
		Tools           int      `json:"tools"`
		RAGEnabled      bool     `json:"rag_enabled"`
	}
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/status", nil, &status))
	assert.Equal(t, []string{"fake"}, status.Providers)
	assert.Equal(t, "fake", status.DefaultProvider)
	assert.Equal(t, 1, status.Chains)
	assert.Equal(t, 1, status.Tools)
	assert.False(t, status.RAGEnabled)

	assert.Equal(t, uint64(2), f.collector.Stats().TotalRequests)
}

func TestGenerate(t *testing.T) {
	f := newFixture(t, false)

	var resp struct {
		Text       string            `json:"text"`
		Provider   string            `json:"provider"`
		TokenUsage entity.TokenUsage `json:"token_usage"`
	}
	status := f.do(t, http.MethodPost, "/llm/generate", map[string]any{"prompt": "hi"}, &resp)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "echo: hi", resp.Text)
	assert.Equal(t, "fake", resp.Provider)
	assert.Equal(t, 5, resp.TokenUsage.TotalTokens)

	var errResp errorBody
	status = f.do(t, http.MethodPost, "/llm/generate", map[string]any{"prompt": "hi", "provider": "nope"}, &errResp)
	assert.Equal(t, http.StatusNotFound, status)

	status = f.do(t, http.MethodPost, "/llm/generate", map[string]any{"prompt": ""}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)

	status = f.do(t, http.MethodPost, "/llm/generate", map[string]any{"prompt": "x", "bogus": 1}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)

	f.llm.err = errors.New("upstream down")
	status = f.do(t, http.MethodPost, "/llm/generate", map[string]any{"prompt": "x"}, &errResp)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, errResp.Error.Message, "upstream down")
}

func TestChains(t *testing.T) {
	f := newFixture(t, false)

	var list struct {
		Chains []entity.ChainInfo `json:"chains"`
	}
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/chains", nil, &list))
	require.Len(t, list.Chains, 1)
	assert.Equal(t, "qa", list.Chains[0].ID)

	var out entity.ChainOutput
	status := f.do(t, http.MethodPost, "/chains/qa/execute", map[string]any{
		"variables": map[string]any{"question": "why?"},
	}, &out)
	assert.Equal(t, http.StatusOK, status)
	result, ok := out.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "echo: Q: why?", result["output"])
	assert.Equal(t, "qa_chain", out.Metadata.ChainName)
	assert.Equal(t, 5, out.Metadata.TotalTokens)

	// unbound placeholders are left in the prompt
	status = f.do(t, http.MethodPost, "/chains/qa/execute", map[string]any{"variables": map[string]any{}}, &out)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "echo: Q: {question}", out.Result.(map[string]any)["output"])

	var errResp errorBody
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/chains/qa/execute", "not an object", &errResp))

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/chains/missing/execute", map[string]any{}, &errResp))

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/chains/qa", nil, nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/chains/qa", nil, &errResp))

	assert.Equal(t, uint64(2), f.collector.Stats().TotalChainExecutions)
}

func TestTools(t *testing.T) {
	f := newFixture(t, false)

	var resp struct {
		Tools []entity.ToolDefinition `json:"tools"`
	}
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/tools", nil, &resp))
	require.Len(t, resp.Tools, 1)
	assert.Equal(t, "upper", resp.Tools[0].Name)
}

func TestAgentExecute(t *testing.T) {
	f := newFixture(t, false)
	f.llm.replies = []string{
		"Thought: shout it\nAction: upper\nAction Input: hello",
		"Thought: done\nAction: final_answer\nAction Input: HELLO",
	}

	var result entity.AgentResult
	status := f.do(t, http.MethodPost, "/agent/execute", map[string]any{"task": "shout hello"}, &result)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "HELLO", result.FinalAnswer)
	assert.Equal(t, 2, result.TotalIterations)
	require.Len(t, result.Steps, 2)
	assert.Equal(t, "HELLO", result.Steps[0].Observation)

	assert.Equal(t, uint64(1), f.collector.Stats().AgentRunsCompleted)
}

func TestAgentExecute_Failures(t *testing.T) {
	f := newFixture(t, false)

	var errResp errorBody
	status := f.do(t, http.MethodPost, "/agent/execute", map[string]any{"task": "x", "tools": []string{"missing"}}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)

	f.llm.replies = []string{"Action: browser\nAction Input: x"}
	status = f.do(t, http.MethodPost, "/agent/execute", map[string]any{"task": "x"}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, errResp.Error.Message, "unknown tool")

	f.llm.replies = []string{
		"Action: upper\nAction Input: a",
		"Action: upper\nAction Input: b",
	}
	status = f.do(t, http.MethodPost, "/agent/execute", map[string]any{"task": "x", "max_iterations": 2, "tools": []string{"upper"}}, &errResp)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Len(t, errResp.Steps, 2)

	assert.Equal(t, uint64(2), f.collector.Stats().AgentRunsFailed)
}

func TestRAGAndSessionsUnavailable(t *testing.T) {
	f := newFixture(t, false)

	var errResp errorBody
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodPost, "/rag/index", map[string]any{"content": "x"}, &errResp))
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodPost, "/rag/query", map[string]any{"query": "x"}, &errResp))
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodGet, "/memory/session/a", nil, &errResp))
}

func TestRAGIndexAndQuery(t *testing.T) {
	f := newFixture(t, true)

	var indexed struct {
		DocumentID string `json:"document_id"`
		Chunks     int    `json:"chunks"`
	}
	status := f.do(t, http.MethodPost, "/rag/index", map[string]any{
		"content": "go is a language with goroutines",
		"source":  "go.md",
	}, &indexed)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, 1, indexed.Chunks)
	assert.NotEmpty(t, indexed.DocumentID)

	f.do(t, http.MethodPost, "/rag/index", map[string]any{"content": "green tea is brewed", "source": "tea.md"}, &indexed)

	var res rag.QueryResult
	status = f.do(t, http.MethodPost, "/rag/query", map[string]any{"query": "go"}, &res)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, res.Contexts, 1)
	assert.Equal(t, []string{"go.md"}, res.Sources)
	assert.Contains(t, res.Answer, "[Context 1]\ngo is a language with goroutines\n")

	var errResp errorBody
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/rag/index", map[string]any{}, &errResp))
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/rag/query", map[string]any{"query": " "}, &errResp))
}

func TestSessions(t *testing.T) {
	f := newFixture(t, true)

	var added struct {
		Context string `json:"context"`
	}
	assert.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/memory/session/s1", map[string]any{"content": "hello"}, &added))
	assert.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/memory/session/s1", map[string]any{"role": "assistant", "content": "hi there"}, &added))
	assert.Equal(t, "user: hello\nassistant: hi there", added.Context)

	var got struct {
		Messages []entity.Message `json:"messages"`
	}
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/memory/session/s1?limit=1", nil, &got))
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hi there", got.Messages[0].Content)

	var errResp errorBody
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/memory/session/s1", map[string]any{"role": "robot", "content": "x"}, &errResp))
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/memory/session/s1?limit=-2", nil, &errResp))

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/memory/session/s1/clear", nil, nil))
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/memory/session/s1", nil, &got))
	assert.Empty(t, got.Messages)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, false)
	f.do(t, http.MethodGet, "/health", nil, &map[string]any{})

	resp, err := f.server.Client().Get(f.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "chainforge_total_requests 1")
}
