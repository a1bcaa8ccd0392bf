package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"chainforge/internal/domain/entity"

	"github.com/go-chi/chi/v5"
)

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

type statusResponse struct {
	Status          string   `json:"status"`
	Providers       []string `json:"providers"`
	DefaultProvider string   `json:"default_provider"`
	Chains          int      `json:"chains"`
	Tools           int      `json:"tools"`
	RAGEnabled      bool     `json:"rag_enabled"`
	SessionsEnabled bool     `json:"sessions_enabled"`
	Metrics         any      `json:"metrics,omitempty"`
}

func (h *handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:          "running",
		Providers:       h.Providers.List(),
		DefaultProvider: h.Providers.DefaultName(),
		Chains:          len(h.Chains.List()),
		Tools:           len(h.Tools.List()),
		RAGEnabled:      h.Retriever != nil,
		SessionsEnabled: h.Sessions != nil,
	}
	if h.Metrics != nil {
		resp.Metrics = h.Metrics.Stats()
	}
	writeJSON(w, http.StatusOK, resp)
}

type generateRequest struct {
	Prompt        string   `json:"prompt"`
	Provider      string   `json:"provider"`
	Model         string   `json:"model"`
	Temperature   *float64 `json:"temperature"`
	MaxTokens     *int     `json:"max_tokens"`
	TopP          *float64 `json:"top_p"`
	Stop          []string `json:"stop"`
	SystemMessage string   `json:"system_message"`
}

type generateResponse struct {
	Text          string            `json:"text"`
	Model         string            `json:"model"`
	Provider      string            `json:"provider"`
	TokenUsage    entity.TokenUsage `json:"token_usage"`
	FinishReason  string            `json:"finish_reason"`
	LatencyMillis int64             `json:"latency_ms"`
	EstimatedCost float64           `json:"estimated_cost"`
}

func (h *handlers) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeMappedError(w, err)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeMappedError(w, invalidRequestError("prompt is required"))
		return
	}

	llm, err := h.Providers.Get(req.Provider)
	if err != nil {
		writeMappedError(w, err)
		return
	}

	resp, err := llm.Generate(r.Context(), &entity.LLMRequest{
		Prompt:        req.Prompt,
		Model:         req.Model,
		Temperature:   req.Temperature,
		MaxTokens:     req.MaxTokens,
		TopP:          req.TopP,
		StopSequences: req.Stop,
		SystemMessage: req.SystemMessage,
	})
	if err != nil {
		writeMappedError(w, entity.ProviderFailure("llm generate", err))
		return
	}

	provider := req.Provider
	if provider == "" {
		provider = h.Providers.DefaultName()
	}
	writeJSON(w, http.StatusOK, generateResponse{
		Text:          resp.Text,
		Model:         resp.Model,
		Provider:      provider,
		TokenUsage:    resp.TokenUsage,
		FinishReason:  resp.FinishReason,
		LatencyMillis: resp.Latency.Milliseconds(),
		EstimatedCost: resp.TokenUsage.EstimateCost(resp.Model),
	})
}

func (h *handlers) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"providers": h.Providers.List(),
		"default":   h.Providers.DefaultName(),
	})
}

func (h *handlers) handleListChains(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"chains": h.Chains.List()})
}

type executeChainRequest struct {
	Variables map[string]any `json:"variables"`
}

func (h *handlers) handleExecuteChain(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	chain, ok := h.Chains.Get(id)
	if !ok {
		writeMappedError(w, chainNotFound(id))
		return
	}

	var req executeChainRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeMappedError(w, err)
		return
	}
	in := entity.NewChainInput()
	for k, v := range req.Variables {
		in.Variables[k] = v
	}

	out, err := chain.Execute(r.Context(), in)
	if h.Metrics != nil {
		h.Metrics.RecordChainExecution()
	}
	if err != nil {
		h.Logger.Warn("Chain execution failed", "chain", id, "error", err)
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) handleRemoveChain(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.Chains.Remove(id); !ok {
		writeMappedError(w, chainNotFound(id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) handleListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": h.Tools.Definitions()})
}

type executeAgentRequest struct {
	Task          string   `json:"task"`
	Tools         []string `json:"tools"`
	MaxIterations int      `json:"max_iterations"`
}

type agentFailureResponse struct {
	Error      apiError           `json:"error"`
	Steps      []entity.AgentStep `json:"steps"`
	Iterations int                `json:"iterations"`
}

func (h *handlers) handleExecuteAgent(w http.ResponseWriter, r *http.Request) {
	var req executeAgentRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeMappedError(w, err)
		return
	}
	if strings.TrimSpace(req.Task) == "" {
		writeMappedError(w, invalidRequestError("task is required"))
		return
	}

	agent := h.Agent.WithMaxIterations(req.MaxIterations)
	if len(req.Tools) > 0 {
		sub, err := h.Tools.Subset(req.Tools)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		agent = agent.WithTools(sub)
	}

	result, err := agent.Execute(r.Context(), req.Task)
	if err != nil {
		h.recordAgentRun(entity.AgentRunFailed)
		var agentErr *entity.AgentError
		if errors.As(err, &agentErr) {
			status, code := mapError(err)
			writeJSON(w, status, agentFailureResponse{
				Error:      apiError{Code: code, Message: err.Error()},
				Steps:      agentErr.Steps,
				Iterations: agentErr.Iterations,
			})
			return
		}
		writeMappedError(w, err)
		return
	}

	h.recordAgentRun(entity.AgentRunCompleted)
	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) recordAgentRun(status entity.AgentRunStatus) {
	if h.Metrics != nil {
		h.Metrics.RecordAgentRun(string(status))
	}
}

type indexRequest struct {
	Content  string         `json:"content"`
	Source   string         `json:"source"`
	URL      string         `json:"url"`
	Metadata map[string]any `json:"metadata"`
}

func (h *handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	if h.Retriever == nil || h.Loader == nil {
		writeMappedError(w, unavailable("rag"))
		return
	}

	var req indexRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeMappedError(w, err)
		return
	}

	var doc *entity.Document
	switch {
	case req.URL != "" && req.Content != "":
		writeMappedError(w, invalidRequestError("content and url are mutually exclusive"))
		return
	case req.URL != "":
		var err error
		doc, err = h.Loader.FromURL(r.Context(), req.URL)
		if err != nil {
			writeMappedError(w, entity.ProviderFailure("load url", err))
			return
		}
	case req.Content != "":
		source := req.Source
		if source == "" {
			source = "api"
		}
		doc = h.Loader.FromString(req.Content, source)
	default:
		writeMappedError(w, invalidRequestError("content or url is required"))
		return
	}
	for k, v := range req.Metadata {
		doc.Metadata[k] = v
	}

	n, err := h.Retriever.Index(r.Context(), doc)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"document_id": doc.ID,
		"source":      doc.Source,
		"chunks":      n,
	})
}

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func (h *handlers) handleQuery(w http.ResponseWriter, r *http.Request) {
	if h.Query == nil {
		writeMappedError(w, unavailable("rag"))
		return
	}

	var req queryRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeMappedError(w, err)
		return
	}

	res, err := h.Query.Query(r.Context(), req.Query, req.TopK)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if h.Sessions == nil {
		writeMappedError(w, unavailable("session memory"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeMappedError(w, invalidRequestError("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	id := chi.URLParam(r, "id")
	messages, err := h.Sessions.Messages(r.Context(), id, limit)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"messages":   messages,
	})
}

type addMessageRequest struct {
	Role    entity.MessageRole `json:"role"`
	Content string             `json:"content"`
}

func (h *handlers) handleAddMessage(w http.ResponseWriter, r *http.Request) {
	if h.Sessions == nil {
		writeMappedError(w, unavailable("session memory"))
		return
	}

	var req addMessageRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeMappedError(w, err)
		return
	}
	if req.Role == "" {
		req.Role = entity.RoleUser
	}

	id := chi.URLParam(r, "id")
	msg := entity.Message{Role: req.Role, Content: req.Content, Timestamp: time.Now()}
	if err := h.Sessions.AddMessage(r.Context(), id, msg); err != nil {
		writeMappedError(w, err)
		return
	}

	sessionContext, err := h.Sessions.Context(r.Context(), id)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": id,
		"context":    sessionContext,
	})
}

func (h *handlers) handleClearSession(w http.ResponseWriter, r *http.Request) {
	if h.Sessions == nil {
		writeMappedError(w, unavailable("session memory"))
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.Sessions.Clear(r.Context(), id); err != nil {
		writeMappedError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func chainNotFound(id string) error {
	return fmt.Errorf("%w: %q", entity.ErrChainNotFound, id)
}

func unavailable(feature string) error {
	return fmt.Errorf("%w: %s", errUnavailable, feature)
}
