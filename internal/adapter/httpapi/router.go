// Package httpapi exposes chains, agents, RAG and session memory over HTTP.
package httpapi

import (
	"net/http"

	"chainforge/internal/application/port/output"
	"chainforge/internal/application/service"
	"chainforge/internal/infrastructure/metrics"
	infrarag "chainforge/internal/infrastructure/rag"
	"chainforge/internal/usecase/executor"
	"chainforge/internal/usecase/rag"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
)

// Deps are the services behind the API. Retriever, Query, Loader and
// Sessions may be nil, in which case their routes answer 503.
type Deps struct {
	Providers *service.ProviderRegistryImpl
	Chains    output.ChainRegistry
	Tools     *service.ToolRegistryImpl
	Agent     *executor.UseCase
	Retriever *rag.Retriever
	Query     *rag.QueryService
	Loader    *infrarag.Loader
	Sessions  output.SessionStore
	Metrics   *metrics.Collector
	Logger    output.LoggerPort

	// AccessLog enables JSON request logging on stdout.
	AccessLog bool
}

type handlers struct {
	Deps
}

func NewRouter(deps Deps) http.Handler {
	h := &handlers{Deps: deps}

	r := chi.NewRouter()
	if deps.AccessLog {
		r.Use(httplog.RequestLogger(httplog.NewLogger("chainforge", httplog.Options{
			JSON:    true,
			Concise: true,
		})))
	} else {
		r.Use(middleware.RequestID, middleware.Recoverer)
	}
	if deps.Metrics != nil {
		r.Use(h.countRequests)
	}

	r.Get("/health", h.handleHealth)
	r.Get("/status", h.handleStatus)

	r.Route("/llm", func(r chi.Router) {
		r.Post("/generate", h.handleGenerate)
		r.Get("/providers", h.handleProviders)
	})

	r.Route("/chains", func(r chi.Router) {
		r.Get("/", h.handleListChains)
		r.Post("/{id}/execute", h.handleExecuteChain)
		r.Delete("/{id}", h.handleRemoveChain)
	})

	r.Get("/tools", h.handleListTools)
	r.Post("/agent/execute", h.handleExecuteAgent)

	r.Route("/rag", func(r chi.Router) {
		r.Post("/index", h.handleIndex)
		r.Post("/query", h.handleQuery)
	})

	r.Route("/memory/session/{id}", func(r chi.Router) {
		r.Get("/", h.handleGetSession)
		r.Post("/", h.handleAddMessage)
		r.Post("/clear", h.handleClearSession)
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	return r
}

func (h *handlers) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/metrics" {
			h.Metrics.RecordRequest()
		}
		next.ServeHTTP(w, r)
	})
}
