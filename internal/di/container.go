package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"chainforge/internal/adapter/httpapi"
	"chainforge/internal/adapter/tool"
	"chainforge/internal/application/port/output"
	"chainforge/internal/application/service"
	"chainforge/internal/domain/entity"
	"chainforge/internal/infrastructure/config"
	"chainforge/internal/infrastructure/embeddings"
	"chainforge/internal/infrastructure/env"
	"chainforge/internal/infrastructure/llm/langchain"
	"chainforge/internal/infrastructure/llm/openaicompat"
	"chainforge/internal/infrastructure/logger"
	"chainforge/internal/infrastructure/metrics"
	"chainforge/internal/infrastructure/prompts"
	infrarag "chainforge/internal/infrastructure/rag"
	"chainforge/internal/infrastructure/session/sqlite"
	"chainforge/internal/infrastructure/vectorstore/memory"
	lcstore "chainforge/internal/infrastructure/vectorstore/langchain"
	"chainforge/internal/usecase/chain"
	"chainforge/internal/usecase/executor"
	"chainforge/internal/usecase/rag"
)

type Container struct {
	Config    *config.AppConfig
	Env       *env.EnvService
	Logger    *logger.LoggerAdapter
	Providers *service.ProviderRegistryImpl
	Chains    *service.ChainRegistryImpl
	Tools     *service.ToolRegistryImpl
	Agent     *executor.UseCase
	Retriever *rag.Retriever
	Query     *rag.QueryService
	Loader    *infrarag.Loader
	Sessions  *sqlite.Store
	Metrics   *metrics.Collector
}

type Options struct {
	ConfigPath string
	// LogLevel overrides monitoring.log_level when set.
	LogLevel string
}

func NewContainer(ctx context.Context, opts Options) (*Container, error) {
	envSvc := env.NewEnvService()

	cfg, err := config.Load(opts.ConfigPath, envSvc)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.Monitoring.LogLevel
	logCfg.Format = cfg.Monitoring.LogFormat
	logCfg.Dir = cfg.Monitoring.LogDir
	if opts.LogLevel != "" {
		logCfg.Level = opts.LogLevel
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	c := &Container{
		Config: cfg,
		Env:    envSvc,
		Logger: log,
		Chains: service.NewChainRegistry(log),
		Loader: infrarag.NewLoader(&http.Client{Timeout: 30 * time.Second}),
	}
	log.Info("Configuration loaded", "path", opts.ConfigPath, "appEnv", envSvc.AppEnv(), "envFiles", envSvc.Loaded())

	if cfg.Monitoring.EnableMetrics {
		c.Metrics = metrics.NewCollector()
	}

	if err := c.initProviders(); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initAgent(); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initRAG(); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initChains(); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initChainTools(); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initSessions(); err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

func (c *Container) initProviders() error {
	cfg := c.Config.LLM
	providers := make(map[string]output.LLMPort)
	var order []string
	add := func(name string, llm output.LLMPort) {
		if c.Metrics != nil {
			llm = metrics.InstrumentLLM(llm, c.Metrics)
		}
		providers[name] = llm
		order = append(order, name)
	}

	for _, p := range []struct {
		name string
		cfg  config.OpenAIConfig
	}{
		{"openai", cfg.OpenAI},
		{"openrouter", cfg.OpenRouter},
	} {
		key := c.Env.Get(p.cfg.APIKeyEnv)
		if key == "" {
			c.Logger.Debug("Skipping LLM provider without API key", "provider", p.name, "env", p.cfg.APIKeyEnv)
			continue
		}
		llmCfg := openaicompat.DefaultConfig(key, p.cfg.DefaultModel)
		llmCfg.BaseURL = p.cfg.BaseURL
		llmCfg.Temperature = p.cfg.Temperature
		llmCfg.MaxTokens = p.cfg.MaxTokens
		llmCfg.Logger = c.Logger
		add(p.name, openaicompat.New(llmCfg))
	}

	ollama, err := langchain.NewOllama(langchain.OllamaConfig{
		BaseURL: cfg.Ollama.BaseURL,
		Model:   cfg.Ollama.DefaultModel,
	})
	if err != nil {
		c.Logger.Warn("Ollama provider unavailable", "error", err)
	} else {
		add("ollama", ollama)
	}

	hf, err := langchain.NewHuggingFace(langchain.HuggingFaceConfig{
		Token: c.Env.Get(cfg.HuggingFace.APIKeyEnv),
		Model: cfg.HuggingFace.DefaultModel,
	})
	if err != nil {
		c.Logger.Debug("Skipping LLM provider", "provider", "huggingface", "error", err)
	} else {
		add("huggingface", hf)
	}

	if len(order) == 0 {
		return errors.New("no LLM provider could be configured")
	}

	defaultName := cfg.DefaultProvider
	if _, ok := providers[defaultName]; !ok {
		c.Logger.Warn("Default LLM provider is not available; falling back",
			"configured", defaultName, "fallback", order[0])
		defaultName = order[0]
	}

	c.Providers = service.NewProviderRegistry(defaultName)
	for _, name := range order {
		c.Providers.Register(name, providers[name])
	}
	c.Logger.Info("LLM providers registered", "providers", order, "default", defaultName)
	return nil
}

func (c *Container) initAgent() error {
	agents := c.Config.Agents

	built, err := tool.Build(tool.Config{
		Enabled:      agents.EnabledTools,
		CodeMaxSteps: agents.CodeMaxSteps,
	}, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to build tools: %w", err)
	}
	c.Tools = service.NewToolRegistry(built...)
	for name, problem := range service.CheckToolSchemas(c.Tools) {
		c.Logger.Warn("Tool documentation schema is invalid", "tool", name, "error", problem)
	}

	builder, err := prompts.NewAgentPromptBuilder("")
	if err != nil {
		return fmt.Errorf("failed to build agent prompt: %w", err)
	}

	llm, err := c.Providers.Default()
	if err != nil {
		return err
	}

	c.Agent = executor.New(llm, c.Tools, c.Logger, builder, executor.Config{
		MaxIterations: agents.MaxIterations,
		LLMTimeout:    agents.LLMTimeout,
		ToolTimeout:   agents.ToolTimeout,
	})
	return nil
}

func (c *Container) initRAG() error {
	if !c.Config.RAGEnabled() {
		c.Logger.Info("RAG disabled")
		return nil
	}

	emb, err := embeddings.New(embeddings.Config{
		Provider:      c.Config.Embeddings.Provider,
		Model:         c.Config.Embeddings.Model,
		BatchSize:     c.Config.Embeddings.BatchSize,
		OllamaURL:     c.Config.LLM.Ollama.BaseURL,
		OpenAIKey:     c.Env.Get(c.Config.LLM.OpenAI.APIKeyEnv),
		OpenAIBaseURL: c.Config.LLM.OpenAI.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	var store output.VectorStorePort
	switch c.Config.VectorStore.Backend {
	case "memory":
		store = memory.New(emb)
	case "qdrant":
		q := c.Config.VectorStore.Qdrant
		store, err = lcstore.NewQdrant(lcstore.QdrantConfig{
			URL:            q.URL,
			CollectionName: q.CollectionName,
			APIKey:         c.Env.Get(q.APIKeyEnv),
		}, emb)
		if err != nil {
			return fmt.Errorf("failed to create qdrant store: %w", err)
		}
	default:
		return fmt.Errorf("unknown vector store backend %q", c.Config.VectorStore.Backend)
	}

	chunker, err := infrarag.NewChunker(c.Config.RAG.ChunkSize, c.Config.RAG.ChunkOverlap)
	if err != nil {
		return err
	}

	c.Retriever = rag.NewRetriever(store, chunker, c.Logger, rag.RetrieverConfig{
		TopK:      c.Config.RAG.RetrievalTopK,
		Threshold: c.Config.RAG.SimilarityThreshold,
	})

	llm, err := c.Providers.Default()
	if err != nil {
		return err
	}
	c.Query = rag.NewQueryService(c.Retriever, llm, c.Logger, c.Config.Chains.CallTimeout)

	c.Logger.Info("RAG enabled",
		"backend", c.Config.VectorStore.Backend,
		"embeddings", c.Config.Embeddings.Provider,
		"chunkSize", c.Config.RAG.ChunkSize,
	)
	return nil
}

func (c *Container) initChains() error {
	var retriever output.RetrieverPort
	if c.Retriever != nil {
		retriever = c.Retriever
	}

	defs := chainDefinitions(c.Config.Chains.Definitions)
	if len(defs) == 0 {
		defs = chain.DefaultDefinitions(c.Retriever != nil)
	}

	builder := chain.NewBuilder(c.Providers, retriever, c.Config.Chains.Timeout,
		chain.WithCallTimeout(c.Config.Chains.CallTimeout),
		chain.WithLogger(c.Logger),
	)
	if err := builder.BuildAll(defs, c.Chains); err != nil {
		return fmt.Errorf("failed to build chains: %w", err)
	}
	return nil
}

// initChainTools registers the configured chains as agent tools.
func (c *Container) initChainTools() error {
	for _, ct := range c.Config.Agents.ChainTools {
		registered, ok := c.Chains.Get(ct.Chain)
		if !ok {
			return fmt.Errorf("agents.chain_tools: %w: %q", entity.ErrChainNotFound, ct.Chain)
		}
		t := tool.NewChainTool(ct.Chain, registered, ct.Variable, ct.Description, c.Logger)
		c.Tools.Register(t)
		c.Logger.Info("Chain exposed as tool", "chain", ct.Chain, "tool", t.Name())
	}
	return nil
}

func chainDefinitions(defs []config.ChainDefinition) []chain.Definition {
	out := make([]chain.Definition, 0, len(defs))
	for _, d := range defs {
		out = append(out, chain.Definition{
			ID:          d.ID,
			Type:        entity.ChainType(d.Type),
			Name:        d.Name,
			Description: d.Description,
			Provider:    d.Provider,
			Template:    d.Template,
			Children:    d.Children,
		})
	}
	return out
}

func (c *Container) initSessions() error {
	if c.Config.Database.Path == "" {
		c.Logger.Info("Session memory disabled")
		return nil
	}
	store, err := sqlite.Open(c.Config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	c.Sessions = store
	return nil
}

// Router builds the HTTP API over the container's services.
func (c *Container) Router() http.Handler {
	deps := httpapi.Deps{
		Providers: c.Providers,
		Chains:    c.Chains,
		Tools:     c.Tools,
		Agent:     c.Agent,
		Retriever: c.Retriever,
		Query:     c.Query,
		Loader:    c.Loader,
		Metrics:   c.Metrics,
		Logger:    c.Logger,
		AccessLog: true,
	}
	if c.Sessions != nil {
		deps.Sessions = c.Sessions
	}
	return httpapi.NewRouter(deps)
}

func (c *Container) Close() {
	if c.Sessions != nil {
		if err := c.Sessions.Close(); err != nil {
			c.Logger.Warn("Failed to close session store", "error", err)
		}
	}
	if c.Logger != nil {
		c.Logger.Close()
	}
}
