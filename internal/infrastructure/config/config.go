package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"chainforge/internal/application/port/output"
)

const DefaultPath = "config.yaml"

type AppConfig struct {
	Server      ServerConfig      `yaml:"server"`
	LLM         LLMConfig         `yaml:"llm"`
	Embeddings  EmbeddingsConfig  `yaml:"embeddings"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	RAG         RAGConfig         `yaml:"rag"`
	Chains      ChainsConfig      `yaml:"chains"`
	Agents      AgentsConfig      `yaml:"agents"`
	Monitoring  MonitoringConfig  `yaml:"monitoring"`
	Database    DatabaseConfig    `yaml:"database"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LLMConfig struct {
	DefaultProvider string            `yaml:"default_provider"`
	OpenAI          OpenAIConfig      `yaml:"openai"`
	OpenRouter      OpenAIConfig      `yaml:"openrouter"`
	Ollama          OllamaConfig      `yaml:"ollama"`
	HuggingFace     HuggingFaceConfig `yaml:"huggingface"`
}

// OpenAIConfig covers any OpenAI-compatible endpoint. The key itself is
// read from the environment variable named by APIKeyEnv.
type OpenAIConfig struct {
	APIKeyEnv    string  `yaml:"api_key_env"`
	BaseURL      string  `yaml:"base_url"`
	DefaultModel string  `yaml:"default_model"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
}

type OllamaConfig struct {
	BaseURL      string `yaml:"base_url"`
	DefaultModel string `yaml:"default_model"`
}

type HuggingFaceConfig struct {
	APIKeyEnv    string `yaml:"api_key_env"`
	DefaultModel string `yaml:"default_model"`
}

type EmbeddingsConfig struct {
	Provider  string `yaml:"provider"` // ollama, openai or none
	Model     string `yaml:"model"`
	BatchSize int    `yaml:"batch_size"`
}

type VectorStoreConfig struct {
	Backend string       `yaml:"backend"` // memory, qdrant or none
	Qdrant  QdrantConfig `yaml:"qdrant"`
}

type QdrantConfig struct {
	URL            string `yaml:"url"`
	CollectionName string `yaml:"collection_name"`
	APIKeyEnv      string `yaml:"api_key_env"`
}

type RAGConfig struct {
	ChunkSize           int     `yaml:"chunk_size"`
	ChunkOverlap        int     `yaml:"chunk_overlap"`
	RetrievalTopK       int     `yaml:"retrieval_top_k"`
	SimilarityThreshold float32 `yaml:"similarity_threshold"`
}

type ChainsConfig struct {
	Timeout     time.Duration     `yaml:"timeout"`
	CallTimeout time.Duration     `yaml:"call_timeout"`
	Definitions []ChainDefinition `yaml:"definitions"`
}

type ChainDefinition struct {
	ID          string   `yaml:"id"`
	Type        string   `yaml:"type"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Provider    string   `yaml:"provider"`
	Template    string   `yaml:"template"`
	Children    []string `yaml:"children"`
}

type AgentsConfig struct {
	MaxIterations int           `yaml:"max_iterations"`
	LLMTimeout    time.Duration `yaml:"llm_timeout"`
	ToolTimeout   time.Duration `yaml:"tool_timeout"`
	EnabledTools  []string      `yaml:"enabled_tools"`
	// CodeMaxSteps bounds the Starlark interpreter in code_executor.
	CodeMaxSteps uint64            `yaml:"code_max_steps"`
	ChainTools   []ChainToolConfig `yaml:"chain_tools"`
}

// ChainToolConfig exposes a registered chain to the agent as the tool
// chain_<id>. The action input is bound to Variable.
type ChainToolConfig struct {
	Chain       string `yaml:"chain"`
	Variable    string `yaml:"variable"`
	Description string `yaml:"description"`
}

type MonitoringConfig struct {
	EnableMetrics bool   `yaml:"enable_metrics"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	LogDir        string `yaml:"log_dir"`
}

type DatabaseConfig struct {
	// Path of the sqlite file holding session memory. Empty disables sessions.
	Path string `yaml:"path"`
}

func Default() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			ShutdownTimeout: 10 * time.Second,
		},
		LLM: LLMConfig{
			DefaultProvider: "openai",
			OpenAI: OpenAIConfig{
				APIKeyEnv:    "OPENAI_API_KEY",
				DefaultModel: "gpt-3.5-turbo",
				Temperature:  0.7,
				MaxTokens:    2000,
			},
			OpenRouter: OpenAIConfig{
				APIKeyEnv:    "OPENROUTER_API_KEY",
				BaseURL:      "https://openrouter.ai/api/v1",
				DefaultModel: "openai/gpt-4o-mini",
				Temperature:  0.7,
				MaxTokens:    2000,
			},
			Ollama: OllamaConfig{
				BaseURL:      "http://localhost:11434",
				DefaultModel: "llama2",
			},
			HuggingFace: HuggingFaceConfig{
				APIKeyEnv:    "HUGGINGFACE_API_KEY",
				DefaultModel: "mistralai/Mistral-7B-Instruct-v0.2",
			},
		},
		Embeddings: EmbeddingsConfig{
			Provider:  "ollama",
			Model:     "nomic-embed-text",
			BatchSize: 32,
		},
		VectorStore: VectorStoreConfig{
			Backend: "memory",
			Qdrant: QdrantConfig{
				URL:            "http://localhost:6333",
				CollectionName: "chainforge",
				APIKeyEnv:      "QDRANT_API_KEY",
			},
		},
		RAG: RAGConfig{
			ChunkSize:           1000,
			ChunkOverlap:        200,
			RetrievalTopK:       5,
			SimilarityThreshold: 0.7,
		},
		Chains: ChainsConfig{
			Timeout:     5 * time.Minute,
			CallTimeout: 2 * time.Minute,
		},
		Agents: AgentsConfig{
			MaxIterations: 10,
			LLMTimeout:    2 * time.Minute,
			ToolTimeout:   30 * time.Second,
			EnabledTools:  []string{"calculator", "web_search", "code_executor"},
			CodeMaxSteps:  1_000_000,
		},
		Monitoring: MonitoringConfig{
			EnableMetrics: true,
			LogLevel:      "info",
			LogFormat:     "console",
		},
		Database: DatabaseConfig{
			Path: "chainforge.db",
		},
	}
}

// Load reads path over the defaults, then applies CHAINFORGE_* overrides
// from env. A missing file is not an error.
func Load(path string, env output.ConfigPort) (*AppConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if env != nil {
		applyEnv(cfg, env)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig, env output.ConfigPort) {
	cfg.Server.Host = env.GetWithDefault("CHAINFORGE_SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = env.GetInt("CHAINFORGE_SERVER_PORT", cfg.Server.Port)

	cfg.LLM.DefaultProvider = env.GetWithDefault("CHAINFORGE_LLM_DEFAULT_PROVIDER", cfg.LLM.DefaultProvider)
	cfg.LLM.OpenAI.DefaultModel = env.GetWithDefault("CHAINFORGE_OPENAI_MODEL", cfg.LLM.OpenAI.DefaultModel)
	cfg.LLM.OpenAI.BaseURL = env.GetWithDefault("CHAINFORGE_OPENAI_BASE_URL", cfg.LLM.OpenAI.BaseURL)
	cfg.LLM.OpenRouter.DefaultModel = env.GetWithDefault("CHAINFORGE_OPENROUTER_MODEL", cfg.LLM.OpenRouter.DefaultModel)
	cfg.LLM.Ollama.BaseURL = env.GetWithDefault("CHAINFORGE_OLLAMA_BASE_URL", cfg.LLM.Ollama.BaseURL)
	cfg.LLM.Ollama.DefaultModel = env.GetWithDefault("CHAINFORGE_OLLAMA_MODEL", cfg.LLM.Ollama.DefaultModel)

	cfg.Embeddings.Provider = env.GetWithDefault("CHAINFORGE_EMBEDDINGS_PROVIDER", cfg.Embeddings.Provider)
	cfg.Embeddings.Model = env.GetWithDefault("CHAINFORGE_EMBEDDINGS_MODEL", cfg.Embeddings.Model)
	cfg.VectorStore.Backend = env.GetWithDefault("CHAINFORGE_VECTOR_STORE", cfg.VectorStore.Backend)
	cfg.VectorStore.Qdrant.URL = env.GetWithDefault("CHAINFORGE_QDRANT_URL", cfg.VectorStore.Qdrant.URL)

	cfg.RAG.ChunkSize = env.GetInt("CHAINFORGE_RAG_CHUNK_SIZE", cfg.RAG.ChunkSize)
	cfg.RAG.ChunkOverlap = env.GetInt("CHAINFORGE_RAG_CHUNK_OVERLAP", cfg.RAG.ChunkOverlap)
	cfg.RAG.RetrievalTopK = env.GetInt("CHAINFORGE_RAG_TOP_K", cfg.RAG.RetrievalTopK)
	cfg.RAG.SimilarityThreshold = float32(env.GetFloat("CHAINFORGE_RAG_SIMILARITY_THRESHOLD", float64(cfg.RAG.SimilarityThreshold)))

	cfg.Chains.Timeout = env.GetDuration("CHAINFORGE_CHAINS_TIMEOUT", cfg.Chains.Timeout)
	cfg.Chains.CallTimeout = env.GetDuration("CHAINFORGE_CHAINS_CALL_TIMEOUT", cfg.Chains.CallTimeout)

	cfg.Agents.MaxIterations = env.GetInt("CHAINFORGE_AGENTS_MAX_ITERATIONS", cfg.Agents.MaxIterations)
	cfg.Agents.LLMTimeout = env.GetDuration("CHAINFORGE_AGENTS_LLM_TIMEOUT", cfg.Agents.LLMTimeout)
	cfg.Agents.ToolTimeout = env.GetDuration("CHAINFORGE_AGENTS_TOOL_TIMEOUT", cfg.Agents.ToolTimeout)

	cfg.Monitoring.EnableMetrics = env.GetBool("CHAINFORGE_ENABLE_METRICS", cfg.Monitoring.EnableMetrics)
	cfg.Monitoring.LogLevel = env.GetWithDefault("CHAINFORGE_LOG_LEVEL", cfg.Monitoring.LogLevel)
	cfg.Monitoring.LogFormat = env.GetWithDefault("CHAINFORGE_LOG_FORMAT", cfg.Monitoring.LogFormat)
	cfg.Monitoring.LogDir = env.GetWithDefault("CHAINFORGE_LOG_DIR", cfg.Monitoring.LogDir)

	cfg.Database.Path = env.GetWithDefault("CHAINFORGE_DATABASE_PATH", cfg.Database.Path)
}

func (c *AppConfig) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Agents.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("agents.max_iterations must be positive, got %d", c.Agents.MaxIterations))
	}
	if c.RAG.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("rag.chunk_size must be positive, got %d", c.RAG.ChunkSize))
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		errs = append(errs, fmt.Errorf("rag.chunk_overlap %d must be in [0, chunk_size)", c.RAG.ChunkOverlap))
	}
	if c.RAG.RetrievalTopK <= 0 {
		errs = append(errs, fmt.Errorf("rag.retrieval_top_k must be positive, got %d", c.RAG.RetrievalTopK))
	}
	if c.RAG.SimilarityThreshold < -1 || c.RAG.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("rag.similarity_threshold %v must be in [-1, 1]", c.RAG.SimilarityThreshold))
	}
	switch c.VectorStore.Backend {
	case "memory", "qdrant", "none", "":
	default:
		errs = append(errs, fmt.Errorf("vector_store.backend %q is not one of memory, qdrant, none", c.VectorStore.Backend))
	}
	switch c.Embeddings.Provider {
	case "ollama", "openai", "none", "":
	default:
		errs = append(errs, fmt.Errorf("embeddings.provider %q is not one of ollama, openai, none", c.Embeddings.Provider))
	}
	for i, ct := range c.Agents.ChainTools {
		if ct.Chain == "" || ct.Variable == "" {
			errs = append(errs, fmt.Errorf("agents.chain_tools[%d] needs both chain and variable", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// RAGEnabled reports whether documents can be indexed and retrieved.
func (c *AppConfig) RAGEnabled() bool {
	return c.VectorStore.Backend != "none" && c.VectorStore.Backend != "" &&
		c.Embeddings.Provider != "none" && c.Embeddings.Provider != ""
}
