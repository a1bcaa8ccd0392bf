package embeddings

import (
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

type Config struct {
	Provider  string // ollama or openai
	Model     string
	BatchSize int

	OllamaURL     string
	OpenAIKey     string
	OpenAIBaseURL string
}

// New builds a langchaingo embedder for the configured provider.
func New(cfg Config) (embeddings.Embedder, error) {
	var client embeddings.EmbedderClient

	switch cfg.Provider {
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.OllamaURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.OllamaURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create ollama embedding client: %w", err)
		}
		client = llm
	case "openai":
		opts := []openai.Option{openai.WithToken(cfg.OpenAIKey)}
		if cfg.Model != "" {
			opts = append(opts, openai.WithEmbeddingModel(cfg.Model))
		}
		if cfg.OpenAIBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAIBaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai embedding client: %w", err)
		}
		client = llm
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", cfg.Provider)
	}

	var opts []embeddings.Option
	if cfg.BatchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(cfg.BatchSize))
	}
	return embeddings.NewEmbedder(client, opts...)
}
