package chain

import (
	"fmt"
	"strings"
	"time"

	"chainforge/internal/application/port/input"
	"chainforge/internal/application/port/output"
	"chainforge/internal/domain/entity"
	"chainforge/internal/infrastructure/prompts"
)

// Definition declares a chain by id, usually loaded from the config file.
type Definition struct {
	ID          string           `yaml:"id"`
	Type        entity.ChainType `yaml:"type"`
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Provider    string           `yaml:"provider"`
	Template    string           `yaml:"template"`
	Children    []string         `yaml:"children"`
}

// Builder turns definitions into chains. Sequential children are referenced
// by id and may be declared in any order.
type Builder struct {
	providers    output.ProviderRegistry
	retriever    output.RetrieverPort
	chainTimeout time.Duration
	opts         []Option
}

func NewBuilder(providers output.ProviderRegistry, retriever output.RetrieverPort, chainTimeout time.Duration, opts ...Option) *Builder {
	return &Builder{
		providers:    providers,
		retriever:    retriever,
		chainTimeout: chainTimeout,
		opts:         opts,
	}
}

// BuildAll builds every definition and registers it under its id.
func (b *Builder) BuildAll(defs []Definition, registry output.ChainRegistry) error {
	byID := make(map[string]Definition, len(defs))
	for _, def := range defs {
		if def.ID == "" {
			return fmt.Errorf("%w: chain definition without id", entity.ErrInvalidInput)
		}
		if _, dup := byID[def.ID]; dup {
			return fmt.Errorf("%w: duplicate chain id %q", entity.ErrInvalidInput, def.ID)
		}
		byID[def.ID] = def
	}

	built := make(map[string]input.Chain, len(defs))
	for _, def := range defs {
		c, err := b.build(def.ID, byID, built, nil)
		if err != nil {
			return err
		}
		registry.Register(def.ID, WithTimeout(c, b.chainTimeout))
	}
	return nil
}

func (b *Builder) build(id string, defs map[string]Definition, built map[string]input.Chain, path []string) (input.Chain, error) {
	if c, ok := built[id]; ok {
		return c, nil
	}
	for _, seen := range path {
		if seen == id {
			return nil, fmt.Errorf("%w: chain cycle %s -> %s", entity.ErrInvalidInput, strings.Join(path, " -> "), id)
		}
	}
	def, ok := defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", entity.ErrChainNotFound, id)
	}

	name := def.Name
	if name == "" {
		name = def.ID
	}

	var c input.Chain
	switch def.Type {
	case entity.ChainTypeSimple, "":
		llm, err := b.providers.Get(def.Provider)
		if err != nil {
			return nil, fmt.Errorf("chain %q: %w", id, err)
		}
		c = NewSimple(name, def.Description, llm, def.Template, b.opts...)
	case entity.ChainTypeRAG:
		if b.retriever == nil {
			return nil, fmt.Errorf("%w: chain %q needs a retriever but no vector store is configured", entity.ErrInvalidInput, id)
		}
		llm, err := b.providers.Get(def.Provider)
		if err != nil {
			return nil, fmt.Errorf("chain %q: %w", id, err)
		}
		c = NewRAGPipeline(name, def.Description, llm, b.retriever, def.Template, b.opts...)
	case entity.ChainTypeSequential:
		seq := NewSequential(name, def.Description)
		for _, childID := range def.Children {
			child, err := b.build(childID, defs, built, append(path, id))
			if err != nil {
				return nil, err
			}
			seq.Add(child)
		}
		c = seq
	default:
		return nil, fmt.Errorf("%w: chain %q has unknown type %q", entity.ErrInvalidInput, id, def.Type)
	}

	built[id] = c
	return c, nil
}

// DefaultDefinitions are registered when the config declares no chains.
func DefaultDefinitions(withRAG bool) []Definition {
	defs := []Definition{
		{
			ID:          "qa",
			Type:        entity.ChainTypeSimple,
			Name:        "qa_chain",
			Description: "Simple question-answering chain",
			Template:    "Answer the following question: {question}",
		},
		{
			ID:          "summarize",
			Type:        entity.ChainTypeSimple,
			Name:        "summarize_chain",
			Description: "Text summarization chain",
			Template:    "Summarize the following text in 2-3 sentences:\n\n{text}",
		},
	}
	if withRAG {
		defs = append(defs, Definition{
			ID:          "rag",
			Type:        entity.ChainTypeRAG,
			Name:        "rag_chain",
			Description: "Answers a query from indexed documents",
			Template:    DefaultRAGTemplate,
		})
	}
	return defs
}

// DefaultRAGTemplate renders {context} and {query}.
var DefaultRAGTemplate = strings.TrimSpace(prompts.RAGPrompt)
