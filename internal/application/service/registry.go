package service

import (
	"fmt"
	"sort"
	"sync"

	"chainforge/internal/application/port/input"
	"chainforge/internal/application/port/output"
	"chainforge/internal/domain/entity"
)

var _ output.ToolRegistry = (*ToolRegistryImpl)(nil)

type ToolRegistryImpl struct {
	mu    sync.RWMutex
	tools map[entity.ToolName]output.ToolPort
}

func NewToolRegistry(tools ...output.ToolPort) *ToolRegistryImpl {
	r := &ToolRegistryImpl{
		tools: make(map[entity.ToolName]output.ToolPort, len(tools)),
	}
	for _, tool := range tools {
		r.tools[tool.Name()] = tool
	}
	return r
}

// Register adds tool under its own name, replacing any previous tool with
// that name.
func (r *ToolRegistryImpl) Register(tool output.ToolPort) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

func (r *ToolRegistryImpl) Get(name entity.ToolName) (output.ToolPort, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns the registered tools sorted by name.
func (r *ToolRegistryImpl) List() []output.ToolPort {
	r.mu.RLock()
	result := make([]output.ToolPort, 0, len(r.tools))
	for _, tool := range r.tools {
		result = append(result, tool)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}

func (r *ToolRegistryImpl) Definitions() []entity.ToolDefinition {
	tools := r.List()
	result := make([]entity.ToolDefinition, 0, len(tools))
	for _, tool := range tools {
		result = append(result, entity.ToolDefinition{
			Name:        tool.Name().String(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		})
	}
	return result
}

// Subset builds a new registry holding only the named tools.
func (r *ToolRegistryImpl) Subset(names []string) (*ToolRegistryImpl, error) {
	sub := NewToolRegistry()
	for _, name := range names {
		tool, ok := r.Get(entity.ToolName(name))
		if !ok {
			return nil, fmt.Errorf("%w: %q", entity.ErrUnknownTool, name)
		}
		sub.Register(tool)
	}
	return sub, nil
}

var _ output.ChainRegistry = (*ChainRegistryImpl)(nil)

// ChainRegistryImpl maps ids to chains. Chains returned by Get stay usable
// after they are removed from the registry.
type ChainRegistryImpl struct {
	mu     sync.RWMutex
	chains map[string]input.Chain
	logger output.LoggerPort
}

func NewChainRegistry(logger output.LoggerPort) *ChainRegistryImpl {
	return &ChainRegistryImpl{
		chains: make(map[string]input.Chain),
		logger: logger,
	}
}

// Register inserts chain under id. An existing chain with the same id is
// replaced.
func (r *ChainRegistryImpl) Register(id string, chain input.Chain) {
	r.mu.Lock()
	_, replaced := r.chains[id]
	r.chains[id] = chain
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Info("Registered chain", "id", id, "name", chain.Name(), "replaced", replaced)
	}
}

func (r *ChainRegistryImpl) Get(id string) (input.Chain, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chain, ok := r.chains[id]
	return chain, ok
}

// List returns a snapshot sorted by id.
func (r *ChainRegistryImpl) List() []entity.ChainInfo {
	r.mu.RLock()
	result := make([]entity.ChainInfo, 0, len(r.chains))
	for id, chain := range r.chains {
		result = append(result, entity.ChainInfo{
			ID:          id,
			Name:        chain.Name(),
			Description: chain.Description(),
		})
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

func (r *ChainRegistryImpl) Remove(id string) (input.Chain, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chain, ok := r.chains[id]
	if ok {
		delete(r.chains, id)
	}
	return chain, ok
}

func (r *ChainRegistryImpl) Has(id string) bool {
	_, ok := r.Get(id)
	return ok
}

func (r *ChainRegistryImpl) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.chains)
}

var _ output.ProviderRegistry = (*ProviderRegistryImpl)(nil)

type ProviderRegistryImpl struct {
	mu          sync.RWMutex
	providers   map[string]output.LLMPort
	defaultName string
}

func NewProviderRegistry(defaultName string) *ProviderRegistryImpl {
	return &ProviderRegistryImpl{
		providers:   make(map[string]output.LLMPort),
		defaultName: defaultName,
	}
}

func (r *ProviderRegistryImpl) Register(name string, llm output.LLMPort) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = llm
	if r.defaultName == "" {
		r.defaultName = name
	}
}

// Get returns the named provider, or the default one when name is empty.
func (r *ProviderRegistryImpl) Get(name string) (output.LLMPort, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.defaultName
	}
	llm, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", entity.ErrProviderNotFound, name)
	}
	return llm, nil
}

func (r *ProviderRegistryImpl) Default() (output.LLMPort, error) {
	return r.Get("")
}

func (r *ProviderRegistryImpl) DefaultName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultName
}

func (r *ProviderRegistryImpl) List() []string {
	r.mu.RLock()
	result := make([]string, 0, len(r.providers))
	for name := range r.providers {
		result = append(result, name)
	}
	r.mu.RUnlock()

	sort.Strings(result)
	return result
}
