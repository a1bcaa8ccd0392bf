package chain

import (
	"context"
	"fmt"

	"chainforge/internal/application/port/input"
	"chainforge/internal/domain/entity"
)

const (
	// PreviousOutputKey is the only variable a non-first child receives.
	PreviousOutputKey = "previous_output"
	// NoOutput is the result of a sequential chain that produced nothing.
	NoOutput = "No output"
)

var _ input.Chain = (*Sequential)(nil)

// Sequential runs its children strictly in order. Every child after the
// first sees a fresh input holding only previous_output, bound to the full
// result of the child before it.
type Sequential struct {
	name        string
	description string
	chains      []input.Chain
}

func NewSequential(name, description string, chains ...input.Chain) *Sequential {
	return &Sequential{
		name:        name,
		description: description,
		chains:      chains,
	}
}

// Add appends a child and returns the chain for chaining calls.
func (c *Sequential) Add(child input.Chain) *Sequential {
	c.chains = append(c.chains, child)
	return c
}

func (c *Sequential) Name() string        { return c.name }
func (c *Sequential) Description() string { return c.description }

func (c *Sequential) Children() []input.Chain {
	out := make([]input.Chain, len(c.chains))
	copy(out, c.chains)
	return out
}

func (c *Sequential) Execute(ctx context.Context, in entity.ChainInput) (*entity.ChainOutput, error) {
	agg := newAggregator(c.name)

	current := in
	var last any
	for i, child := range c.chains {
		out, err := child.Execute(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("%w: %q at position %d: %w", entity.ErrChildChain, child.Name(), i, err)
		}

		agg.absorb(out.Metadata)
		last = out.Result
		current = entity.NewChainInput().With(PreviousOutputKey, out.Result)
	}

	if last == nil {
		last = NoOutput
	}

	return &entity.ChainOutput{
		Result:   last,
		Metadata: agg.finish(),
	}, nil
}
