package entity

import (
	"errors"
	"fmt"
)

var (
	ErrMissingVariable       = errors.New("missing variable")
	ErrUnknownTool           = errors.New("unknown tool")
	ErrMaxIterationsExceeded = errors.New("agent exceeded maximum iterations")
	ErrProvider              = errors.New("provider error")
	ErrChildChain            = errors.New("child chain failed")
	ErrTimeout               = errors.New("timeout")

	ErrChainNotFound    = errors.New("chain not found")
	ErrProviderNotFound = errors.New("llm provider not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidInput     = errors.New("invalid input")
)

// AgentError is returned when an agent run fails. It keeps the steps that
// were recorded before the failure; no AgentResult is produced.
type AgentError struct {
	Err        error
	Steps      []AgentStep
	Iterations int
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("agent run failed after %d iteration(s): %v", e.Iterations, e.Err)
}

func (e *AgentError) Unwrap() error {
	return e.Err
}

// ProviderFailure wraps err from an LLM, tool or retriever call so that it
// matches both ErrProvider and the original cause.
func ProviderFailure(op string, err error) error {
	if errors.Is(err, ErrTimeout) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrProvider, op, err)
}
