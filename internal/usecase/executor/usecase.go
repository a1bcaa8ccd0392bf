package executor

import (
	"context"
	"fmt"
	"time"

	"chainforge/internal/application/port/input"
	"chainforge/internal/application/port/output"
	"chainforge/internal/domain/entity"
	"chainforge/internal/infrastructure/prompts"
	"chainforge/internal/usecase/deadline"
)

var _ input.AgentExecutor = (*UseCase)(nil)

const defaultMaxIterations = 10

type Config struct {
	MaxIterations int
	// LLMTimeout and ToolTimeout bound each individual call. Zero means no
	// per-call deadline.
	LLMTimeout  time.Duration
	ToolTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxIterations: defaultMaxIterations,
		LLMTimeout:    2 * time.Minute,
		ToolTimeout:   30 * time.Second,
	}
}

// UseCase runs the bounded ReAct loop: ask the LLM, parse its reply, then
// either finish or dispatch to a tool and feed the observation back.
type UseCase struct {
	llm    output.LLMPort
	tools  output.ToolRegistry
	logger output.LoggerPort
	prompt *prompts.AgentPromptBuilder
	cfg    Config
	// observer may be nil.
	observer output.AgentObserverPort
}

func New(
	llm output.LLMPort,
	tools output.ToolRegistry,
	logger output.LoggerPort,
	prompt *prompts.AgentPromptBuilder,
	cfg Config,
) *UseCase {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	return &UseCase{
		llm:    llm,
		tools:  tools,
		logger: logger,
		prompt: prompt,
		cfg:    cfg,
	}
}

// WithTools returns a copy of the executor that dispatches to tools instead.
func (uc *UseCase) WithTools(tools output.ToolRegistry) *UseCase {
	c := *uc
	c.tools = tools
	return &c
}

// WithMaxIterations returns a copy of the executor bounded to n iterations.
// A non-positive n keeps the current bound.
func (uc *UseCase) WithMaxIterations(n int) *UseCase {
	c := *uc
	if n > 0 {
		c.cfg.MaxIterations = n
	}
	return &c
}

// WithObserver returns a copy of the executor that reports progress to obs.
func (uc *UseCase) WithObserver(obs output.AgentObserverPort) *UseCase {
	c := *uc
	c.observer = obs
	return &c
}

func (uc *UseCase) MaxIterations() int {
	return uc.cfg.MaxIterations
}

func (uc *UseCase) Execute(ctx context.Context, task string) (*entity.AgentResult, error) {
	steps := make([]entity.AgentStep, 0)
	current := task

	fail := func(iterations int, err error) error {
		uc.logger.Error("Agent run failed", "iterations", iterations, "error", err)
		return &entity.AgentError{Err: err, Steps: steps, Iterations: iterations}
	}

	for iteration := 0; iteration < uc.cfg.MaxIterations; iteration++ {
		stepStart := time.Now()
		uc.logger.Debug("Starting iteration", "iteration", iteration)
		if uc.observer != nil {
			uc.observer.ShowIteration(ctx, iteration+1, uc.cfg.MaxIterations)
		}

		prompt, err := uc.prompt.Build(uc.tools.List(), current, iteration)
		if err != nil {
			return nil, fail(iteration, fmt.Errorf("build reasoning prompt: %w", err))
		}

		resp, err := deadline.Call(ctx, uc.cfg.LLMTimeout, "llm generate", func(ctx context.Context) (*entity.LLMResponse, error) {
			return uc.llm.Generate(ctx, entity.NewLLMRequest(prompt))
		})
		if err != nil {
			return nil, fail(iteration+1, entity.ProviderFailure("llm generate", err))
		}

		action := ParseAction(resp.Text)
		if uc.observer != nil {
			uc.observer.ShowThinking(ctx, action.Thought)
		}

		if action.IsFinal() {
			steps = append(steps, entity.AgentStep{
				Iteration:   iteration,
				Thought:     action.Thought,
				Action:      action.ActionType,
				ActionInput: action.ActionInput,
				Observation: action.ActionInput,
				Duration:    time.Since(stepStart),
				IsFinal:     true,
			})
			uc.logger.Info("Agent finished", "iterations", iteration+1)
			if uc.observer != nil {
				uc.observer.ShowFinalAnswer(ctx, action.ActionInput)
			}
			return &entity.AgentResult{
				FinalAnswer:     action.ActionInput,
				Steps:           steps,
				TotalIterations: iteration + 1,
			}, nil
		}

		name := entity.ToolName(action.ActionType)
		tool, ok := uc.tools.Get(name)
		if !ok {
			uc.logger.Warn("Unknown tool called", "name", action.ActionType)
			return nil, fail(iteration+1, fmt.Errorf("%w: %q", entity.ErrUnknownTool, action.ActionType))
		}

		uc.logger.Info("Executing tool", "name", name, "input", action.ActionInput)
		if uc.observer != nil {
			uc.observer.ShowToolStart(ctx, name.String(), action.ActionInput)
		}
		out, err := deadline.Call(ctx, uc.cfg.ToolTimeout, "tool "+name.String(), func(ctx context.Context) (*entity.ToolOutput, error) {
			return tool.Execute(ctx, action.ActionInput)
		})
		if err != nil {
			return nil, fail(iteration+1, entity.ProviderFailure("tool "+name.String(), err))
		}
		if out == nil {
			out = entity.ToolFailure("")
		}
		uc.logger.Debug("Tool completed", "name", name, "success", out.Success, "resultLen", len(out.Result))
		if uc.observer != nil {
			uc.observer.ShowToolResult(ctx, name.String(), out.Result, !out.Success)
		}

		steps = append(steps, entity.AgentStep{
			Iteration:   iteration,
			Thought:     action.Thought,
			Action:      action.ActionType,
			ActionInput: action.ActionInput,
			Observation: out.Result,
			Duration:    time.Since(stepStart),
			ToolSuccess: out.Success,
		})
		current = out.Result
	}

	return nil, fail(uc.cfg.MaxIterations, fmt.Errorf("%w (%d)", entity.ErrMaxIterationsExceeded, uc.cfg.MaxIterations))
}
