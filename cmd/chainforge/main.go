package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"chainforge/internal/adapter/httpapi"
	"chainforge/internal/di"
	"chainforge/internal/domain/entity"
	"chainforge/internal/infrastructure/console"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "chainforge",
	Short:         "LLM chains, ReAct agents and retrieval over a single service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c, err := newContainer(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		server := httpapi.NewServer(c.Config.Server.Addr(), c.Router(), c.Logger)
		return server.Run(ctx, c.Config.Server.ShutdownTimeout)
	},
}

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "List and run chains",
}

var chainListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered chains",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newContainer(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
		for _, info := range c.Chains.List() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", info.ID, info.Name, info.Description)
		}
		return w.Flush()
	},
}

var chainRunCmd = &cobra.Command{
	Use:   "run <id>",
	Short: "Execute a chain with the given variables",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rawVars, _ := cmd.Flags().GetStringArray("var")
		in, err := parseVars(rawVars)
		if err != nil {
			return err
		}

		c, err := newContainer(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		chain, ok := c.Chains.Get(args[0])
		if !ok {
			return fmt.Errorf("%w: %q", entity.ErrChainNotFound, args[0])
		}

		out, err := chain.Execute(cmd.Context(), in)
		if err != nil {
			return err
		}
		return printJSON(cmd, out)
	},
}

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the ReAct agent",
}

var agentRunCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Solve a task with the agent and its tools",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		maxIterations, _ := cmd.Flags().GetInt("max-iterations")
		toolNames, _ := cmd.Flags().GetStringSlice("tools")
		quiet, _ := cmd.Flags().GetBool("quiet")

		c, err := newContainer(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		agent := c.Agent.WithMaxIterations(maxIterations)
		if len(toolNames) > 0 {
			sub, err := c.Tools.Subset(toolNames)
			if err != nil {
				return err
			}
			agent = agent.WithTools(sub)
		}
		if !quiet {
			agent = agent.WithObserver(console.NewAgentObserver(cmd.ErrOrStderr()))
		}

		task := strings.Join(args, " ")
		c.Logger.Info("Task started", "task", task, "maxIterations", agent.MaxIterations())

		result, err := agent.Execute(cmd.Context(), task)
		if err != nil {
			var agentErr *entity.AgentError
			if errors.As(err, &agentErr) && len(agentErr.Steps) > 0 {
				_ = printJSON(cmd, agentErr.Steps)
			}
			return err
		}

		c.Logger.Info("Task completed", "iterations", result.TotalIterations)
		return printJSON(cmd, result)
	},
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools available to the agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newContainer(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tREQUIRED\tDESCRIPTION")
		for _, def := range c.Tools.Definitions() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", def.Name, strings.Join(def.Parameters.Required, ","), def.Description)
		}
		return w.Flush()
	},
}

func newContainer(cmd *cobra.Command) (*di.Container, error) {
	configPath, _ := cmd.Flags().GetString("config")
	logLevel, _ := cmd.Flags().GetString("log-level")
	return di.NewContainer(cmd.Context(), di.Options{
		ConfigPath: configPath,
		LogLevel:   logLevel,
	})
}

// parseVars turns repeated key=value flags into chain variables.
func parseVars(raw []string) (entity.ChainInput, error) {
	in := entity.NewChainInput()
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return in, fmt.Errorf("%w: --var %q must look like key=value", entity.ErrInvalidInput, kv)
		}
		in.Variables[key] = value
	}
	return in, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().String("config", "config.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "override monitoring.log_level")

	chainRunCmd.Flags().StringArray("var", nil, "chain variable as key=value (repeatable)")
	agentRunCmd.Flags().Int("max-iterations", 0, "override agents.max_iterations")
	agentRunCmd.Flags().StringSlice("tools", nil, "restrict the agent to these tools")
	agentRunCmd.Flags().BoolP("quiet", "q", false, "do not print progress to stderr")

	chainCmd.AddCommand(chainListCmd, chainRunCmd)
	agentCmd.AddCommand(agentRunCmd)
	rootCmd.AddCommand(serveCmd, chainCmd, agentCmd, toolsCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
