// Command rageval scores retrieval-augmented generation output against
// quality thresholds.
//
// # Basic Usage
//
// Serve the HTTP API:
//
//	rageval serve
//
// Evaluate a JSONL file of samples:
//
//	rageval batch --input samples.jsonl --format summary --fail-on-threshold
//
// Run as an MCP tool server over stdio:
//
//	rageval mcp
//
// Consume evaluation requests from Redis Streams:
//
//	rageval consume
//
// Configuration is read from environment variables, optionally loaded from
// a .env file. See internal/setup for the full list.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/setup"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/setup/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

// runtime is the state shared by every subcommand, built once the flags
// are parsed.
type runtime struct {
	cfg    *setup.Config
	logger zerolog.Logger
}

func main() {
	rootCmd := buildRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			if exitErr.msg != "" {
				fmt.Fprintln(os.Stderr, exitErr.msg)
			}
			os.Exit(exitErr.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var (
		envFile  string
		logLevel string
		rt       runtime
	)

	rootCmd := &cobra.Command{
		Use:           "rageval",
		Short:         "Evaluate RAG output against quality thresholds",
		Version:       setup.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if envFile != "" {
				setup.LoadEnv(envFile)
			} else {
				setup.LoadEnv()
			}
			rt.cfg = setup.LoadConfig()
			if logLevel != "" {
				rt.cfg.LogLevel = logLevel
			}
			rt.logger = logger.New(rt.cfg.LogLevel, rt.cfg.LogFormat)
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a .env file (default: .env when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")

	rootCmd.AddCommand(
		buildServeCmd(&rt),
		buildBatchCmd(&rt),
		buildMCPCmd(&rt),
		buildConsumeCmd(&rt),
		buildPublishCmd(&rt),
	)
	return rootCmd
}
