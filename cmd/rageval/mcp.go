package main

import (
	"context"
	"errors"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/mcpadapter"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/setup"
	"github.com/spf13/cobra"
)

func buildMCPCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run as an MCP tool server over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd.Context(), rt)
		},
	}
}

func runMCP(ctx context.Context, rt *runtime) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := rt.logger
	deps, err := setup.Wire(ctx, rt.cfg, &logger)
	if err != nil {
		return err
	}
	defer func() { _ = deps.Close(context.Background()) }()

	server := mcpadapter.NewServer(deps.Executor, deps.Thresholds, setup.Version, &logger)

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		// EOF / "server is closing" is expected when stdin closes
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) || strings.Contains(err.Error(), "server is closing") {
			logger.Debug().Err(err).Msg("MCP server stopped")
			return nil
		}
		return err
	}
	return nil
}
