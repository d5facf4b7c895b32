package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/povarna/generative-ai-agents/rag-eval/internal/api"
	"github.com/povarna/generative-ai-agents/rag-eval/internal/setup"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func buildServeCmd(rt *runtime) *cobra.Command {
	var (
		port    int
		origins []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				rt.cfg.APIPort = port
			}
			return runServe(cmd.Context(), rt, origins)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default: API_PORT or 18081)")
	cmd.Flags().StringSliceVar(&origins, "cors-origin", nil, "Allowed CORS origins (default: *)")
	return cmd
}

func runServe(ctx context.Context, rt *runtime, origins []string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := rt.logger
	deps, err := setup.Wire(ctx, rt.cfg, &logger)
	if err != nil {
		return err
	}
	defer func() { _ = deps.Close(context.Background()) }()

	var runs api.RunReader
	if deps.Store != nil {
		runs = deps.Store
	}
	handler := api.NewHandler(deps.Executor, deps.Thresholds, runs, setup.Version, &logger)
	server := api.NewServer(api.ServerConfig{
		Addr:           fmt.Sprintf(":%d", rt.cfg.APIPort),
		AllowedOrigins: origins,
		Gatherer:       deps.Metrics,
	}, handler, &logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("address", server.Addr).Msg("Starting RAG evaluation API")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
