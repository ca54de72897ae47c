package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ent0n29/levo/internal/app"
	"github.com/ent0n29/levo/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long:  `Builds the chat pipeline from the environment and serves the HTTP, SSE and websocket API until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// logger setup
		var flushLog func()
		ctx, flushLog = setupLogger(ctx, cfg)
		defer flushLog()
		logger := logging.FromCtx(ctx)

		built, err := app.Build(ctx, cfg)
		if err != nil {
			logger.Error().Err(err).Msg("startup failed")
			return err
		}
		defer func() {
			if err := built.Cleanup(); err != nil {
				logger.Error().Err(err).Msg("cleanup failed")
			}
		}()

		logger.Info().
			Str("llm_mode", built.LLMMode).
			Str("model", cfg.LLMModel).
			Str("search", built.Search).
			Msg("pipeline ready")

		httpServer := &http.Server{
			Addr:              cfg.BindAddr,
			Handler:           built.API.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serveErr := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", cfg.BindAddr).Msg("server listening")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		select {
		case err, ok := <-serveErr:
			if ok {
				logger.Error().Err(err).Msg("listen error")
				return err
			}
		case <-ctx.Done():
			logger.Info().Msg("shutdown signal received")
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("graceful shutdown failed")
			_ = httpServer.Close()
		}

		logger.Info().Msg("shutdown complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
