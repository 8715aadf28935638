package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/UnknownOlympus/locator/internal/api"
	"github.com/UnknownOlympus/locator/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			const shutdownTimeout = 10 * time.Second

			ctx := cmd.Context()
			cfg := config.MustLoad()
			logger := setupLogger(cfg.Env, cmd.ErrOrStderr())

			application, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			if cfg.Env != envLocal {
				gin.SetMode(gin.ReleaseMode)
			}

			router := api.NewRouter(api.NewHandler(application.service, logger), application.registry, logger)
			server := api.NewServer(router, cfg.Port, cfg.RequestTimeout)

			serveErr := make(chan error, 1)
			go func() {
				logger.InfoContext(ctx, "Starting API server", "port", cfg.Port)
				serveErr <- server.ListenAndServe()
			}()

			// Wait for the context to be canceled (e.g., by Ctrl+C) or for the server to fail.
			select {
			case err = <-serveErr:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("API server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.InfoContext(ctx, "Shutdown signal received. Stopping application...")

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err = server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to stop API server: %w", err)
			}

			logger.InfoContext(ctx, "Application stopped gracefully.")

			return nil
		},
	}
}
