package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/atim-dev/atim/internal/logger"
	"github.com/atim-dev/atim/internal/server"
)

func (a *app) newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web front end",
		Long: `Serve starts the HTTP front end: an upload form at /, POST /upload for
analysis, archived reports under /reports and a /health probe.`,
		Args: cobra.NoArgs,
		RunE: a.runServe,
	}

	cmd.Flags().String("addr", "", "listen address (default from server.addr)")
	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func (a *app) runServe(cmd *cobra.Command, args []string) error {
	cfg := a.cfg

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	var reports server.ReportStore
	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("Failed to close storage: %v", err)
			}
		}()
		if err := store.RotateReports(); err != nil {
			logger.Warn("Failed to rotate reports: %v", err)
		}
		reports = store
	}

	notifier, err := newNotifier(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize Telegram client: %w", err)
	}

	// Links returned to the browser stay relative to this server.
	pipeline, err := newPipeline(cfg, newFetcher(cfg), store, notifier, "")
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Addr:           cfg.Server.Addr,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		RequestTimeout: cfg.Server.RequestTimeout,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, pipeline, reports, optionsFromConfig(cfg))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if notifier != nil {
		if store != nil {
			notifier.ListenForCommands(ctx, store.ListReports)
		} else {
			notifier.ListenForCommands(ctx, nil)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting web server on %s", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		logger.Info("Shutdown signal received, cleaning up...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
