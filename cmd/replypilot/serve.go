package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httphandler "github.com/ericfisherdev/replypilot/internal/adapter/driving/http"
	"github.com/ericfisherdev/replypilot/internal/config"
)

func newServeCmd(cfg **config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled reply cycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *cfg)
		},
	}
}

func runServe(parent context.Context, cfg *config.Config) error {
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"poll_interval", cfg.PollInterval,
		"timezone", cfg.Location.String(),
		"daily_reply_limit", cfg.DailyReplyLimit,
	)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	// The cycle loop serializes scheduled and HTTP-triggered cycles.
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		a.service.Start(ctx)
	}()

	// A typed nil would defeat the handler's nil check.
	var credentials httphandler.CredentialUpdater
	if a.credentials != nil {
		credentials = a.credentials
	}

	apiHandler := httphandler.NewHandler(a.replies, a.runs, a.service, a.settings, credentials, a.db, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Sync requests wait for a full cycle including generation and pacing.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()

	slog.Info("replypilot started", "listen_addr", cfg.ListenAddr, "poll_interval", cfg.PollInterval)

	select {
	case <-ctx.Done():
	case err := <-srvErr:
		stop()
		<-loopDone
		return err
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}
	<-loopDone

	slog.Info("shutdown complete")
	return nil
}
