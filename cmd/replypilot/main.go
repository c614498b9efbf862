package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/replypilot/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Configuration is loaded once in the
// persistent pre-run and shared with subcommands through cfg.
func newRootCmd() *cobra.Command {
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "replypilot",
		Short:         "Draft, review and send replies to Threads mentions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			if err := setupLogging(loaded.LogLevel, loaded.LogFormat); err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
	}

	root.AddCommand(
		newServeCmd(&cfg),
		newSyncCmd(&cfg),
		newSendCmd(&cfg),
	)

	return root
}

// setupLogging installs the default slog logger.
func setupLogging(level, format string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return fmt.Errorf("REPLYPILOT_LOG_LEVEL: %w", err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
