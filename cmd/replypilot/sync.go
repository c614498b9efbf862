package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/replypilot/internal/config"
)

type syncOutput struct {
	RunID     string `json:"run_id"`
	DryRun    bool   `json:"dry_run"`
	Found     int    `json:"found"`
	New       int    `json:"new"`
	Generated int    `json:"generated"`
	AutoSent  int    `json:"auto_sent"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

func newSyncCmd(cfg **config.Config) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one ingest-and-reply cycle and print its result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *cfg)
			if err != nil {
				return err
			}
			defer a.close()

			res := a.service.RunCycle(ctx, dryRun)

			out := syncOutput{
				RunID:     res.RunID,
				DryRun:    res.DryRun,
				Found:     res.Found,
				New:       res.New,
				Generated: res.Generated,
				AutoSent:  res.AutoSent,
				Skipped:   res.Skipped,
				Failed:    res.Failed,
				Message:   res.Message,
			}
			if res.Err != nil {
				out.Error = res.Err.Error()
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return err
			}
			if res.Err != nil {
				return fmt.Errorf("sync cycle failed: %w", res.Err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "generate and store suggestions without sending")
	return cmd
}
