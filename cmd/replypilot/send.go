package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/replypilot/internal/config"
)

func newSendCmd(cfg **config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "send <reply-id>",
		Short: "Send a pending or approved reply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid reply id %q", args[0])
			}

			a, err := newApp(cmd.Context(), *cfg)
			if err != nil {
				return err
			}
			defer a.close()

			task, err := a.service.Send(cmd.Context(), id)
			if err != nil {
				return err
			}

			sentID := ""
			if task.SentThreadID != nil {
				sentID = *task.SentThreadID
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "reply %d sent as %s\n", task.ID, sentID)
			return err
		},
	}
}
