package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"podstudio/internal/daemon"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification to the configured ntfy topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			sent, message, err := daemon.SendTestNotification(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("%s: %w", message, err)
			}
			if !sent {
				fmt.Fprintf(cmd.OutOrStdout(), "Notification not sent: %s\n", message)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}
}
