package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"podstudio/internal/daemonrun"
)

func newResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <episode-id>",
		Short: "Return an episode's workflow record to idle",
		Long: "Reset clears the workflow record of an episode so a new run can start.\n" +
			"A run still executing in the daemon notices the reset and stops.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, _, err := ctx.openStack(cmd.Context(), daemonrun.BuildOptions{Listeners: true})
			if err != nil {
				return err
			}
			defer stack.Close()

			episodeID := strings.TrimSpace(args[0])
			previous, err := stack.Actor.Status(cmd.Context(), episodeID)
			if err != nil {
				return err
			}
			if _, err := stack.Actor.Reset(cmd.Context(), episodeID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %s (was %s)\n", episodeID, previous.Status)
			return nil
		},
	}
}
