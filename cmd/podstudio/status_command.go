package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"podstudio/internal/daemonrun"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status [episode-id]",
		Short: "Show an episode's workflow state, or every active run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, _, err := ctx.openStack(cmd.Context(), daemonrun.BuildOptions{})
			if err != nil {
				return err
			}
			defer stack.Close()

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				active, err := stack.States.ListActiveWorkflowStates(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, active)
				}
				if len(active) == 0 {
					fmt.Fprintln(out, "No active runs")
					return nil
				}
				fmt.Fprintln(out, renderStateList(active, shouldColorize(out)))
				return nil
			}

			state, err := stack.Actor.Status(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, state)
			}
			fmt.Fprintln(out, renderState(state, shouldColorize(out)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of a table")
	return cmd
}
