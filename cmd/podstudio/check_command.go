package main

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"podstudio/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify directories, state stores and service endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			if jsonOutput {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), renderChecks(results, shouldColorize(cmd.OutOrStdout())))
			}
			if !preflight.Passed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderChecks(results []preflight.Result, colorize bool) string {
	tw := newTableWriter()
	tw.AppendHeader(table.Row{"Check", "Result", "Detail"})
	for _, r := range results {
		label, colors := "fail", text.Colors{text.FgRed}
		if r.Passed {
			label, colors = "ok", text.Colors{text.FgGreen}
		}
		if colorize {
			label = colors.Sprint(label)
		}
		tw.AppendRow(table.Row{r.Name, label, r.Detail})
	}
	return tw.Render()
}
