package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"podstudio/internal/daemonrun"
	"podstudio/internal/importer"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var jsonOutput bool
	var formatFlag string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import episodes and guest assignments from a JSON file or markdown research document",
		Long: `Import episodes, guest profiles and guest assignments.

JSON files hold {"episodes": [...]} or a bare episode array. Markdown research
documents hold a guest table, detailed guest profiles and thematic pairing or
arc sections; each pairing becomes one episode and each arc one episode per
guest. The format is picked from the file extension unless --format is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := importer.ParseFormat(formatFlag)
			if err != nil {
				return err
			}
			doc, err := importer.ReadFile(args[0], format)
			if err != nil {
				return err
			}
			stack, logger, err := ctx.openStack(cmd.Context(), daemonrun.BuildOptions{})
			if err != nil {
				return err
			}
			defer stack.Close()

			report, err := importer.New(stack.Store, logger).Import(cmd.Context(), doc, dryRun)
			if jsonOutput {
				if encErr := writeJSON(cmd, report); encErr != nil {
					return encErr
				}
				return err
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			prefix := ""
			if dryRun {
				prefix = "[dry run] "
			}
			fmt.Fprintf(out, "%screated %d, updated %d, skipped %d, guests linked %d\n",
				prefix, report.Created, report.Updated, report.Skipped, report.GuestsLinked)
			if report.Profiles > 0 {
				fmt.Fprintf(out, "%sguest profiles %d\n", prefix, report.Profiles)
			}
			for _, problem := range report.Problems {
				fmt.Fprintf(out, "  skipped #%d %s: %s\n", problem.Index, problem.EpisodeID, problem.Reason)
			}
			for _, warning := range report.Warnings {
				fmt.Fprintf(out, "  warning: %s\n", warning)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate and report without writing")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the import report as JSON")
	cmd.Flags().StringVar(&formatFlag, "format", string(importer.FormatAuto), "Input format: auto, json or markdown")
	return cmd
}
