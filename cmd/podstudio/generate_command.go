package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"podstudio/internal/daemon"
	"podstudio/internal/daemonrun"
	"podstudio/internal/podcast"
	"podstudio/internal/services"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "generate <episode-id>",
		Short: "Generate the transcript and audio for an episode and wait for the result",
		Long: `Generate runs the full pipeline in this process and waits for the result.

It holds the daemon's instance lock for the duration of the run and refuses
to start while a daemon is serving; use the daemon's HTTP API instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			episodeID := strings.TrimSpace(args[0])
			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			lock, err := daemon.AcquireLock(cfg.LockPath())
			if errors.Is(err, daemon.ErrLocked) {
				return services.Wrap(services.ErrConflict, "generate", "lock",
					fmt.Sprintf("a podstudio daemon is running; start the run with POST /api/episodes/%s/generate", episodeID), err)
			}
			if err != nil {
				return err
			}
			defer func() { _ = lock.Unlock() }()

			stack, _, err := ctx.openStack(runCtx, daemonrun.BuildOptions{Generation: true, Listeners: true})
			if err != nil {
				return err
			}
			defer stack.Close()

			episode, err := stack.Store.GetEpisode(runCtx, episodeID)
			if err != nil {
				return err
			}
			if episode == nil {
				return services.Wrap(services.ErrNotFound, "generate", "lookup", fmt.Sprintf("episode %q does not exist; import it first", episodeID), nil)
			}

			out := cmd.OutOrStdout()
			observer := func(_ context.Context, progress podcast.Progress) error {
				if !jsonOutput {
					fmt.Fprintf(out, "%3d%%  %s\n", progress.Percent, progress.Step)
				}
				return nil
			}
			state, runErr := stack.Runner.Run(runCtx, episodeID, observer)
			if jsonOutput {
				if err := writeJSON(cmd, state); err != nil {
					return err
				}
				return runErr
			}
			if runErr != nil {
				return fmt.Errorf("generation failed: %w", runErr)
			}
			fmt.Fprintln(out, renderState(state, shouldColorize(out)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the final workflow state as JSON")
	return cmd
}
