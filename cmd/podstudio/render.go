package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"podstudio/internal/workflow"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func statusColors(status workflow.Status) text.Colors {
	switch {
	case status == workflow.StatusCompleted:
		return text.Colors{text.FgGreen}
	case status == workflow.StatusFailed:
		return text.Colors{text.FgRed}
	case status.IsActive():
		return text.Colors{text.FgYellow}
	default:
		return nil
	}
}

func statusLabel(status workflow.Status, colorize bool) string {
	label := string(status)
	if colorize {
		if colors := statusColors(status); colors != nil {
			return colors.Sprint(label)
		}
	}
	return label
}

func newTableWriter() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	return tw
}

// renderState lays one workflow record out as a field/value table.
func renderState(state workflow.State, colorize bool) string {
	tw := newTableWriter()
	tw.AppendHeader(table.Row{"Field", "Value"})
	tw.AppendRow(table.Row{"Episode", state.EpisodeID})
	tw.AppendRow(table.Row{"Status", statusLabel(state.Status, colorize)})
	if state.RunID != "" {
		tw.AppendRow(table.Row{"Run", state.RunID})
	}
	if state.CurrentStep != "" {
		tw.AppendRow(table.Row{"Step", state.CurrentStep})
	}
	tw.AppendRow(table.Row{"Progress", fmt.Sprintf("%d%%", state.Progress)})
	if state.StartedAt != nil {
		tw.AppendRow(table.Row{"Started", formatTime(*state.StartedAt)})
	}
	if state.CompletedAt != nil {
		tw.AppendRow(table.Row{"Completed", formatTime(*state.CompletedAt)})
	}
	if state.Error != "" {
		tw.AppendRow(table.Row{"Error", state.Error})
	}
	if result := state.Result; result != nil {
		tw.AppendRow(table.Row{"Transcript", "v" + strconv.Itoa(result.TranscriptVersion)})
		tw.AppendRow(table.Row{"Audio", result.Audio.URL})
		tw.AppendRow(table.Row{"Duration", fmt.Sprintf("%.2fs", result.Audio.DurationSeconds)})
		tw.AppendRow(table.Row{"Size", strconv.FormatInt(result.Audio.SizeBytes, 10) + " bytes"})
	}
	return tw.Render()
}

// renderStateList lays several records out one per row.
func renderStateList(states []workflow.State, colorize bool) string {
	tw := newTableWriter()
	tw.AppendHeader(table.Row{"Episode", "Status", "Step", "Progress", "Started"})
	for _, state := range states {
		started := ""
		if state.StartedAt != nil {
			started = formatTime(*state.StartedAt)
		}
		tw.AppendRow(table.Row{
			state.EpisodeID,
			statusLabel(state.Status, colorize),
			state.CurrentStep,
			fmt.Sprintf("%d%%", state.Progress),
			started,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft}})
	return tw.Render()
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}
