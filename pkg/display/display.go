// Package display renders run information for humans: the
// configuration banner shown at the start of a run and the summary
// table shown at the end.
package display

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/pterm/pterm"

	"github.com/znichollscr/pydoit-nb/pkg/paths"
	"github.com/znichollscr/pydoit-nb/pkg/runner"
	"github.com/znichollscr/pydoit-nb/pkg/task"
)

// ConfigEntry is one key/value pair in the configuration banner.
// Order matters, so the banner takes a slice rather than a map.
type ConfigEntry struct {
	Key   string
	Value string
}

// PrintConfig writes the configuration banner to w.
func PrintConfig(w io.Writer, entries []ConfigEntry) {
	fmt.Fprintln(w, "Will run with the following config:")
	for _, entry := range entries {
		fmt.Fprintf(w, "\t%s: %s\n", entry.Key, entry.Value)
	}
	fmt.Fprintln(w)
}

// GenShowConfigurationTask generates the task that shows the
// configuration being used for the run.
func GenShowConfigurationTask(
	w io.Writer,
	configurationFile paths.Path,
	runID string,
	rootDirOutput paths.Path,
	rootDirRawNotebooks paths.Path,
) task.Task {
	entries := []ConfigEntry{
		{Key: "configuration_file", Value: configurationFile.String()},
		{Key: "run_id", Value: runID},
		{Key: "root_dir_output", Value: rootDirOutput.String()},
		{Key: "root_dir_raw_notebooks", Value: rootDirRawNotebooks.String()},
	}

	return task.Task{
		Basename: "Show configuration",
		Actions: []task.Action{
			task.NewFuncAction("show configuration", func(ctx context.Context) error {
				PrintConfig(w, entries)
				return nil
			}),
		},
	}
}

// RenderTaskList renders the tasks as a human-readable list, grouped
// the way they were generated.
func RenderTaskList(tasks []task.Task) string {
	if len(tasks) == 0 {
		return MutedStyle.Render("No tasks generated")
	}

	var sb strings.Builder
	lastBasename := ""
	for _, t := range tasks {
		if t.Basename != lastBasename {
			sb.WriteString(TitleStyle.Render(t.Basename) + "\n")
			lastBasename = t.Basename
		}
		if t.Name == "" {
			continue
		}
		line := "  " + t.Name
		if t.Doc != "" {
			line += "  " + MutedStyle.Render(t.Doc)
		}
		sb.WriteString(line + "\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

// RenderRunSummary renders the results of a run as a table plus a
// one-line tally.
func RenderRunSummary(results []runner.Result) string {
	if len(results) == 0 {
		return MutedStyle.Render("Nothing to do")
	}

	rows := pterm.TableData{{"Task", "Status", "Duration"}}
	counts := map[runner.Status]int{}
	var total time.Duration

	for _, res := range results {
		counts[res.Status]++
		total += res.Duration

		duration := ""
		if res.Status == runner.StatusRan {
			duration = res.Duration.Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			res.Task.ID(),
			StatusStyle(res.Status).Sprint(string(res.Status)),
			duration,
		})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
	if err != nil {
		// Srender only fails on malformed data; fall back to the tally.
		table = ""
	}

	tally := renderTally(counts, total)
	if table == "" {
		return tally
	}
	return table + "\n\n" + tally
}

func renderTally(counts map[runner.Status]int, total time.Duration) string {
	parts := []string{}
	appendCount := func(status runner.Status, style lipgloss.Style) {
		if n := counts[status]; n > 0 {
			parts = append(parts, style.Render(fmt.Sprintf("%d %s", n, status)))
		}
	}

	appendCount(runner.StatusRan, SuccessStyle)
	appendCount(runner.StatusUpToDate, MutedStyle)
	appendCount(runner.StatusDryRun, MutedStyle)
	appendCount(runner.StatusGroup, MutedStyle)
	appendCount(runner.StatusSkipped, ErrorStyle)
	appendCount(runner.StatusFailed, ErrorStyle)

	line := strings.Join(parts, ", ")
	if total > 0 {
		line += MutedStyle.Render(fmt.Sprintf(" in %s", total.Round(time.Millisecond)))
	}
	return line
}

// RenderErrors renders each failed result's error, one per line.
func RenderErrors(results []runner.Result) string {
	var sb strings.Builder
	for _, res := range results {
		if res.Err == nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("%s %s: %s\n",
			ErrorStyle.Render("✗"), res.Task.ID(), res.Err))
	}
	return strings.TrimRight(sb.String(), "\n")
}
