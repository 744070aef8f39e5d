// Package report turns a run result into log records, an exit code and an
// optional summary table.
package report

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jakopako/gymbot/internal/types"
	"github.com/olekukonko/tablewriter"
)

// Log writes the final status of the run to the default logger.
func Log(r *types.RunResult) {
	switch r.Status {
	case types.StatusReserved:
		slog.Info("reservation successful", slog.String("took", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()))
	case types.StatusAlreadyReserved:
		slog.Info("reservation already exists, nothing to do")
	default:
		slog.Error("reservation failed",
			slog.String("reason", r.Reason),
			slog.String("step", r.FailedStep))
	}
}

// ExitCode maps the run status to the process exit code. Both a fresh and
// a pre-existing reservation count as success for the scheduler.
func ExitCode(r *types.RunResult) int {
	switch r.Status {
	case types.StatusReserved, types.StatusAlreadyReserved:
		return 0
	default:
		return 1
	}
}

// PrintSummary renders a per-step table of the run.
func PrintSummary(w io.Writer, r *types.RunResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Step", "Outcome", "Duration"})

	var total time.Duration
	for _, st := range r.Steps {
		row := []string{st.Name, st.Outcome, st.Duration.Round(time.Millisecond).String()}
		if st.Outcome == "failed" {
			table.Rich(row, []tablewriter.Colors{
				{tablewriter.Normal, tablewriter.FgRedColor},
				{tablewriter.Normal, tablewriter.FgRedColor},
				{tablewriter.Normal, tablewriter.FgRedColor},
			})
		} else {
			table.Append(row)
		}
		total += st.Duration
	}
	footer := string(r.Status)
	if r.Reason != "" {
		footer = fmt.Sprintf("%s (%s)", r.Status, r.Reason)
	}
	table.SetFooter([]string{"total", footer, total.Round(time.Millisecond).String()})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.SetBorder(false)
	table.Render()
}
