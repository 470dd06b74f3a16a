package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/event-sync/internal/domain"
)

func newSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle and print the report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			orch, err := a.orchestrator()
			if err != nil {
				return err
			}

			report, runErr := orch.Run(cmd.Context())
			if report != nil {
				renderReport(cmd.OutOrStdout(), report)
			}
			if runErr != nil {
				return fmt.Errorf("sync cycle: %w", runErr)
			}
			return nil
		},
	}
}

// renderReport prints one row per city plus per-source counts and totals.
func renderReport(w io.Writer, report *domain.SyncReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Sync cycle " + report.CycleID)

	t.AppendHeader(table.Row{"City", "Fetched", "Inserted", "Updated", "Skipped", "Failed", "Sources", "Error"})
	for i := range report.Cities {
		c := &report.Cities[i]
		t.AppendRow(table.Row{
			c.City, c.Fetched, c.Inserted, c.Updated, c.Skipped, c.Failed, sourceCounts(c.Sources), c.Error,
		})
	}

	saved, skipped := report.Totals()
	t.AppendFooter(table.Row{
		"Total", "", "", fmt.Sprintf("saved %d", saved), fmt.Sprintf("skipped %d", skipped), "", "", report.Error,
	})
	t.Render()

	fmt.Fprintf(w, "Duration: %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
}

func sourceCounts(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	slices.Sort(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, counts[name])
	}
	return strings.Join(parts, " ")
}
