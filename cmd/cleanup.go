package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/event-sync/internal/maintenance"
)

func newCleanupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Re-check approved events: flag re-releases and fix categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			runner := maintenance.NewRunner(a.events, a.references, a.heuristics, a.log)
			report, err := runner.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("maintenance pass: %w", err)
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Checked", "Flagged for review", "Recategorized", "Failed"})
			t.AppendRow(table.Row{report.Checked, report.Flagged, report.Recategorized, report.Failed})
			t.Render()
			return nil
		},
	}
}
