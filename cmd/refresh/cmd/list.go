package cmd

import (
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"canales-taurinos/pkg/models"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the configured sources and when each last ran on schedule.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(configPath)
		if err != nil {
			return err
		}
		defer env.close()

		var statuses []models.SourceStatus
		for _, h := range env.registry.All() {
			statuses = append(statuses, h.Status(cmd.Context()))
		}
		renderStatus(cmd.OutOrStdout(), statuses)
		return nil
	},
}

func renderStatus(w io.Writer, statuses []models.SourceStatus) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Source", "Engine", "TTL", "Scheduled", "Last scheduled run"})

	for _, st := range statuses {
		last := "never"
		if st.LastScheduledRun != nil {
			last = humanize.Time(*st.LastScheduledRun)
		}
		if !st.Scheduled {
			last = "-"
		}
		t.AppendRow(table.Row{st.Source, st.Engine, st.TTL.String(), st.Scheduled, last})
	}
	t.Render()
}
