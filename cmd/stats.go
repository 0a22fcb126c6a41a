package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bountylab/reviewd/internal/output"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show queue stats and backend health",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := getDispatcher()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		health := d.Health(ctx)
		if health.Healthy {
			ui.Success("Queue backend healthy")
		} else {
			ui.Error("Queue backend unhealthy: %s", health.Details)
		}

		stats, err := d.Stats(ctx)
		if err != nil {
			return fmt.Errorf("queue stats: %w", err)
		}

		table := ui.Table([]string{"State", "Jobs"})
		table.Append([]string{"Waiting", fmt.Sprintf("%d", stats.Waiting)})
		table.Append([]string{"Active", fmt.Sprintf("%d", stats.Active)})
		table.Append([]string{output.Green("Completed"), fmt.Sprintf("%d", stats.Completed)})
		table.Append([]string{output.Red("Failed"), fmt.Sprintf("%d", stats.Failed)})
		return table.Render()
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
