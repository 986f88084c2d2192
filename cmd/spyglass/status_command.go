package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show corpus and monitoring overview",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}

			videos, err := st.CountVideos(cmd.Context())
			if err != nil {
				return err
			}
			monitored, potential, err := st.MonitoringStats(cmd.Context())
			if err != nil {
				return err
			}
			dayAgo := time.Now().Add(-24 * time.Hour)
			alertTotal, alertUnread, err := st.CountAlerts(cmd.Context(), dayAgo)
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Videos", fmt.Sprintf("%d", videos)},
				{"Monitored", fmt.Sprintf("%d", monitored)},
				{"Potential", fmt.Sprintf("%d", potential)},
				{"Alerts (24h)", fmt.Sprintf("%d (%d unread)", alertTotal, alertUnread)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]column{col("Metric"), numCol("Value")}, rows))
			return nil
		},
	}
}
