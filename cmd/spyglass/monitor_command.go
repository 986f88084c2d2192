package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"spyglass/internal/growth"
	"spyglass/internal/logging"
	"spyglass/internal/report"
)

func newMonitorCommand(ctx *commandContext) *cobra.Command {
	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Growth monitoring",
	}
	monitorCmd.AddCommand(newSnapshotCommand(ctx))
	monitorCmd.AddCommand(newTrendsCommand(ctx))
	monitorCmd.AddCommand(newReportCommand(ctx))
	return monitorCmd
}

func newSnapshotCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Sweep videos due for a growth check",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			client, err := ctx.ensureClient()
			if err != nil {
				return err
			}

			monitor := growth.New(cfg, st, client, ctx.ensurePool(), logging.NewNop())
			stats, err := monitor.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			rows := [][]string{
				{"Due", fmt.Sprintf("%d", stats.Due)},
				{"Succeeded", fmt.Sprintf("%d", stats.Succeeded)},
				{"Failed", fmt.Sprintf("%d", stats.Failed)},
				{"Viral", fmt.Sprintf("%d", stats.Viral)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]column{col("Sweep"), numCol("Count")}, rows))

			if stats.Failed > 0 && stats.Succeeded > 0 {
				return errPartialFailure
			}
			if stats.Failed > 0 {
				return fmt.Errorf("all %d checks failed", stats.Failed)
			}
			return nil
		},
	}
}

func newTrendsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Show the fastest-growing monitored videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			top, err := st.TopMonitored(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(top) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No videos under monitoring yet.")
				return nil
			}

			rows := make([][]string, 0, len(top))
			for _, m := range top {
				title := m.VideoID
				if v, err := st.GetVideo(cmd.Context(), m.VideoID); err == nil {
					title = v.Title
				}
				rows = append(rows, []string{
					title,
					string(m.Tier),
					fmt.Sprintf("%.2f", m.LastGrowthRate),
					fmt.Sprintf("%.2f", m.Acceleration),
					fmt.Sprintf("%.1f", m.ViralScore),
					m.NextCheckAt.Local().Format("01-02 15:04"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]column{col("Title"), col("Tier"), numCol("Rate"), numCol("Accel"), numCol("Score"), col("Next check")},
				rows))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of rows")
	return cmd
}

func newReportCommand(ctx *commandContext) *cobra.Command {
	var weekly bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a digest file for the current period",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}

			generator := report.New(cfg, st, logging.NewNop())
			var path string
			if weekly {
				path, err = generator.WeeklyReport(cmd.Context(), time.Now())
			} else {
				path, err = generator.DailyDigest(cmd.Context(), time.Now())
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&weekly, "weekly", "w", false, "Write the weekly report instead of the daily digest")
	return cmd
}
