package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"spyglass/internal/store"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Manage watched channels",
	}
	watchCmd.AddCommand(newWatchAddCommand(ctx))
	watchCmd.AddCommand(newWatchListCommand(ctx))
	watchCmd.AddCommand(newWatchRemoveCommand(ctx))
	return watchCmd
}

func newWatchAddCommand(ctx *commandContext) *cobra.Command {
	var priority string
	var topics []string

	cmd := &cobra.Command{
		Use:   "add <channel-id>",
		Short: "Start watching a channel for new uploads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}

			p := store.Priority(strings.ToLower(priority))
			switch p {
			case store.PriorityCritical, store.PriorityHigh, store.PriorityNormal, store.PriorityLow:
			case "":
				p = store.PriorityNormal
			default:
				return fmt.Errorf("unknown priority %q", priority)
			}

			watch := &store.WatchedChannel{
				ChannelID:        args[0],
				Priority:         p,
				InterestedTopics: topics,
				IsActive:         true,
			}
			if err := st.WatchChannel(cmd.Context(), watch); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s at priority %s\n", args[0], p)
			return nil
		},
	}
	cmd.Flags().StringVarP(&priority, "priority", "p", "normal", "Polling priority: critical, high, normal, low")
	cmd.Flags().StringSliceVarP(&topics, "topics", "t", nil, "Topics that raise a topic_match alert when seen in titles")
	return cmd
}

func newWatchListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active channel watches",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			watches, err := st.ActiveWatches(cmd.Context())
			if err != nil {
				return err
			}
			if len(watches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No channels watched.")
				return nil
			}

			rows := make([][]string, 0, len(watches))
			for _, w := range watches {
				lastChecked := "never"
				if w.LastCheckedAt != nil {
					lastChecked = w.LastCheckedAt.Local().Format("01-02 15:04")
				}
				rows = append(rows, []string{
					w.ChannelID,
					string(w.Priority),
					fmt.Sprintf("%dm", w.CheckIntervalMin),
					strings.Join(w.InterestedTopics, ", "),
					lastChecked,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]column{col("Channel"), col("Priority"), numCol("Interval"), col("Topics"), col("Last checked")},
				rows))
			return nil
		},
	}
}

func newWatchRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <channel-id>",
		Short: "Stop watching a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			if err := st.UnwatchChannel(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stopped watching %s\n", args[0])
			return nil
		},
	}
}
