package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAlertsCommand(ctx *commandContext) *cobra.Command {
	var all bool
	var markRead int64
	var limit int

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List surfaced alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}

			if markRead > 0 {
				if err := st.MarkAlertRead(cmd.Context(), markRead); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Alert %d marked read\n", markRead)
				return nil
			}

			alerts, err := st.ListAlerts(cmd.Context(), !all, limit)
			if err != nil {
				return err
			}
			if len(alerts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No alerts.")
				return nil
			}

			rows := make([][]string, 0, len(alerts))
			for _, a := range alerts {
				read := ""
				if a.IsRead {
					read = "read"
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", a.ID),
					a.CreatedAt.Local().Format("01-02 15:04"),
					string(a.Level),
					string(a.Kind),
					a.Message,
					read,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]column{numCol("ID"), col("When"), col("Level"), col("Kind"), col("Message"), col("")},
				rows))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include alerts already marked read")
	cmd.Flags().Int64Var(&markRead, "mark-read", 0, "Mark the given alert id read and exit")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Number of rows")
	return cmd
}
