package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"spyglass/internal/acquire"
	"spyglass/internal/logging"
)

func newResearchCommand(ctx *commandContext) *cobra.Command {
	researchCmd := &cobra.Command{
		Use:   "research",
		Short: "Keyword research and acquisition",
	}
	researchCmd.AddCommand(newCollectCommand(ctx))
	return researchCmd
}

func newCollectCommand(ctx *commandContext) *cobra.Command {
	var theme string

	cmd := &cobra.Command{
		Use:   "collect <keyword> [keyword...]",
		Short: "Run a two-phase acquisition sweep over keywords",
		Args:  cobra.MinimumNArgs(1),
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

			engine := acquire.New(cfg, st, client, ctx.ensurePool(), logging.NewNop())
			result, err := engine.Collect(cmd.Context(), theme, args)
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Found", fmt.Sprintf("%d", result.Found)},
				{"Inserted", fmt.Sprintf("%d", result.Inserted)},
				{"Updated", fmt.Sprintf("%d", result.Updated)},
				{"Skipped", fmt.Sprintf("%d", result.Skipped)},
				{"Details fetched", fmt.Sprintf("%d", result.DetailFetched)},
				{"Details failed", fmt.Sprintf("%d", result.DetailFailed)},
				{"Failed keywords", fmt.Sprintf("%d", len(result.Failed))},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]column{col("Sweep"), numCol(result.SweepID)}, rows))

			if result.Partial() {
				return errPartialFailure
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&theme, "theme", "t", "", "Theme label stamped on collected videos")
	return cmd
}
