package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"spyglass/internal/centrality"
	"spyglass/internal/logging"
	"spyglass/internal/pattern"
	"spyglass/internal/store"
)

func newAnalyticsCommand(ctx *commandContext) *cobra.Command {
	analyticsCmd := &cobra.Command{
		Use:   "analytics",
		Short: "Corpus-wide centrality and pattern analytics",
	}
	analyticsCmd.AddCommand(newMarketCommand(ctx))
	analyticsCmd.AddCommand(newOpportunitiesCommand(ctx))
	analyticsCmd.AddCommand(newPatternsCommand(ctx))
	return analyticsCmd
}

func newMarketCommand(ctx *commandContext) *cobra.Command {
	var topN int

	cmd := &cobra.Command{
		Use:   "market",
		Short: "Show top topics, channels, and title words by centrality",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := runAnalysis(ctx, cmd, topN)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Corpus: %d videos, %d topics, %d channels, %d words\n\n",
				report.VideoCount, report.Topics.Order, report.Channels.Order, report.Words.Order)

			printRanking(cmd, "Topics by betweenness", report.Topics.TopBetweenness)
			printRanking(cmd, "Channels by betweenness", report.Channels.TopBetweenness)
			printRanking(cmd, "Title words by betweenness", report.Words.TopBetweenness)
			return nil
		},
	}
	cmd.Flags().IntVarP(&topN, "top", "n", 10, "List length")
	return cmd
}

func newOpportunitiesCommand(ctx *commandContext) *cobra.Command {
	var topN int

	cmd := &cobra.Command{
		Use:   "opportunities",
		Short: "Show arbitrage lists: bridging but under-spread content",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := runAnalysis(ctx, cmd, topN)
			if err != nil {
				return err
			}
			printRanking(cmd, "Topic opportunities", report.TopicArbitrage)
			printRanking(cmd, "Channel opportunities", report.ChannelArbitrage)
			printRanking(cmd, "Word opportunities", report.WordArbitrage)

			if len(report.VideoArbitrage) > 0 {
				rows := make([][]string, 0, len(report.VideoArbitrage))
				for _, v := range report.VideoArbitrage {
					rows = append(rows, []string{
						v.Title, v.Topic,
						countCell(v.ViewCount),
						rateCell(v.Interestingness),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Video opportunities")
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]column{col("Title"), col("Topic"), numCol("Views"), numCol("Interest")},
					rows))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&topN, "top", "n", 10, "List length")
	return cmd
}

func newPatternsCommand(ctx *commandContext) *cobra.Command {
	var sample int

	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Classify stored videos into content archetypes",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.ensureStore()
			if err != nil {
				return err
			}

			classifier := pattern.New(st, logging.NewNop())
			known, err := classifier.ClassifyAll(cmd.Context(), store.VideoFilter{})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Classified %d videos into known archetypes\n\n", known)

			videos, err := st.FindVideos(cmd.Context(), store.VideoFilter{})
			if err != nil {
				return err
			}
			representatives := pattern.AnalyzeVideos(videos, sample)
			if len(representatives) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(representatives))
			for _, rep := range representatives {
				rows = append(rows, []string{
					rep.Video.Title,
					string(rep.Pattern),
					fmt.Sprintf("%.2f", rep.Confidence),
					countCell(rep.Video.ViewCount),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]column{col("Title"), col("Archetype"), numCol("Confidence"), numCol("Views")},
				rows))
			return nil
		},
	}
	cmd.Flags().IntVarP(&sample, "sample", "m", 9, "Representative sample size")
	return cmd
}

func runAnalysis(ctx *commandContext, cmd *cobra.Command, topN int) (*centrality.Report, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	st, err := ctx.ensureStore()
	if err != nil {
		return nil, err
	}
	analyzer := centrality.New(cfg, st, logging.NewNop())
	return analyzer.Analyze(cmd.Context(), topN)
}

func printRanking(cmd *cobra.Command, title string, scores []centrality.NodeScore) {
	if len(scores) == 0 {
		return
	}
	rows := make([][]string, 0, len(scores))
	for _, s := range scores {
		rows = append(rows, []string{
			s.Node,
			fmt.Sprintf("%.4f", s.Betweenness),
			fmt.Sprintf("%.4f", s.Degree),
			rateCell(s.Interestingness),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), title)
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]column{col("Node"), numCol("Betweenness"), numCol("Degree"), numCol("Interest")},
		rows))
}
