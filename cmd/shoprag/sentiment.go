package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"shoprag/internal/domain"
)

var sentimentJSON bool

var sentimentCmd = &cobra.Command{
	Use:   "sentiment",
	Short: "Show the sentiment distribution of catalog reviews",
	Args:  cobra.NoArgs,
	RunE:  runSentiment,
}

func init() {
	sentimentCmd.Flags().BoolVar(&sentimentJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(sentimentCmd)
}

func runSentiment(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(_ context.Context, a *app) error {
		dist := a.recommender.SentimentDistribution(a.items)
		out := cmd.OutOrStdout()
		if sentimentJSON {
			return writeJSON(out, dist)
		}

		total := 0
		for _, n := range dist {
			total += n
		}
		if total == 0 {
			fmt.Fprintln(out, "No reviews in catalog.")
			return nil
		}
		fmt.Fprintf(out, "Reviews: %d\n", total)
		for _, s := range domain.Sentiments {
			fmt.Fprintf(out, "  %-8s %4d  %5.1f%%\n", s, dist[s], 100*float64(dist[s])/float64(total))
		}
		return nil
	})
}
