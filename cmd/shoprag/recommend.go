package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"shoprag/internal/catalog"
	"shoprag/internal/domain"
)

var (
	recommendPrefs     string
	recommendLimit     int
	recommendCategory  string
	recommendMinPrice  float64
	recommendMaxPrice  float64
	recommendMinRating float64
	recommendJSON      bool
	recommendExplain   bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend [query]",
	Short: "Recommend catalog items for a query",
	Long: `Ranks catalog items by their best matching chunk and explains the top
results. Filters narrow the candidate items after ranking.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRecommend,
}

func init() {
	recommendCmd.Flags().StringVarP(&recommendPrefs, "prefs", "p", "", "free-text preferences appended to the query")
	recommendCmd.Flags().IntVarP(&recommendLimit, "limit", "n", 0, "maximum number of results (default from config)")
	recommendCmd.Flags().StringVar(&recommendCategory, "category", "", "comma separated categories to keep")
	recommendCmd.Flags().Float64Var(&recommendMinPrice, "min-price", 0, "minimum price")
	recommendCmd.Flags().Float64Var(&recommendMaxPrice, "max-price", 0, "maximum price (0 for no limit)")
	recommendCmd.Flags().Float64Var(&recommendMinRating, "min-rating", 0, "minimum item rating")
	recommendCmd.Flags().BoolVar(&recommendJSON, "json", false, "output results as JSON")
	recommendCmd.Flags().BoolVar(&recommendExplain, "explain", true, "include a narrative explanation")
	rootCmd.AddCommand(recommendCmd)
}

// recommendOutput is the JSON shape of the recommend command.
type recommendOutput struct {
	Query           string                  `json:"query"`
	Preferences     string                  `json:"preferences,omitempty"`
	Recommendations []domain.Recommendation `json:"recommendations"`
	Explanation     string                  `json:"explanation,omitempty"`
}

func runRecommend(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	limit := recommendLimit
	if limit <= 0 {
		limit = appConfig.Retrieval.MaxResults
	}
	filter := catalog.Filter{
		Categories: splitList(recommendCategory),
		MinPrice:   recommendMinPrice,
		MaxPrice:   recommendMaxPrice,
		MinRating:  recommendMinRating,
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.recommender.Rebuild(ctx, a.items); err != nil {
			return fmt.Errorf("indexing failed: %w", err)
		}

		candidates := filter.Apply(a.items)
		fetch := limit
		if len(candidates) < len(a.items) {
			// filtered items drop out after ranking, so rank everything
			fetch = len(a.items)
		}
		recs := a.recommender.Recommend(ctx, query, candidates, recommendPrefs, fetch)
		if len(recs) > limit {
			recs = recs[:limit]
		}

		res := recommendOutput{Query: query, Preferences: recommendPrefs, Recommendations: recs}
		if recommendExplain {
			res.Explanation = a.Explain(ctx, query, recs, recommendPrefs)
		}
		if recommendJSON {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		printRecommendations(cmd.OutOrStdout(), res)
		return nil
	})
}

func printRecommendations(out io.Writer, res recommendOutput) {
	if len(res.Recommendations) == 0 {
		fmt.Fprintln(out, "No recommendations found.")
		return
	}
	fmt.Fprintf(out, "Recommendations for %q:\n\n", res.Query)
	for i, rec := range res.Recommendations {
		it := rec.Item
		fmt.Fprintf(out, "  [%d] %s (%.2f)\n", i+1, it.Title, rec.Score)
		fmt.Fprintf(out, "      %s | %s | %.1f/5\n", it.Category, catalog.FormatPrice(it.Price), it.Rating)
	}
	if res.Explanation != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, res.Explanation)
	}
}

func writeJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
