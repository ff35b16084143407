package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shoprag/internal/catalog"
)

var (
	statsJSON bool

	listSort      string
	listCategory  string
	listMinPrice  float64
	listMaxPrice  float64
	listMinRating float64
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the catalog",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog items",
	Long:  `Lists catalog items, optionally filtered and sorted by rating, price or title.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statsCmd)

	listCmd.Flags().StringVar(&listSort, "sort", string(catalog.SortByRating), "sort key: rating, price, price-desc or title")
	listCmd.Flags().StringVar(&listCategory, "category", "", "comma separated categories to keep")
	listCmd.Flags().Float64Var(&listMinPrice, "min-price", 0, "minimum price")
	listCmd.Flags().Float64Var(&listMaxPrice, "max-price", 0, "maximum price (0 for no limit)")
	listCmd.Flags().Float64Var(&listMinRating, "min-rating", 0, "minimum item rating")
	rootCmd.AddCommand(listCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	items, err := catalog.Load(appConfig.Catalog.Dir)
	if err != nil {
		return err
	}
	st := catalog.Summarize(items)
	out := cmd.OutOrStdout()
	if statsJSON {
		return writeJSON(out, st)
	}

	fmt.Fprintf(out, "Items:       %d\n", st.Items)
	fmt.Fprintf(out, "Reviews:     %d\n", st.Reviews)
	if st.Items == 0 {
		return nil
	}
	fmt.Fprintf(out, "Price range: %s - %s\n", catalog.FormatPrice(st.MinPrice), catalog.FormatPrice(st.MaxPrice))
	fmt.Fprintf(out, "Mean rating: %.2f\n", st.MeanRating)
	fmt.Fprintln(out, "Categories:")
	for _, c := range st.Categories {
		fmt.Fprintf(out, "  %-20s %d\n", c.Name, c.Count)
	}
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	items, err := catalog.Load(appConfig.Catalog.Dir)
	if err != nil {
		return err
	}
	filter := catalog.Filter{
		Categories: splitList(listCategory),
		MinPrice:   listMinPrice,
		MaxPrice:   listMaxPrice,
		MinRating:  listMinRating,
	}
	items, err = catalog.Sort(filter.Apply(items), catalog.SortKey(listSort))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, "No items match.")
		return nil
	}
	for _, it := range items {
		fmt.Fprintf(out, "%-24s %-40s %-14s %12s  %.1f/5\n", it.ID, it.Title, it.Category, catalog.FormatPrice(it.Price), it.Rating)
	}
	return nil
}
