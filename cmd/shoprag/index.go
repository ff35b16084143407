package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the vector index from the catalog",
	Long: `Chunks every catalog item, embeds the chunks and replaces the index
contents in one step. If anything fails the previous index is kept.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.recommender.Rebuild(ctx, a.items); err != nil {
			return fmt.Errorf("indexing failed: %w", err)
		}
		st, err := a.recommender.Status(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Indexed %d items into %d records\n", len(a.items), st.Records)
		fmt.Fprintf(out, "  Embedder: %s\n", st.Embedder)
		fmt.Fprintf(out, "  Store:    %s\n", a.storeName)
		fmt.Fprintf(out, "  Built:    %s\n", st.RebuiltAt.Format(time.RFC3339))
		return nil
	})
}
