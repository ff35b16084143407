package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"shoprag/internal/catalog"
)

var compareCmd = &cobra.Command{
	Use:   "compare [item-id] [item-id]",
	Short: "Compare two catalog items",
	Args:  cobra.ExactArgs(2),
	RunE:  runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		first, ok := catalog.Find(a.items, args[0])
		if !ok {
			return fmt.Errorf("unknown item %q", args[0])
		}
		second, ok := catalog.Find(a.items, args[1])
		if !ok {
			return fmt.Errorf("unknown item %q", args[1])
		}
		fmt.Fprintln(cmd.OutOrStdout(), a.narrator.Compare(ctx, first, second))
		return nil
	})
}
