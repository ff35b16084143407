package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"shoprag/internal/catalog"
	"shoprag/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive recommendation browser",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if err := a.recommender.Rebuild(ctx, a.items); err != nil {
			return fmt.Errorf("indexing failed: %w", err)
		}
		st := catalog.Summarize(a.items)
		summary := fmt.Sprintf("%d items in %d categories, %d reviews", st.Items, len(st.Categories), st.Reviews)

		m := tui.New(a, summary)
		_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
		return err
	})
}
