package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"shoprag/internal/config"
	"shoprag/internal/logging"
)

var (
	cfgPath string
	verbose bool

	appConfig *config.AppConfig
	logger    *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "shoprag",
	Short: "Product recommendations over a local catalog",
	Long: `shoprag indexes a product catalog (descriptions, specifications and
customer reviews grouped by sentiment) and recommends items for free-text
queries, with a short explanation of why they match.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file (default ./config.yaml or ~/.config/shoprag/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	var err error
	path := cfgPath
	if path == "" {
		appConfig, path, err = config.LoadDefault()
	} else {
		appConfig, err = config.Load(path)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level, err := logging.ParseLevel(appConfig.Log.Level)
	if err != nil {
		return err
	}
	if verbose {
		level = slog.LevelDebug
	}
	logger = logging.New(cmd.ErrOrStderr(), level)
	slog.SetDefault(logger)
	logger.Debug("loaded config", "path", path)
	return nil
}

// withApp builds the components, runs fn and releases them.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, appConfig, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing resources", "error", err)
		}
	}()
	return fn(ctx, a)
}
