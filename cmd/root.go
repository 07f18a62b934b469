package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/address-geocoder/internal/config"
)

var (
	cfg *config.Config

	rootLogLevel  string
	rootLogFormat string
)

var rootCmd = &cobra.Command{
	Use:   "address-geocoder",
	Short: "Batch address geocoding with a persistent lookup cache",
	Long: `Normalizes free-text addresses, resolves them to coordinates through a
rate-limited lookup service, caches every outcome, and writes a scored
dataset with a run summary.

Settings come from .env, config.yaml in the working directory and GEOCODE_*
environment variables, later sources winning (GEOCODE_CACHE_DRIVER=sqlite,
GEOCODE_GEOCODE_PROVIDER=census). The lookup cache is shared by
every subcommand, so a second run over the same input makes no calls.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if rootLogLevel != "" {
			c.Log.Level = rootLogLevel
		}
		if rootLogFormat != "" {
			c.Log.Format = rootLogFormat
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		zap.L().Debug("config loaded",
			zap.String("command", cmd.Name()),
			zap.String("provider", cfg.Geocode.Provider),
			zap.String("cache_driver", cfg.Cache.Driver),
			zap.String("cache_path", cfg.Cache.Path),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&rootLogFormat, "log-format", "", "log format override (console, json)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
