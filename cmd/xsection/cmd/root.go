package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/KaxaNuk/Data-Curator-Use-Cases/config"
)

var (
	cfgFile  string
	logLevel string

	// cfg is loaded before every command runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "xsection",
	Short: "Cross-sectional feature tables from per-ticker market data",
	Long: `xsection turns curated per-ticker market data files into one table per
feature, with a row per date and a column per ticker.

It provides tools for:
  - Deriving moving-average, trend and liquidity features per ticker
  - Assembling cross-sections over a date range
  - Building an equal-weight trend-following portfolio
  - Journaling runs to CSV, XLSX and SQLite
  - Serving recorded runs over HTTP

Settings come from defaults, then an optional config file, then XSECTION_*
environment variables, then command-line flags.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
}

func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	cfg = c

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()})))
	return nil
}
