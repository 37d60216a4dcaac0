package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/merchant/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "merchant",
	Short: "A portfolio simulator with lot-level P&L accounting",
	Long: `Merchant simulates a trading portfolio against a market clock.

It provides tools for:
  - Running strategies over CSV or inline price data
  - LIFO lot matching with realized P&L per closed position
  - Benchmarks (return, drawdown, volatility, sharpe, win rate)
  - Trade, closed-position and value journals in CSV or SQLite

Complete documentation is available at https://github.com/rustyeddy/merchant`,
	SilenceUsage: true,
}

var (
	logLevel string
	logDev   bool
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config")
	rootCmd.PersistentFlags().BoolVar(&logDev, "dev", false, "human-readable development logging")
}

// newLogger builds the command logger. Flags win over the config values.
func newLogger(level string, dev bool) (*zap.SugaredLogger, error) {
	if logLevel != "" {
		level = logLevel
	}
	return logger.New(level, dev || logDev)
}
