package commands

import (
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "screener",
	Short: "Oversold quality stock screener",
	Long: `Stock screener backend: fetches S&P 500 price history and SEC
fundamentals, computes technical indicators and quality scores, and
ranks deeply oversold quality companies.

Usage:
  go run ./cmd/screener [command]

Examples:
  go run ./cmd/screener api
  go run ./cmd/screener refresh
  go run ./cmd/screener screen --top 20
  go run ./cmd/screener scheduler`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
