package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run one full refresh and exit",
	Long: `Resolves the stock universe, fetches stale price and fundamentals
data, recomputes indicators and quality scores, and rebuilds the
combined ranking. Blocks until the run reaches a terminal state.`,
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.close()

	snap, err := app.orchestrator.RunBlocking(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("State:     %s\n", snap.State)
	fmt.Printf("Fetched:   %d/%d\n", snap.Progress.Fetched, snap.Progress.Total)
	fmt.Printf("Processed: %d/%d\n", snap.Progress.Processed, snap.Progress.Total)
	if len(snap.Progress.Skipped) > 0 {
		fmt.Printf("Skipped:   %v\n", snap.Progress.Skipped)
	}
	if snap.LastError != "" {
		return fmt.Errorf("refresh failed: %s", snap.LastError)
	}

	return nil
}
