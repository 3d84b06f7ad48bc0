package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openquant/screener/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored data set status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.close()

	ctx := context.Background()

	indicatorRepo := store.NewIndicatorRepository(app.db.Pool)
	scoreRepo := store.NewScoreRepository(app.db.Pool)

	rows, err := indicatorRepo.GetAllRows(ctx)
	if err != nil {
		return err
	}
	quality, err := indicatorRepo.GetAllQuality(ctx)
	if err != nil {
		return err
	}
	ranking, err := scoreRepo.GetRanking(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Indicator rows:  %d\n", len(rows))
	fmt.Printf("Quality scores:  %d\n", len(quality))
	fmt.Printf("Ranked entries:  %d\n", len(ranking))
	if len(ranking) > 0 {
		fmt.Printf("Last screen at:  %s\n", ranking[0].ScoredAt.Format("2006-01-02 15:04:05 MST"))
	}

	return nil
}
