package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var screenTop int

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Print the current combined ranking",
	RunE:  runScreen,
}

func init() {
	screenCmd.Flags().IntVar(&screenTop, "top", 0, "limit output to the top N entries (0 = all)")
	rootCmd.AddCommand(screenCmd)
}

func runScreen(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.close()

	ranking, err := app.query.Ranking(context.Background())
	if err != nil {
		return err
	}
	if len(ranking) == 0 {
		fmt.Println("No screen results yet. Run `screener refresh` first.")
		return nil
	}
	if screenTop > 0 && len(ranking) > screenTop {
		ranking = ranking[:screenTop]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSYMBOL\tNAME\tCOMBINED\tTECH\tFUND\tQUALITY\tW%R21\tRSI14\tCLOSE")
	for _, s := range ranking {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.1f\t%.1f\t%.1f\t%d/10\t%.1f\t%.1f\t%.2f\n",
			s.Rank, s.Symbol, s.EntityName,
			s.Combined, s.Technical, s.Fundamental,
			s.QualityScore, s.WilliamsR21, s.RSI14, s.ClosePrice)
	}
	return w.Flush()
}
