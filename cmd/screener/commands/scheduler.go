package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openquant/screener/internal/scheduler"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run periodic refreshes on a cron schedule",
	Long: `Runs the refresh pipeline on the schedule configured via
REFRESH_SCHEDULE (with-seconds cron syntax, default weekday evenings).
Blocks until interrupted.`,
	RunE: runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.close()

	sched := scheduler.New(app.log)
	if err := sched.AddJob(scheduler.NewRefreshJob(app.orchestrator, app.cfg.Refresh.Schedule)); err != nil {
		return err
	}

	sched.Start()
	app.log.WithField("schedule", app.cfg.Refresh.Schedule).Info("Scheduler started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	app.log.WithField("signal", sig.String()).Info("Shutdown signal received")
	sched.Stop()

	return nil
}
