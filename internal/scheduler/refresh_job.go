package scheduler

import (
	"context"
	"fmt"

	"github.com/openquant/screener/internal/refresh"
)

// RefreshJob runs the full screen refresh on a cron schedule.
type RefreshJob struct {
	orchestrator *refresh.Orchestrator
	schedule     string
}

func NewRefreshJob(o *refresh.Orchestrator, schedule string) *RefreshJob {
	return &RefreshJob{
		orchestrator: o,
		schedule:     schedule,
	}
}

func (j *RefreshJob) Name() string { return "screen-refresh" }

func (j *RefreshJob) Schedule() string { return j.schedule }

func (j *RefreshJob) Run(ctx context.Context) error {
	snap, err := j.orchestrator.RunBlocking(ctx)
	if err != nil {
		return err
	}
	if snap.State == refresh.StateFailed {
		return fmt.Errorf("refresh failed: %s", snap.LastError)
	}
	return nil
}
