package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fyle-integrations/business-central-worker/internal/config"
	"github.com/fyle-integrations/business-central-worker/internal/service"
)

var logger = logrus.StandardLogger()

// maxConcurrentWorkspaceRuns caps how many scheduled workspaces run in one
// polling cycle at the same time.
const maxConcurrentWorkspaceRuns = 5

// ScheduleStore lists workspaces whose auto-export schedule is due and
// advances their next run marker.
type ScheduleStore interface {
	ListScheduledWorkspaceIDs(ctx context.Context, now time.Time) ([]string, error)
	GetNextRunInterval(ctx context.Context, workspaceID string) (int, error)
	StampNextRun(ctx context.Context, workspaceID string, nextRunAt time.Time) error
}

type Watcher struct {
	cfg           *config.Config
	scheduleStore ScheduleStore
	runner        *service.ImportExportRunner
}

func New(
	cfg *config.Config,
	scheduleStore ScheduleStore,
	runner *service.ImportExportRunner,
) *Watcher {
	return &Watcher{
		cfg:           cfg,
		scheduleStore: scheduleStore,
		runner:        runner,
	}
}

// Start begins polling for workspaces whose schedule is due
func (w *Watcher) Start(ctx context.Context) error {
	logger.Info("Starting watcher for scheduled workspace exports...")

	// Process any schedules already due from previous runs
	if err := w.processDueWorkspaces(ctx); err != nil {
		logger.WithError(err).Warn("failed to process due workspaces on startup")
	}

	// Start polling loop
	ticker := time.NewTicker(time.Duration(w.cfg.PollInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Watcher shutting down...")
			return ctx.Err()
		case <-ticker.C:
			if err := w.processDueWorkspaces(ctx); err != nil {
				logger.WithError(err).Error("failed to process due workspaces")
			}
		}
	}
}

// processDueWorkspaces runs the import-export chain for every workspace whose
// schedule is due. The next run marker is stamped before the chain starts so a
// long-running workspace is not picked up again by the next polling cycle.
func (w *Watcher) processDueWorkspaces(ctx context.Context) error {
	now := time.Now().UTC()
	workspaceIDs, err := w.scheduleStore.ListScheduledWorkspaceIDs(ctx, now)
	if err != nil {
		return err
	}
	if len(workspaceIDs) == 0 {
		return nil
	}

	logger.WithField("count", len(workspaceIDs)).Info("found scheduled workspaces due for export")

	var wg sync.WaitGroup
	slots := make(chan struct{}, maxConcurrentWorkspaceRuns)
	for _, workspaceID := range workspaceIDs {
		if err := w.stampNextRun(ctx, workspaceID, now); err != nil {
			logger.WithField("workspace_id", workspaceID).WithError(err).Error("failed to advance schedule, skipping workspace this cycle")
			continue
		}

		wg.Add(1)
		slots <- struct{}{}
		go func(workspaceID string) {
			defer wg.Done()
			defer func() { <-slots }()
			if err := w.runner.Run(ctx, workspaceID, true); err != nil {
				logger.WithField("workspace_id", workspaceID).WithError(err).Error("scheduled import-export run failed")
			}
		}(workspaceID)
	}
	wg.Wait()

	return nil
}

func (w *Watcher) stampNextRun(ctx context.Context, workspaceID string, now time.Time) error {
	intervalHours, err := w.scheduleStore.GetNextRunInterval(ctx, workspaceID)
	if err != nil {
		return err
	}
	nextRunAt := now.Add(time.Duration(intervalHours) * time.Hour)
	return w.scheduleStore.StampNextRun(ctx, workspaceID, nextRunAt)
}
