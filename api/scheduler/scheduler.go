package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/linesmerrill/change-order-api/api/metrics"
	"github.com/linesmerrill/change-order-api/api/registry"
	"github.com/linesmerrill/change-order-api/databases"
	"github.com/linesmerrill/change-order-api/models"
)

// jobTimeout bounds a single run of the stats job
const jobTimeout = 30 * time.Second

var allStatuses = []models.Status{
	models.StatusPending,
	models.StatusApprovedByProjectManager,
	models.StatusApprovedByRemodelManager,
	models.StatusFullyApproved,
}

// Scheduler handles periodic background jobs
type Scheduler struct {
	cron     *cron.Cron
	Registry *registry.Registry
	DB       databases.ChangeOrderDatabase
}

// NewScheduler creates a new scheduler instance
func NewScheduler(reg *registry.Registry, db databases.ChangeOrderDatabase) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		Registry: reg,
		DB:       db,
	}
}

// Start registers the stats job on schedule and begins running it
func (s *Scheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.ReportStats); err != nil {
		zap.S().Errorw("failed to register session stats job", "schedule", schedule, "error", err)
		return err
	}

	s.cron.Start()
	zap.S().Infow("scheduler started", "schedule", schedule)
	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("scheduler stopped")
}

// ReportStats reconciles the live session gauge with the registry and refreshes
// the per-status order counts
func (s *Scheduler) ReportStats() {
	live := s.Registry.Len()
	metrics.SessionsActive.Set(float64(live))

	if s.DB == nil {
		zap.S().Infow("session stats", "live", live)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	counts := make(map[models.Status]int, len(allStatuses))
	for _, status := range allStatuses {
		orders, err := s.DB.FindByStatuses(ctx, status)
		if err != nil {
			zap.S().Errorw("failed to count change orders", "status", status, "error", err)
			return
		}
		counts[status] = len(orders)
		metrics.ChangeOrdersByStatus.WithLabelValues(string(status)).Set(float64(len(orders)))
	}

	zap.S().Infow("session stats",
		"live", live,
		"pending", counts[models.StatusPending],
		"fullyApproved", counts[models.StatusFullyApproved])
}
