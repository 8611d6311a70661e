package scheduler_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/change-order-api/api/metrics"
	"github.com/linesmerrill/change-order-api/api/registry"
	"github.com/linesmerrill/change-order-api/api/scheduler"
	"github.com/linesmerrill/change-order-api/databases/memorydb"
	"github.com/linesmerrill/change-order-api/models"
)

type nopHandle struct{}

func (nopHandle) Deliver(models.Event) bool { return true }

func TestScheduler_ReportStats(t *testing.T) {
	ctx := context.Background()
	db := memorydb.New().ChangeOrders()
	for _, status := range []models.Status{models.StatusPending, models.StatusPending, models.StatusFullyApproved} {
		_, err := db.InsertOne(ctx, models.ChangeOrder{Status: status})
		require.NoError(t, err)
	}

	reg := registry.New()
	reg.Register("pat", nopHandle{})
	reg.Register("rita", nopHandle{})

	s := scheduler.NewScheduler(reg, db)
	s.ReportStats()

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.SessionsActive))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.ChangeOrdersByStatus.WithLabelValues(string(models.StatusPending))))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ChangeOrdersByStatus.WithLabelValues(string(models.StatusFullyApproved))))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.ChangeOrdersByStatus.WithLabelValues(string(models.StatusApprovedByRemodelManager))))
}

func TestScheduler_StartRejectsBadSchedule(t *testing.T) {
	s := scheduler.NewScheduler(registry.New(), nil)
	assert.Error(t, s.Start("not a schedule"))
}

func TestScheduler_StartStop(t *testing.T) {
	s := scheduler.NewScheduler(registry.New(), nil)
	require.NoError(t, s.Start("@every 1h"))
	s.Stop()
}
