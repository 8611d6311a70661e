// Package notify delivers events to the live sessions that should see them.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/linesmerrill/change-order-api/api/metrics"
	"github.com/linesmerrill/change-order-api/api/registry"
	"github.com/linesmerrill/change-order-api/databases"
	"github.com/linesmerrill/change-order-api/models"
)

// Fanout joins an order's durable subscriber set with the registry's live
// sessions at delivery time. The join is never stored.
type Fanout struct {
	DB       databases.ChangeOrderDatabase
	Registry *registry.Registry
}

// New returns a Fanout over db and reg
func New(db databases.ChangeOrderDatabase, reg *registry.Registry) *Fanout {
	return &Fanout{DB: db, Registry: reg}
}

// Notify re-reads the order's subscribers and hands event to each one that has a
// live session. Subscribers without one are skipped silently.
func (f *Fanout) Notify(ctx context.Context, changeOrderID string, event models.Event) error {
	_, err := f.NotifyCount(ctx, changeOrderID, event)
	return err
}

// NotifyCount is Notify that also reports how many sessions accepted the event
func (f *Fanout) NotifyCount(ctx context.Context, changeOrderID string, event models.Event) (int, error) {
	order, err := f.DB.FindByID(ctx, changeOrderID)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, subscriber := range order.Subscribers {
		h, ok := f.Registry.Lookup(subscriber)
		if !ok {
			metrics.EventsDroppedTotal.WithLabelValues(string(event.Type), metrics.ReasonOffline).Inc()
			continue
		}
		if deliver(h, event) {
			delivered++
		}
	}

	zap.S().Debugw("fanned out event",
		"type", event.Type,
		"changeOrderId", changeOrderID,
		"subscribers", len(order.Subscribers),
		"delivered", delivered)
	return delivered, nil
}

// NotifyAll hands event to every registered session regardless of subscription
func (f *Fanout) NotifyAll(event models.Event) int {
	delivered := 0
	for _, h := range f.Registry.Snapshot() {
		if deliver(h, event) {
			delivered++
		}
	}

	zap.S().Debugw("broadcast event",
		"type", event.Type,
		"changeOrderId", event.ChangeOrderID,
		"delivered", delivered)
	return delivered
}

func deliver(h registry.Handle, event models.Event) bool {
	if h.Deliver(event) {
		metrics.EventsDeliveredTotal.WithLabelValues(string(event.Type)).Inc()
		return true
	}
	metrics.EventsDroppedTotal.WithLabelValues(string(event.Type), metrics.ReasonBackpressure).Inc()
	return false
}
