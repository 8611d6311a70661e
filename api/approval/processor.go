package approval

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/linesmerrill/change-order-api/api/metrics"
	"github.com/linesmerrill/change-order-api/databases"
	"github.com/linesmerrill/change-order-api/models"
)

// Notifier fans a status change out to an order's subscribers
type Notifier interface {
	Notify(ctx context.Context, changeOrderID string, event models.Event) error
}

// Processor runs approval processing for one acting role at a time
type Processor struct {
	DB       databases.ChangeOrderDatabase
	Notifier Notifier
	Policy   Policy
}

// Process scans every order the role can act on, writes each transition with a
// compare-and-set against the status it read and notifies subscribers of every
// write that took effect. Lost races are counted as conflicts; store failures on a
// single order defer it and processing continues. Only a failed scan is an error.
func (p *Processor) Process(ctx context.Context, role models.Role) (models.ApprovalResult, error) {
	result := models.ApprovalResult{Role: role, Transitioned: []models.Transition{}}

	statuses := p.Policy.ActionableStatuses(role)
	if len(statuses) == 0 {
		return result, fmt.Errorf("%w: %q", models.ErrForbidden, role)
	}

	orders, err := p.DB.FindByStatuses(ctx, statuses...)
	if err != nil {
		return result, err
	}

	for _, order := range orders {
		next, ok := p.Policy.Transition(order.Status, role, order.EstimatedCost)
		if !ok {
			continue
		}

		changed, err := p.DB.CompareAndSetStatus(ctx, order.ID, order.Status, next)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				continue
			}
			zap.S().Warnw("deferring change order after store error",
				"changeOrderId", order.ID,
				"role", role,
				"error", err)
			metrics.ApprovalDeferredTotal.Inc()
			result.Deferred++
			continue
		}
		if !changed {
			zap.S().Debugw("change order already transitioned",
				"changeOrderId", order.ID,
				"from", order.Status)
			metrics.ApprovalConflictsTotal.Inc()
			result.Conflicts++
			continue
		}

		metrics.ApprovalTransitionsTotal.WithLabelValues(string(order.Status), string(next)).Inc()
		result.Transitioned = append(result.Transitioned, models.Transition{
			ChangeOrderID: order.ID,
			From:          order.Status,
			To:            next,
		})

		if p.Notifier != nil {
			event := models.NewStatusChangeEvent(order.ID, order.Status, next)
			if err := p.Notifier.Notify(ctx, order.ID, event); err != nil {
				zap.S().Warnw("failed to fan out status change",
					"changeOrderId", order.ID,
					"error", err)
			}
		}
	}

	zap.S().Infow("approval processing finished",
		"role", role,
		"transitioned", len(result.Transitioned),
		"conflicts", result.Conflicts,
		"deferred", result.Deferred)
	return result, nil
}
