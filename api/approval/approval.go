// Package approval holds the change order approval state machine and the
// processor that applies it to stored orders.
package approval

import "github.com/linesmerrill/change-order-api/models"

// DefaultCostThreshold is the highest cost a RemodelManager approves without escalation
const DefaultCostThreshold = 14000.0

// Policy parameterizes the state machine. The transition table is fixed; only the
// escalation threshold is configurable.
type Policy struct {
	CostThreshold float64
}

// DefaultPolicy returns the policy with DefaultCostThreshold
func DefaultPolicy() Policy {
	return Policy{CostThreshold: DefaultCostThreshold}
}

// Transition returns the next status for an order in `status` acted on by `role`.
// ok is false when no transition applies.
func (p Policy) Transition(status models.Status, role models.Role, estimatedCost float64) (next models.Status, ok bool) {
	switch {
	case status == models.StatusPending && role == models.RoleProjectManager:
		return models.StatusApprovedByProjectManager, true
	case status == models.StatusApprovedByProjectManager && role == models.RoleRemodelManager:
		if estimatedCost <= p.CostThreshold {
			return models.StatusFullyApproved, true
		}
		return models.StatusApprovedByRemodelManager, true
	case status == models.StatusApprovedByRemodelManager && role == models.RoleRegionalExecutive:
		return models.StatusFullyApproved, true
	}
	return "", false
}

// ActionableStatuses lists the statuses from which role can move an order
func (p Policy) ActionableStatuses(role models.Role) []models.Status {
	switch role {
	case models.RoleProjectManager:
		return []models.Status{models.StatusPending}
	case models.RoleRemodelManager:
		return []models.Status{models.StatusApprovedByProjectManager}
	case models.RoleRegionalExecutive:
		return []models.Status{models.StatusApprovedByRemodelManager}
	}
	return nil
}
