package approval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/linesmerrill/change-order-api/models"
)

func TestPolicy_Transition(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name   string
		status models.Status
		role   models.Role
		cost   float64
		want   models.Status
		ok     bool
	}{
		{"pm approves pending", models.StatusPending, models.RoleProjectManager, 1e9, models.StatusApprovedByProjectManager, true},
		{"rm at threshold", models.StatusApprovedByProjectManager, models.RoleRemodelManager, 14000, models.StatusFullyApproved, true},
		{"rm above threshold", models.StatusApprovedByProjectManager, models.RoleRemodelManager, 14000.01, models.StatusApprovedByRemodelManager, true},
		{"re finishes escalation", models.StatusApprovedByRemodelManager, models.RoleRegionalExecutive, 90000, models.StatusFullyApproved, true},
		{"rm cannot approve pending", models.StatusPending, models.RoleRemodelManager, 10, "", false},
		{"re cannot skip rm", models.StatusApprovedByProjectManager, models.RoleRegionalExecutive, 10, "", false},
		{"pm cannot re-approve", models.StatusApprovedByProjectManager, models.RoleProjectManager, 10, "", false},
		{"unknown role", models.StatusPending, models.Role("Intern"), 10, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.Transition(tt.status, tt.role, tt.cost)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPolicy_FullyApprovedIsTerminal(t *testing.T) {
	p := DefaultPolicy()
	for _, role := range models.Roles {
		for _, cost := range []float64{0, 14000, 14000.01, 1e12} {
			_, ok := p.Transition(models.StatusFullyApproved, role, cost)
			assert.False(t, ok, "role %s cost %v", role, cost)
		}
	}
}

func TestPolicy_ThresholdIsConfigurable(t *testing.T) {
	p := Policy{CostThreshold: 500}

	got, ok := p.Transition(models.StatusApprovedByProjectManager, models.RoleRemodelManager, 501)
	assert.True(t, ok)
	assert.Equal(t, models.StatusApprovedByRemodelManager, got)
}

func TestPolicy_ActionableStatusesMatchTransitions(t *testing.T) {
	p := DefaultPolicy()
	for _, role := range models.Roles {
		for _, st := range p.ActionableStatuses(role) {
			_, ok := p.Transition(st, role, 0)
			assert.True(t, ok, "role %s status %s", role, st)
		}
	}
	assert.Empty(t, p.ActionableStatuses(models.Role("Intern")))
}
