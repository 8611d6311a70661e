package approval_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/change-order-api/api/approval"
	"github.com/linesmerrill/change-order-api/databases/memorydb"
	"github.com/linesmerrill/change-order-api/models"
)

type notifier struct {
	mock.Mock
}

func (n *notifier) Notify(ctx context.Context, changeOrderID string, event models.Event) error {
	args := n.Called(ctx, changeOrderID, event)
	return args.Error(0)
}

// flakyDB fails CompareAndSetStatus for the ids in failing
type flakyDB struct {
	*memorydb.ChangeOrderDatabase
	failing map[string]bool
}

func (f *flakyDB) CompareAndSetStatus(ctx context.Context, id string, from, to models.Status) (bool, error) {
	if f.failing[id] {
		return false, models.ErrStoreUnavailable
	}
	return f.ChangeOrderDatabase.CompareAndSetStatus(ctx, id, from, to)
}

func TestProcessor_ProcessNotifiesEachTransition(t *testing.T) {
	ctx := context.Background()
	db := memorydb.New().ChangeOrders()
	cheap, _ := db.InsertOne(ctx, models.ChangeOrder{Status: models.StatusApprovedByProjectManager, EstimatedCost: 100})
	pricey, _ := db.InsertOne(ctx, models.ChangeOrder{Status: models.StatusApprovedByProjectManager, EstimatedCost: 20000})
	untouched, _ := db.InsertOne(ctx, models.ChangeOrder{Status: models.StatusPending})

	n := &notifier{}
	n.On("Notify", mock.Anything, cheap, models.NewStatusChangeEvent(cheap, models.StatusApprovedByProjectManager, models.StatusFullyApproved)).Return(nil).Once()
	n.On("Notify", mock.Anything, pricey, models.NewStatusChangeEvent(pricey, models.StatusApprovedByProjectManager, models.StatusApprovedByRemodelManager)).Return(nil).Once()

	p := &approval.Processor{DB: db, Notifier: n, Policy: approval.DefaultPolicy()}
	res, err := p.Process(ctx, models.RoleRemodelManager)

	require.NoError(t, err)
	assert.Len(t, res.Transitioned, 2)
	assert.Zero(t, res.Conflicts)
	n.AssertExpectations(t)

	o, _ := db.FindByID(ctx, untouched)
	assert.Equal(t, models.StatusPending, o.Status)
	o, _ = db.FindByID(ctx, cheap)
	assert.Equal(t, models.StatusFullyApproved, o.Status)
}

func TestProcessor_ProcessDefersOnStoreError(t *testing.T) {
	ctx := context.Background()
	mem := memorydb.New().ChangeOrders()
	bad, _ := mem.InsertOne(ctx, models.ChangeOrder{Status: models.StatusPending})
	good, _ := mem.InsertOne(ctx, models.ChangeOrder{Status: models.StatusPending})

	n := &notifier{}
	n.On("Notify", mock.Anything, good, mock.Anything).Return(nil)

	p := &approval.Processor{DB: &flakyDB{ChangeOrderDatabase: mem, failing: map[string]bool{bad: true}}, Notifier: n, Policy: approval.DefaultPolicy()}
	res, err := p.Process(ctx, models.RoleProjectManager)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Deferred)
	require.Len(t, res.Transitioned, 1)
	assert.Equal(t, good, res.Transitioned[0].ChangeOrderID)

	o, _ := mem.FindByID(ctx, bad)
	assert.Equal(t, models.StatusPending, o.Status)
}

func TestProcessor_ProcessUnknownRole(t *testing.T) {
	p := &approval.Processor{DB: memorydb.New().ChangeOrders(), Policy: approval.DefaultPolicy()}
	_, err := p.Process(context.Background(), models.Role("Intern"))
	assert.True(t, errors.Is(err, models.ErrForbidden))
}

func TestProcessor_ConcurrentRunsTransitionOnce(t *testing.T) {
	ctx := context.Background()
	db := memorydb.New().ChangeOrders()
	id, _ := db.InsertOne(ctx, models.ChangeOrder{Status: models.StatusPending})

	n := &notifier{}
	n.On("Notify", mock.Anything, id, mock.Anything).Return(nil)
	p := &approval.Processor{DB: db, Notifier: n, Policy: approval.DefaultPolicy()}

	var wg sync.WaitGroup
	results := make([]models.ApprovalResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := p.Process(ctx, models.RoleProjectManager)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	transitions := 0
	for _, r := range results {
		transitions += len(r.Transitioned)
	}
	assert.Equal(t, 1, transitions)
	n.AssertNumberOfCalls(t, "Notify", 1)

	o, _ := db.FindByID(ctx, id)
	assert.Equal(t, models.StatusApprovedByProjectManager, o.Status)
}

func TestCompareAndSet_RacingActorsSingleWinner(t *testing.T) {
	ctx := context.Background()
	db := memorydb.New().ChangeOrders()
	id, _ := db.InsertOne(ctx, models.ChangeOrder{Status: models.StatusApprovedByProjectManager})

	var wg sync.WaitGroup
	wins := make([]bool, 2)
	targets := []models.Status{models.StatusFullyApproved, models.StatusApprovedByRemodelManager}
	for i := range targets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := db.CompareAndSetStatus(ctx, id, models.StatusApprovedByProjectManager, targets[i])
			assert.NoError(t, err)
			wins[i] = ok
		}(i)
	}
	wg.Wait()

	assert.NotEqual(t, wins[0], wins[1])
	o, _ := db.FindByID(ctx, id)
	if wins[0] {
		assert.Equal(t, targets[0], o.Status)
	} else {
		assert.Equal(t, targets[1], o.Status)
	}
}
