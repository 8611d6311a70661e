package memorydb_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/change-order-api/databases"
	"github.com/linesmerrill/change-order-api/databases/memorydb"
	"github.com/linesmerrill/change-order-api/models"
)

var (
	_ databases.UserDatabase        = (*memorydb.UserDatabase)(nil)
	_ databases.ChangeOrderDatabase = (*memorydb.ChangeOrderDatabase)(nil)
)

func TestChangeOrderDatabase_ConcurrentSubscribers(t *testing.T) {
	ctx := context.Background()
	db := memorydb.New().ChangeOrders()
	id, err := db.InsertOne(ctx, models.ChangeOrder{Status: models.StatusPending})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, db.AddSubscriber(ctx, id, fmt.Sprintf("user-%d", i)))
		}(i)
	}
	wg.Wait()

	order, err := db.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Len(t, order.Subscribers, 50)
}

func TestChangeOrderDatabase_FindByIDReturnsCopy(t *testing.T) {
	ctx := context.Background()
	db := memorydb.New().ChangeOrders()
	id, _ := db.InsertOne(ctx, models.ChangeOrder{Status: models.StatusPending})
	require.NoError(t, db.AddSubscriber(ctx, id, "rita"))

	order, _ := db.FindByID(ctx, id)
	order.Subscribers[0] = "mallory"

	again, _ := db.FindByID(ctx, id)
	assert.Equal(t, []string{"rita"}, again.Subscribers)
}

func TestUserDatabase_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	db := memorydb.New().Users()

	_, err := db.InsertOne(ctx, models.UserDetails{Username: "pat"})
	require.NoError(t, err)
	_, err = db.InsertOne(ctx, models.UserDetails{Username: "pat"})
	assert.ErrorIs(t, err, models.ErrDuplicate)
}

func TestChangeOrderDatabase_MissingOrder(t *testing.T) {
	ctx := context.Background()
	db := memorydb.New().ChangeOrders()

	assert.ErrorIs(t, db.AddSubscriber(ctx, "nope", "rita"), models.ErrNotFound)
	assert.ErrorIs(t, db.AppendChat(ctx, "nope", models.ChatMessage{}), models.ErrNotFound)
	ok, err := db.CompareAndSetStatus(ctx, "nope", models.StatusPending, models.StatusApprovedByProjectManager)
	assert.NoError(t, err)
	assert.False(t, ok)
}
