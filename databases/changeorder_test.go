package databases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/linesmerrill/change-order-api/databases"
	"github.com/linesmerrill/change-order-api/databases/mocks"
	"github.com/linesmerrill/change-order-api/models"
)

func newChangeOrderDB(coll *mocks.CollectionHelper) databases.ChangeOrderDatabase {
	dbHelper := &mocks.DatabaseHelper{}
	dbHelper.On("Collection", "changeorders").Return(coll)
	return databases.NewChangeOrderDatabase(dbHelper)
}

func TestChangeOrderDatabase_FindByID(t *testing.T) {
	oid := primitive.NewObjectID()
	coll := &mocks.CollectionHelper{}
	sr := &mocks.SingleResultHelper{}

	sr.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.ChangeOrder)
		(*arg).ID = oid.Hex()
		(*arg).Status = models.StatusPending
		(*arg).Subscribers = []string{"rita"}
	})
	coll.On("FindOne", mock.Anything, bson.M{"_id": oid}).Return(sr)

	order, err := newChangeOrderDB(coll).FindByID(context.Background(), oid.Hex())

	assert.NoError(t, err)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.True(t, order.HasSubscriber("rita"))
}

func TestChangeOrderDatabase_FindByIDNotFound(t *testing.T) {
	oid := primitive.NewObjectID()
	coll := &mocks.CollectionHelper{}
	sr := &mocks.SingleResultHelper{}

	sr.On("Decode", mock.Anything).Return(mongo.ErrNoDocuments)
	coll.On("FindOne", mock.Anything, bson.M{"_id": oid}).Return(sr)

	order, err := newChangeOrderDB(coll).FindByID(context.Background(), oid.Hex())

	assert.Nil(t, order)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestChangeOrderDatabase_FindByStatuses(t *testing.T) {
	coll := &mocks.CollectionHelper{}
	cursor := &mocks.CursorHelper{}

	statuses := []models.Status{models.StatusApprovedByProjectManager}
	cursor.On("All", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(1).(*[]models.ChangeOrder)
		*arg = []models.ChangeOrder{{ID: "a", Status: models.StatusApprovedByProjectManager}}
	})
	coll.On("Find", mock.Anything, bson.M{"status": bson.M{"$in": statuses}}).Return(cursor, nil)

	orders, err := newChangeOrderDB(coll).FindByStatuses(context.Background(), statuses...)

	assert.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestChangeOrderDatabase_FindByStatusesStoreDown(t *testing.T) {
	coll := &mocks.CollectionHelper{}
	coll.On("Find", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	orders, err := newChangeOrderDB(coll).FindByStatuses(context.Background(), models.StatusPending)

	assert.Nil(t, orders)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}

func TestChangeOrderDatabase_AddSubscriberUsesAddToSet(t *testing.T) {
	oid := primitive.NewObjectID()
	coll := &mocks.CollectionHelper{}

	coll.On("UpdateOne", mock.Anything, bson.M{"_id": oid}, bson.M{"$addToSet": bson.M{"subscribers": "rita"}}).
		Return(&mongo.UpdateResult{MatchedCount: 1}, nil)

	err := newChangeOrderDB(coll).AddSubscriber(context.Background(), oid.Hex(), "rita")

	assert.NoError(t, err)
	coll.AssertExpectations(t)
}

func TestChangeOrderDatabase_RemoveSubscriberUsesPull(t *testing.T) {
	oid := primitive.NewObjectID()
	coll := &mocks.CollectionHelper{}

	coll.On("UpdateOne", mock.Anything, bson.M{"_id": oid}, bson.M{"$pull": bson.M{"subscribers": "rita"}}).
		Return(&mongo.UpdateResult{MatchedCount: 1}, nil)

	err := newChangeOrderDB(coll).RemoveSubscriber(context.Background(), oid.Hex(), "rita")

	assert.NoError(t, err)
	coll.AssertExpectations(t)
}

func TestChangeOrderDatabase_AddSubscriberMissingOrder(t *testing.T) {
	oid := primitive.NewObjectID()
	coll := &mocks.CollectionHelper{}

	coll.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 0}, nil)

	err := newChangeOrderDB(coll).AddSubscriber(context.Background(), oid.Hex(), "rita")

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestChangeOrderDatabase_CompareAndSetStatus(t *testing.T) {
	oid := primitive.NewObjectID()
	coll := &mocks.CollectionHelper{}

	won := bson.M{"_id": oid, "status": models.StatusPending}
	lost := bson.M{"_id": oid, "status": models.StatusApprovedByRemodelManager}
	coll.On("UpdateOne", mock.Anything, won, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)
	coll.On("UpdateOne", mock.Anything, lost, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 0}, nil)

	db := newChangeOrderDB(coll)

	ok, err := db.CompareAndSetStatus(context.Background(), oid.Hex(), models.StatusPending, models.StatusApprovedByProjectManager)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.CompareAndSetStatus(context.Background(), oid.Hex(), models.StatusApprovedByRemodelManager, models.StatusFullyApproved)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestChangeOrderDatabase_AppendChat(t *testing.T) {
	oid := primitive.NewObjectID()
	coll := &mocks.CollectionHelper{}

	msg := models.ChatMessage{Author: "rita", Text: "looks fine"}
	coll.On("UpdateOne", mock.Anything, bson.M{"_id": oid}, mock.MatchedBy(func(update bson.M) bool {
		push, ok := update["$push"].(bson.M)
		return ok && push["chatLog"] == msg
	})).Return(&mongo.UpdateResult{MatchedCount: 1}, nil)

	err := newChangeOrderDB(coll).AppendChat(context.Background(), oid.Hex(), msg)

	assert.NoError(t, err)
	coll.AssertExpectations(t)
}

func TestChangeOrderDatabase_InsertOne(t *testing.T) {
	oid := primitive.NewObjectID()
	coll := &mocks.CollectionHelper{}
	res := &mocks.InsertOneResultHelper{}

	res.On("Decode").Return(oid)
	coll.On("InsertOne", mock.Anything, mock.MatchedBy(func(order models.ChangeOrder) bool {
		return order.ID == "" && order.Subscribers != nil && order.ChatLog != nil
	})).Return(res, nil)

	id, err := newChangeOrderDB(coll).InsertOne(context.Background(), models.ChangeOrder{ID: "ignored", Status: models.StatusPending})

	assert.NoError(t, err)
	assert.Equal(t, oid.Hex(), id)
}
