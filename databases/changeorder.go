package databases

// go generate: mockery --name ChangeOrderDatabase

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/linesmerrill/change-order-api/models"
)

const changeOrderName = "changeorders"

// ChangeOrderDatabase contains the methods to use with the change order database.
// Subscriber, chat and status mutations are single atomic store operations; callers
// never read-modify-write a whole order.
type ChangeOrderDatabase interface {
	FindByID(ctx context.Context, id string) (*models.ChangeOrder, error)
	FindByStatuses(ctx context.Context, statuses ...models.Status) ([]models.ChangeOrder, error)
	InsertOne(ctx context.Context, order models.ChangeOrder) (string, error)
	// AddSubscriber adds username to the subscriber set. Adding a present member is a no-op.
	AddSubscriber(ctx context.Context, id, username string) error
	// RemoveSubscriber removes username from the subscriber set. Removing an absent member is a no-op.
	RemoveSubscriber(ctx context.Context, id, username string) error
	// CompareAndSetStatus sets the status to `to` only while it still equals `from`.
	// It reports false when the order no longer holds `from`.
	CompareAndSetStatus(ctx context.Context, id string, from, to models.Status) (bool, error)
	AppendChat(ctx context.Context, id string, msg models.ChatMessage) error
	EnsureIndexes(ctx context.Context) error
}

type changeOrderDatabase struct {
	db DatabaseHelper
}

// NewChangeOrderDatabase initializes a new instance of change order database with the provided db connection
func NewChangeOrderDatabase(db DatabaseHelper) ChangeOrderDatabase {
	return &changeOrderDatabase{
		db: db,
	}
}

func (c *changeOrderDatabase) FindByID(ctx context.Context, id string) (*models.ChangeOrder, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	order := &models.ChangeOrder{}
	err = c.db.Collection(changeOrderName).FindOne(ctx, bson.M{"_id": oid}).Decode(&order)
	if err != nil {
		return nil, storeError(err)
	}
	return order, nil
}

func (c *changeOrderDatabase) FindByStatuses(ctx context.Context, statuses ...models.Status) ([]models.ChangeOrder, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	var orders []models.ChangeOrder
	cr, err := c.db.Collection(changeOrderName).Find(ctx, bson.M{"status": bson.M{"$in": statuses}})
	if err != nil {
		return nil, storeError(err)
	}
	err = cr.All(ctx, &orders)
	if err != nil {
		return nil, storeError(err)
	}
	return orders, nil
}

func (c *changeOrderDatabase) InsertOne(ctx context.Context, order models.ChangeOrder) (string, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	order.ID = ""
	if order.ChatLog == nil {
		order.ChatLog = []models.ChatMessage{}
	}
	if order.Subscribers == nil {
		order.Subscribers = []string{}
	}
	res, err := c.db.Collection(changeOrderName).InsertOne(ctx, order)
	if err != nil {
		return "", storeError(err)
	}
	return insertedID(res.Decode()), nil
}

func (c *changeOrderDatabase) AddSubscriber(ctx context.Context, id, username string) error {
	return c.updateExisting(ctx, id, bson.M{"$addToSet": bson.M{"subscribers": username}})
}

func (c *changeOrderDatabase) RemoveSubscriber(ctx context.Context, id, username string) error {
	return c.updateExisting(ctx, id, bson.M{"$pull": bson.M{"subscribers": username}})
}

func (c *changeOrderDatabase) AppendChat(ctx context.Context, id string, msg models.ChatMessage) error {
	return c.updateExisting(ctx, id, bson.M{
		"$push": bson.M{"chatLog": msg},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (c *changeOrderDatabase) CompareAndSetStatus(ctx context.Context, id string, from, to models.Status) (bool, error) {
	oid, err := objectID(id)
	if err != nil {
		return false, err
	}

	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	filter := bson.M{"_id": oid, "status": from}
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now().UTC()}}
	res, err := c.db.Collection(changeOrderName).UpdateOne(ctx, filter, update)
	if err != nil {
		return false, storeError(err)
	}
	return res.MatchedCount == 1, nil
}

// updateExisting applies an atomic update to one order and reports ErrNotFound
// when no order carries the id
func (c *changeOrderDatabase) updateExisting(ctx context.Context, id string, update bson.M) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	res, err := c.db.Collection(changeOrderName).UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return storeError(err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (c *changeOrderDatabase) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}
	return storeError(c.db.Collection(changeOrderName).CreateIndexes(ctx, indexes))
}
