package databases

// go generate: mockery --name UserDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/change-order-api/models"
)

const userName = "users"

// UserDatabase contains the methods to use with the user database
type UserDatabase interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	InsertOne(ctx context.Context, userDetails models.UserDetails) (string, error)
	EnsureIndexes(ctx context.Context) error
}

type userDatabase struct {
	db DatabaseHelper
}

// NewUserDatabase initializes a new instance of user database with the provided db connection
func NewUserDatabase(db DatabaseHelper) UserDatabase {
	return &userDatabase{
		db: db,
	}
}

func (u *userDatabase) FindByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return u.findOne(ctx, bson.M{"_id": oid})
}

func (u *userDatabase) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return u.findOne(ctx, bson.M{"user.username": username})
}

func (u *userDatabase) findOne(ctx context.Context, filter interface{}) (*models.User, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	user := &models.User{}
	err := u.db.Collection(userName).FindOne(ctx, filter).Decode(&user)
	if err != nil {
		return nil, storeError(err)
	}
	return user, nil
}

func (u *userDatabase) InsertOne(ctx context.Context, userDetails models.UserDetails) (string, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	res, err := u.db.Collection(userName).InsertOne(ctx, models.User{Details: userDetails})
	if err != nil {
		return "", storeError(err)
	}
	return insertedID(res.Decode()), nil
}

func (u *userDatabase) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user.username", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	return storeError(u.db.Collection(userName).CreateIndexes(ctx, indexes))
}
