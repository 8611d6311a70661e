package databases

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/linesmerrill/change-order-api/models"
)

// QueryTimeout bounds every single store round trip
const QueryTimeout = 10 * time.Second

func withQueryTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, QueryTimeout)
}

// objectID parses a hex id; an id that cannot exist in the store is reported as not found
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, models.ErrNotFound
	}
	return oid, nil
}

// insertedID renders the id mongo assigned on insert as the string form models use
func insertedID(id interface{}) string {
	switch v := id.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	default:
		return ""
	}
}
