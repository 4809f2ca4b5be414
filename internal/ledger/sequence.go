package ledger

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"procurement-api-server/internal/models"
)

// Sequence names in use. The role registry shares the same counters
// collection and allocation routine as the request ledger.
const (
	HeaderSequence = "request_headers"
	RoleSequence   = "roles"
)

// NextSequenceID increments the named counter and returns the new value.
//
// It must run inside the caller's transaction (pass the session context), so
// that an abort also rolls back the increment. Two transactions touching the
// same counter document conflict; the store's write-conflict detection is
// what guarantees a value is never issued twice.
func NextSequenceID(ctx context.Context, db *mongo.Database, name string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter models.Counter
	err := db.Collection("counters").FindOneAndUpdate(
		ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"currentId": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, err
	}

	return counter.CurrentID, nil
}
