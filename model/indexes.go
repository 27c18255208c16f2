package model

import (
	"context"

	"github.com/evergreen-ci/deviant"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// SystemIndexes holds the keys and the collection for an index.
// See
// https://docs.mongodb.com/manual/reference/method/db.collection.createIndex
// for more info.
type SystemIndexes struct {
	Keys       bson.D
	Collection string
}

// GetRequiredIndexes returns required indexes for the deviant database.
func GetRequiredIndexes() []SystemIndexes {
	return []SystemIndexes{
		{
			Keys:       bson.D{{Key: datumSignatureIDKey, Value: 1}, {Key: datumPushTimeKey, Value: -1}},
			Collection: datumCollection,
		},
		{
			Keys:       bson.D{{Key: datumPushTimeKey, Value: 1}, {Key: datumRepositoryKey, Value: 1}},
			Collection: datumCollection,
		},
		{
			Keys:       bson.D{{Key: signatureRepositoryKey, Value: 1}, {Key: signatureHashKey, Value: 1}},
			Collection: signatureCollection,
		},
		{
			Keys:       bson.D{{Key: summaryLastUpdatedKey, Value: 1}},
			Collection: summaryCollection,
		},
	}
}

// EnsureIndexes creates every required index that does not exist yet.
func EnsureIndexes(ctx context.Context, env deviant.Environment) error {
	db := env.GetDB()
	if db == nil {
		return errors.New("no database configured")
	}

	catcher := grip.NewBasicCatcher()
	for _, idx := range GetRequiredIndexes() {
		_, err := db.Collection(idx.Collection).Indexes().CreateOne(ctx, mongo.IndexModel{Keys: idx.Keys})
		catcher.Wrapf(err, "creating index on '%s'", idx.Collection)
	}
	return catcher.Resolve()
}
