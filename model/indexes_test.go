package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestGetRequiredIndexes(t *testing.T) {
	for _, idx := range GetRequiredIndexes() {
		assert.NotEmpty(t, idx.Collection)
		assert.NotEmpty(t, idx.Keys)
	}
}

func TestEnsureIndexes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env := testEnvironment(ctx, t)

	require.NoError(t, EnsureIndexes(ctx, env))
	// creating an existing index is a no-op
	require.NoError(t, EnsureIndexes(ctx, env))

	for _, idx := range GetRequiredIndexes() {
		cur, err := env.GetDB().Collection(idx.Collection).Indexes().List(ctx)
		require.NoError(t, err)
		var existing []bson.M
		require.NoError(t, cur.All(ctx, &existing))
		found := false
		for _, ix := range existing {
			keys, ok := ix["key"].(bson.M)
			if ok && len(keys) == len(idx.Keys) {
				found = true
				for _, k := range idx.Keys {
					if _, ok := keys[k.Key]; !ok {
						found = false
					}
				}
			}
			if found {
				break
			}
		}
		assert.True(t, found, "missing index on %s: %v", idx.Collection, idx.Keys)
	}
}
