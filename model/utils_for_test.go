package model

import (
	"context"
	"testing"
	"time"

	"github.com/evergreen-ci/deviant"
	"github.com/stretchr/testify/require"
)

const testDBName = "deviant_test_model"

// testEnvironment connects to a local mongod and drops the test database
// when the test finishes. The test is skipped when no mongod answers.
func testEnvironment(ctx context.Context, t *testing.T) deviant.Environment {
	env, err := deviant.NewEnvironment(ctx, "model.testing", &deviant.Configuration{
		MongoDBURI:         "mongodb://localhost:27017",
		DatabaseName:       testDBName,
		NumWorkers:         1,
		MongoDBDialTimeout: time.Second,
	})
	if err != nil {
		t.Skipf("no local mongod available: %s", err)
	}
	require.NoError(t, env.GetDB().Drop(ctx))

	t.Cleanup(func() {
		require.NoError(t, env.GetDB().Drop(context.Background()))
		require.NoError(t, env.Close(context.Background()))
	})
	return env
}

func floatPtr(f float64) *float64 { return &f }
