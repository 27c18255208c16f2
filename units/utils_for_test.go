package units

import (
	"context"
	"testing"
	"time"

	"github.com/evergreen-ci/deviant"
	"github.com/evergreen-ci/deviant/model"
	"github.com/stretchr/testify/require"
)

const testDBName = "deviant_test_units"

func testEnvironment(ctx context.Context, t *testing.T) deviant.Environment {
	env, err := deviant.NewEnvironment(ctx, "units.testing", &deviant.Configuration{
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

// provisionStep saves a signature whose series steps from 100 to 150
// halfway through, with an alert on the first push after the step.
func provisionStep(ctx context.Context, t *testing.T, env deviant.Environment, id int, pushes int) {
	sig := &model.PerformanceSignature{
		ID:              id,
		Hash:            "hash",
		Framework:       "talos",
		Suite:           "tp5o",
		Platform:        "linux64",
		Repository:      "mozilla-central",
		AlertChangeType: "relative",
		AlertThreshold:  2,
	}
	require.NoError(t, sig.Save(ctx, env))

	start := time.Now().Add(-time.Duration(pushes+1) * time.Hour)
	data := make([]model.PerformanceDatum, 0, pushes)
	for i := 0; i < pushes; i++ {
		datum := model.PerformanceDatum{
			ID:          int64(id*10000 + i),
			SignatureID: id,
			Repository:  sig.Repository,
			PushTime:    start.Add(time.Duration(i) * time.Hour),
			Value:       100 + float64(i%2),
		}
		if i >= pushes/2 {
			datum.Value += 50
		}
		if i == pushes/2 {
			datum.AlertID = 1
		}
		data = append(data, datum)
	}
	require.NoError(t, model.SavePerformanceData(ctx, env, data))
}
