package perf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stepScenarioOptions() Options {
	return Options{
		ChangeType: ChangeTypeRelative,
		Threshold:  200,
		MinPoints:  5,
		MaxPoints:  10,
		IgnoreTop:  1,
	}
}

func TestAnalyzer(t *testing.T) {
	values := []float64{10, 10, 11, 9, 10, 50, 51, 49, 52, 50}

	t.Run("InvalidOptions", func(t *testing.T) {
		_, err := NewAnalyzer(Options{MinPoints: 3}, nil)
		assert.True(t, IsInvalidInput(err))
	})
	t.Run("Step", func(t *testing.T) {
		analyzer, err := NewAnalyzer(stepScenarioOptions(), nil)
		require.NoError(t, err)
		assert.Equal(t, 5, analyzer.Options().Tolerance)

		res, err := analyzer.Analyze(values, nil)
		require.NoError(t, err)
		assert.Equal(t, 10, res.NumPoints)
		assert.Equal(t, Segmentation{0, 5, 10}, res.Segmentation)
		require.Len(t, res.ChangePoints, 1)
		assert.Equal(t, 5, res.ChangePoints[0].Index)
		assert.InDelta(t, 4.04, res.ChangePoints[0].Diff, 1e-9)
		assert.Equal(t, stepDetectorName, res.Algorithm.Name)

		require.NotNil(t, res.LastMean)
		assert.InDelta(t, 50.4, *res.LastMean, 1e-9)
		require.NotNil(t, res.LastStd)
		assert.InDelta(t, 1.1402, *res.LastStd, 1e-3)
		require.NotNil(t, res.RelativeNoise)
		assert.InDelta(t, 0.0094, *res.RelativeNoise, 1e-3)
		require.NotNil(t, res.LastDeviance)
		assert.NoError(t, res.LastDeviance.Status.Validate())
		require.NotNil(t, res.OverallDeviance)
		assert.NoError(t, res.OverallDeviance.Status.Validate())

		assert.Nil(t, res.Reference)
		assert.Nil(t, res.Comparison)
	})
	t.Run("SingleSegment", func(t *testing.T) {
		analyzer, err := NewAnalyzer(stepScenarioOptions(), nil)
		require.NoError(t, err)

		res, err := analyzer.Analyze(repeat(4, 10), nil)
		require.NoError(t, err)
		assert.Equal(t, Segmentation{0, 10}, res.Segmentation)
		assert.Equal(t, []float64{0}, res.Diffs)
		assert.Empty(t, res.ChangePoints)
		assert.Nil(t, res.LastMean)
		assert.Nil(t, res.LastDeviance)
		assert.Nil(t, res.OverallDeviance)
	})
	t.Run("MatchingReference", func(t *testing.T) {
		analyzer, err := NewAnalyzer(stepScenarioOptions(), nil)
		require.NoError(t, err)
		reference, err := ReferenceSegmentation(len(values), []int{4})
		require.NoError(t, err)

		res, err := analyzer.Analyze(values, reference)
		require.NoError(t, err)
		assert.Equal(t, Segmentation{0, 4, 10}, res.Reference)
		require.Len(t, res.ReferenceDiffs, 3)
		require.NotNil(t, res.Comparison)
		assert.False(t, res.Comparison.IsDiff)
	})
	t.Run("MissedReference", func(t *testing.T) {
		analyzer, err := NewAnalyzer(stepScenarioOptions(), nil)
		require.NoError(t, err)

		res, err := analyzer.Analyze(values, Segmentation{0, 10})
		require.NoError(t, err)
		require.NotNil(t, res.Comparison)
		assert.True(t, res.Comparison.IsDiff)
		require.NotNil(t, res.Comparison.MaxExtraDiff)
		assert.InDelta(t, 4.04, *res.Comparison.MaxExtraDiff, 1e-9)
		assert.Nil(t, res.Comparison.MaxMissingDiff)
	})
	t.Run("InvalidReference", func(t *testing.T) {
		analyzer, err := NewAnalyzer(stepScenarioOptions(), nil)
		require.NoError(t, err)
		_, err = analyzer.Analyze(values, Segmentation{0, 3})
		assert.True(t, IsInvalidInput(err))
	})
	t.Run("SharedCache", func(t *testing.T) {
		cache := NewDevianceCache()
		analyzer, err := NewAnalyzer(stepScenarioOptions(), cache)
		require.NoError(t, err)

		first, err := analyzer.Analyze(values, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, cache.Len())

		second, err := analyzer.Analyze(values, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, cache.Len())
		assert.Equal(t, first, second)
	})
}
