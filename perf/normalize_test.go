package perf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Run("RescalesOntoLastSegment", func(t *testing.T) {
		out, err := Normalize([]float64{0, 2, 4, 10, 11, 12}, Segmentation{0, 3, 6})
		require.NoError(t, err)
		require.Len(t, out, 6)
		for i, expected := range []float64{10, 11, 12, 10, 11, 12} {
			assert.InDelta(t, expected, out[i], 1e-9)
		}
	})
	t.Run("ShiftsConstantSegments", func(t *testing.T) {
		out, err := Normalize([]float64{5, 5, 5, 9, 10, 11}, Segmentation{0, 3, 6})
		require.NoError(t, err)
		assert.Equal(t, []float64{10, 10, 10, 9, 10, 11}, out)
	})
	t.Run("ShiftsOntoConstantLastSegment", func(t *testing.T) {
		out, err := Normalize([]float64{1, 2, 3, 5, 5, 5}, Segmentation{0, 3, 6})
		require.NoError(t, err)
		assert.Equal(t, []float64{4, 5, 6, 5, 5, 5}, out)
	})
	t.Run("SingleSegmentIsCopied", func(t *testing.T) {
		values := []float64{3, 1, 2}
		out, err := Normalize(values, Segmentation{0, 3})
		require.NoError(t, err)
		assert.Equal(t, values, out)
		out[0] = 100
		assert.Equal(t, 3.0, values[0])
	})
	t.Run("InvalidSegmentation", func(t *testing.T) {
		_, err := Normalize([]float64{1, 2, 3}, Segmentation{0, 2})
		require.Error(t, err)
		assert.True(t, IsInvalidInput(err))
	})
}
