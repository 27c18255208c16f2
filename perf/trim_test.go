package perf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrim(t *testing.T) {
	t.Run("DropsExtremesByValue", func(t *testing.T) {
		sample := []float64{5, 1, 4, 2, 3}
		out, err := Trim(sample, 1)
		require.NoError(t, err)
		assert.Equal(t, []float64{2, 3, 4}, out)
		assert.Equal(t, []float64{5, 1, 4, 2, 3}, sample)
	})
	t.Run("ZeroSorts", func(t *testing.T) {
		out, err := Trim([]float64{3, 1, 2}, 0)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2, 3}, out)
	})
	t.Run("Duplicates", func(t *testing.T) {
		out, err := Trim([]float64{1, 1, 1, 9, 9}, 2)
		require.NoError(t, err)
		assert.Equal(t, []float64{1}, out)
	})
	t.Run("Invalid", func(t *testing.T) {
		for name, test := range map[string]struct {
			sample []float64
			k      int
		}{
			"Negative":   {sample: []float64{1, 2, 3}, k: -1},
			"TooShort":   {sample: []float64{1, 2}, k: 1},
			"Empty":      {sample: nil, k: 0},
			"NotANumber": {sample: []float64{1, math.NaN(), 3}, k: 0},
		} {
			t.Run(name, func(t *testing.T) {
				_, err := Trim(test.sample, test.k)
				require.Error(t, err)
				assert.True(t, IsInvalidInput(err))
			})
		}
	})
}
