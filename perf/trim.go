package perf

// Trim returns sample without its k smallest and k largest values. The
// values are ordered by value, not by position, and the result is sorted
// ascending. The input is not modified.
func Trim(sample []float64, k int) ([]float64, error) {
	if k < 0 {
		return nil, invalidInput("cannot trim a negative count (%d)", k)
	}
	if len(sample) <= 2*k {
		return nil, invalidInput("cannot trim %d values from each end of a sample of %d", k, len(sample))
	}
	if err := checkFinite(sample); err != nil {
		return nil, err
	}

	return newSortedList(sample).Trimmed(k), nil
}
