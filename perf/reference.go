package perf

import "sort"

// ReferenceSegmentation builds a segmentation of a series of length n from
// indexes known to start a new regime, such as pushes that raised an
// alert. Duplicates and the endpoints are folded in.
func ReferenceSegmentation(n int, starts []int) (Segmentation, error) {
	if n <= 0 {
		return nil, invalidInput("cannot build a reference segmentation for a series of length %d", n)
	}

	seen := map[int]bool{0: true, n: true}
	out := Segmentation{0, n}
	for _, idx := range starts {
		if idx < 0 || idx > n {
			return nil, invalidInput("reference boundary %d is outside of [0, %d]", idx, n)
		}
		if seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}
	sort.Ints(out)
	return out, nil
}

// MedianDiffs is Diffs computed from segment medians rather than means,
// which is how shifts at reference boundaries are measured.
func (s Segmentation) MedianDiffs(values []float64) []float64 {
	return s.diffsBy(values, func(segment Segment) float64 {
		return newSortedList(segment.Values).Median()
	})
}
