package perf

import "sort"

// sortedList is an ascending list of floats.
type sortedList []float64

func newSortedList(values []float64) *sortedList {
	s := make(sortedList, len(values))
	copy(s, values)
	sort.Float64s(s)
	return &s
}

// Insert the floats, maintaining the sort order.
func (s *sortedList) Insert(floats ...float64) {
	for _, f := range floats {
		index := sort.SearchFloat64s(*s, f)
		*s = append(*s, 0)
		copy((*s)[index+1:], (*s)[index:])
		(*s)[index] = f
	}
}

// Remove one occurrence of f, if present.
func (s *sortedList) Remove(f float64) {
	index := sort.SearchFloat64s(*s, f)
	if index == len(*s) || (*s)[index] != f {
		return
	}
	*s = append((*s)[:index], (*s)[index+1:]...)
}

// Median of the list; zero when empty.
func (s sortedList) Median() float64 {
	length := len(s)
	if length == 0 {
		return 0
	}
	center := length / 2
	if length%2 != 0 {
		return s[center]
	}
	return (s[center] + s[center-1]) / 2.0
}

// Trimmed returns a copy of the list without its k lowest and k highest
// values.
func (s sortedList) Trimmed(k int) []float64 {
	out := make([]float64, len(s)-2*k)
	copy(out, s[k:len(s)-k])
	return out
}
