package perf

import (
	"math"
	"sort"

	"github.com/aclements/go-moremath/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Segmentation is an ordered list of boundary indices into a series. It
// always starts at 0 and ends at the length of the series; each pair of
// consecutive boundaries delimits one Segment.
type Segmentation []int

// Segment is a contiguous run of a series presumed to share one regime.
type Segment struct {
	Start  int
	End    int
	Values []float64
}

// Len is the number of values in the segment.
func (s Segment) Len() int { return s.End - s.Start }

// Mean of the segment values.
func (s Segment) Mean() float64 { return stats.Mean(s.Values) }

// StdDev is the sample standard deviation of the segment values.
func (s Segment) StdDev() float64 {
	if len(s.Values) < 2 {
		return 0
	}
	return stats.StdDev(s.Values)
}

// Count is the number of segments described by the boundaries.
func (s Segmentation) Count() int {
	if len(s) < 2 {
		return 0
	}
	return len(s) - 1
}

// ChangePoints returns the internal boundaries, excluding 0 and the end of
// the series.
func (s Segmentation) ChangePoints() []int {
	if len(s) <= 2 {
		return []int{}
	}
	out := make([]int, len(s)-2)
	copy(out, s[1:len(s)-1])
	return out
}

// Validate checks that the boundaries describe a partition of a series of
// length n.
func (s Segmentation) Validate(n int) error {
	if len(s) < 2 {
		return invalidInput("a segmentation needs at least two boundaries, got %d", len(s))
	}
	if s[0] != 0 {
		return invalidInput("segmentation must start at 0, not %d", s[0])
	}
	if s[len(s)-1] != n {
		return invalidInput("segmentation must end at the series length %d, not %d", n, s[len(s)-1])
	}
	for i := 1; i < len(s); i++ {
		if s[i] <= s[i-1] {
			return invalidInput("segmentation boundaries must be strictly increasing (%d follows %d)", s[i], s[i-1])
		}
	}
	return nil
}

// Segments slices values according to the boundaries. The segmentation is
// assumed to be valid for values.
func (s Segmentation) Segments(values []float64) []Segment {
	out := make([]Segment, 0, s.Count())
	for i := 1; i < len(s); i++ {
		out = append(out, Segment{
			Start:  s[i-1],
			End:    s[i],
			Values: values[s[i-1]:s[i]],
		})
	}
	return out
}

// Last returns the most recent segment.
func (s Segmentation) Last(values []float64) Segment {
	start, end := s[len(s)-2], s[len(s)-1]
	return Segment{Start: start, End: end, Values: values[start:end]}
}

// Diffs returns the relative difference of each segment mean from its
// predecessor, one entry per boundary: the first entry and the trailing
// sentinel are 0. A single segment yields [0].
func (s Segmentation) Diffs(values []float64) []float64 {
	return s.diffsBy(values, Segment.Mean)
}

func (s Segmentation) diffsBy(values []float64, center func(Segment) float64) []float64 {
	if s.Count() <= 1 {
		return []float64{0}
	}
	segments := s.Segments(values)
	out := make([]float64, len(s))
	for i := 1; i < len(segments); i++ {
		out[i] = relativeDiff(center(segments[i-1]), center(segments[i]))
	}
	return out
}

// relativeDiff is the signed change from prev to cur as a fraction of
// prev. A change away from zero saturates at ±1.
func relativeDiff(prev, cur float64) float64 {
	if prev == 0 {
		if cur == 0 {
			return 0
		}
		return math.Copysign(1, cur)
	}
	return (cur - prev) / math.Abs(prev)
}

// FindSegments partitions values into segments whose means differ by more
// than threshold at every boundary. The threshold is an absolute
// difference for ChangeTypeAbsolute and a percentage of the earlier mean
// for ChangeTypeRelative. The returned diffs are aligned with the
// boundaries (see Segmentation.Diffs).
func FindSegments(values []float64, changeType ChangeType, threshold float64, opts Options) (Segmentation, []float64, error) {
	opts.ChangeType = changeType
	opts.Threshold = threshold
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}
	if len(values) == 0 {
		return nil, nil, invalidInput("cannot segment an empty series")
	}
	if err := checkFinite(values); err != nil {
		return nil, nil, err
	}

	if len(values) < 2*opts.MinPoints {
		return Segmentation{0, len(values)}, []float64{0}, nil
	}

	seg := (&segmenter{values: values, opts: opts}).run()
	return seg, seg.Diffs(values), nil
}

type span struct {
	start int
	end   int
}

func (s span) length() int { return s.end - s.start }

type segmenter struct {
	values []float64
	opts   Options
}

// run splits ranges off an explicit work list until no range can or must
// be split.
func (s *segmenter) run() Segmentation {
	boundaries := Segmentation{0, len(s.values)}
	work := []span{{start: 0, end: len(s.values)}}
	for len(work) > 0 {
		r := work[len(work)-1]
		work = work[:len(work)-1]

		if r.length() < 2*s.opts.MinPoints {
			continue
		}
		index, ok := s.split(r)
		if !ok {
			continue
		}
		boundaries = append(boundaries, index)
		work = append(work, span{start: index, end: r.end}, span{start: r.start, end: index})
	}
	sort.Ints(boundaries)
	return boundaries
}

// split finds the boundary to place in r. Among candidates whose mean
// shift exceeds the threshold and whose Welch test is significant the
// strongest evidence wins, earliest first. When nothing qualifies and r
// is longer than MaxPoints, the strongest split is forced, preferring the
// one nearest the middle.
func (s *segmenter) split(r span) (int, bool) {
	sums := newPrefixSums(s.values[r.start:r.end])
	size := r.length()

	qualified, bestQualified := -1, -1.0
	forced, bestForced := -1, -1.0
	for at := s.opts.MinPoints; at <= size-s.opts.MinPoints; at++ {
		left := sums.moments(0, at)
		right := sums.moments(at, size)
		evidence, pvalue := welch(left, right)

		if s.shift(left.mean, right.mean) > s.opts.Threshold && pvalue < s.opts.Significance && evidence > bestQualified {
			qualified, bestQualified = at, evidence
		}
		if evidence > bestForced || (evidence == bestForced && centerDistance(at, size) < centerDistance(forced, size)) {
			forced, bestForced = at, evidence
		}
	}

	if qualified >= 0 {
		return r.start + qualified, true
	}
	if size > s.opts.MaxPoints {
		return r.start + forced, true
	}
	return 0, false
}

func (s *segmenter) shift(before, after float64) float64 {
	diff := math.Abs(after - before)
	if s.opts.ChangeType == ChangeTypeAbsolute {
		return diff
	}
	if before == 0 {
		if diff == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return 100 * diff / math.Abs(before)
}

func centerDistance(at, size int) int {
	d := 2*at - size
	if d < 0 {
		return -d
	}
	return d
}

type moments struct {
	n        float64
	mean     float64
	variance float64
}

// prefixSums holds running sums of values offset by the first value, which
// keeps the variance computation stable for large, tightly clustered
// measurements.
type prefixSums struct {
	offset  float64
	sum     []float64
	squares []float64
}

func newPrefixSums(values []float64) *prefixSums {
	p := &prefixSums{
		sum:     make([]float64, len(values)+1),
		squares: make([]float64, len(values)+1),
	}
	if len(values) > 0 {
		p.offset = values[0]
	}
	for i, v := range values {
		d := v - p.offset
		p.sum[i+1] = p.sum[i] + d
		p.squares[i+1] = p.squares[i] + d*d
	}
	return p
}

func (p *prefixSums) moments(from, to int) moments {
	n := float64(to - from)
	sum := p.sum[to] - p.sum[from]
	squares := p.squares[to] - p.squares[from]

	m := moments{n: n, mean: sum/n + p.offset}
	if n > 1 {
		m.variance = math.Max(0, (squares-sum*sum/n)/(n-1))
	}
	return m
}

// welch returns the absolute Welch t statistic for a difference of means
// between the two sides and its two-sided p-value.
func welch(left, right moments) (float64, float64) {
	diff := math.Abs(right.mean - left.mean)
	leftErr := left.variance / left.n
	rightErr := right.variance / right.n
	stderr := leftErr + rightErr

	if stderr == 0 {
		if diff == 0 {
			return 0, 1
		}
		return math.Inf(1), 0
	}

	t := diff / math.Sqrt(stderr)
	df := stderr * stderr / (leftErr*leftErr/(left.n-1) + rightErr*rightErr/(right.n-1))
	pvalue := 2 * distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}.Survival(t)

	return t, pvalue
}

func checkFinite(values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalidInput("value at index %d is not a finite number", i)
		}
	}
	return nil
}
