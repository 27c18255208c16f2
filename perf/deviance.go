package perf

import (
	"math"

	"github.com/aclements/go-moremath/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// Status buckets the shape of a sample for triage.
type Status string

const (
	// StatusOK is a roughly symmetric unimodal sample.
	StatusOK Status = "OK"
	// StatusModal is a sample with more than one cluster of values.
	StatusModal Status = "MODAL"
	// StatusOutliers is a unimodal sample with points far from the bulk.
	StatusOutliers Status = "OUTLIERS"
	// StatusSkewed is a unimodal sample without strong outliers that is
	// asymmetric around its center.
	StatusSkewed Status = "SKEWED"
)

func (s Status) String() string { return string(s) }

// Validate returns an error if the status is not one of the known values.
func (s Status) Validate() error {
	switch s {
	case StatusOK, StatusModal, StatusOutliers, StatusSkewed:
		return nil
	default:
		return errors.Errorf("invalid deviance status '%s'", s)
	}
}

// Statuses lists every status in decreasing order of severity.
func Statuses() []Status {
	return []Status{StatusModal, StatusOutliers, StatusSkewed, StatusOK}
}

const (
	modalSeparationLimit = 3.0
	outlierLimit         = 4.0
	skewLimit            = 1.0

	// madScale makes the median absolute deviation comparable to a
	// standard deviation for normally distributed data.
	madScale = 1.4826
	// meanDeviationScale does the same for the mean absolute deviation.
	meanDeviationScale = 1.2533
	// spreadFloor bounds cluster spreads from below, as a fraction of the
	// whole sample spread, so that tight clusters yield finite scores.
	spreadFloor = 0.01
)

// DevianceResult pairs a status with a score whose magnitude says how
// strongly the sample exhibits that status.
type DevianceResult struct {
	Status Status  `bson:"status" json:"status" yaml:"status"`
	Score  float64 `bson:"score" json:"score" yaml:"score"`
}

// Deviance classifies the shape of sample. Checks run in order of
// severity: multiple modes, then outliers, then skew; a sample that passes
// all of them is OK and scored by its (small) skewness.
func Deviance(sample []float64) (DevianceResult, error) {
	if len(sample) < 2 {
		return DevianceResult{}, errors.WithStack(&DegenerateSampleError{Size: len(sample)})
	}
	if err := checkFinite(sample); err != nil {
		return DevianceResult{}, err
	}

	sorted := *newSortedList(sample)
	if sorted[0] == sorted[len(sorted)-1] {
		return DevianceResult{Status: StatusOK}, nil
	}
	_, std := stat.PopMeanStdDev(sorted, nil)

	if separation := modeSeparation(sorted, std); separation > modalSeparationLimit {
		return DevianceResult{Status: StatusModal, Score: separation}, nil
	}
	if extremity := outlierExtremity(sorted); extremity > outlierLimit {
		return DevianceResult{Status: StatusOutliers, Score: extremity}, nil
	}

	skew := skewness(sorted)
	if math.Abs(skew) > skewLimit {
		return DevianceResult{Status: StatusSkewed, Score: skew}, nil
	}
	return DevianceResult{Status: StatusOK, Score: skew}, nil
}

// modeSeparation looks for the widest gap between two clusters of sorted
// values, each holding at least a tenth of the sample (and never fewer than
// two points), relative to the spread inside the clusters. Spreads never go
// below the resolution of the sample, so neighboring levels of quantized
// measurements score at most 1.
func modeSeparation(sorted sortedList, std float64) float64 {
	n := len(sorted)
	minCluster := int(math.Ceil(float64(n) / 10))
	if minCluster < 2 {
		minCluster = 2
	}
	if n < 2*minCluster {
		return 0
	}

	sums := newPrefixSums(sorted)
	floor := math.Max(spreadFloor*std, resolution(sorted))
	best := 0.0
	for at := minCluster; at <= n-minCluster; at++ {
		gap := sorted[at] - sorted[at-1]
		if gap == 0 {
			continue
		}
		spread := math.Max(floor, math.Max(
			math.Sqrt(sums.moments(0, at).variance),
			math.Sqrt(sums.moments(at, n).variance),
		))
		if separation := gap / spread; separation > best {
			best = separation
		}
	}
	return best
}

// resolution is the smallest nonzero gap between neighboring values.
func resolution(sorted sortedList) float64 {
	out := math.Inf(1)
	for i := 1; i < len(sorted); i++ {
		if gap := sorted[i] - sorted[i-1]; gap > 0 && gap < out {
			out = gap
		}
	}
	if math.IsInf(out, 1) {
		return 0
	}
	return out
}

// outlierExtremity is the robust z-score of the point furthest from the
// median, using the scaled median absolute deviation. Samples whose bulk is
// a single repeated value have no such deviation and use the scaled mean
// absolute deviation around the median instead.
func outlierExtremity(sorted sortedList) float64 {
	median := stats.Sample{Xs: sorted, Sorted: true}.Quantile(0.5)

	deviations := make(sortedList, 0, len(sorted))
	for _, v := range sorted {
		deviations.Insert(math.Abs(v - median))
	}

	scale := madScale * deviations.Median()
	if scale == 0 {
		scale = meanDeviationScale * stats.Mean(deviations)
	}
	if scale == 0 {
		return 0
	}
	return deviations[len(deviations)-1] / scale
}

func skewness(sorted sortedList) float64 {
	if len(sorted) < 3 {
		return 0
	}
	return stat.Skew(sorted, nil)
}

// RelativeNoise is the coefficient of variation (population standard
// deviation over mean) of sample. It is undefined, and reported as not ok,
// for empty samples and samples with a zero mean.
func RelativeNoise(sample []float64) (float64, bool) {
	if len(sample) == 0 {
		return 0, false
	}
	mean, std := stat.PopMeanStdDev(sample, nil)
	if mean == 0 || math.IsNaN(mean) {
		return 0, false
	}
	return std / mean, true
}
