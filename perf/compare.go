package perf

import "math"

// Comparison reports whether a freshly computed segmentation agrees with a
// reference one. The unmatched diffs are only set on disagreement, and only
// when the corresponding side has a boundary without a counterpart.
type Comparison struct {
	IsDiff bool `bson:"is_diff" json:"is_diff" yaml:"is_diff"`
	// MaxExtraDiff is the largest |diff| at a new boundary missing from
	// the reference.
	MaxExtraDiff *float64 `bson:"max_extra_diff,omitempty" json:"max_extra_diff,omitempty" yaml:"max_extra_diff,omitempty"`
	// MaxMissingDiff is the largest |diff| at a reference boundary the
	// new segmentation did not find.
	MaxMissingDiff *float64 `bson:"max_missing_diff,omitempty" json:"max_missing_diff,omitempty" yaml:"max_missing_diff,omitempty"`
}

// IsDiff reports whether two segmentations disagree: they differ in size,
// or some boundary of either one has no counterpart in the other within
// tolerance positions.
func IsDiff(a, b Segmentation, tolerance int) bool {
	if len(a) != len(b) {
		return true
	}
	for _, boundary := range a {
		if !hasCounterpart(boundary, b, tolerance) {
			return true
		}
	}
	for _, boundary := range b {
		if !hasCounterpart(boundary, a, tolerance) {
			return true
		}
	}
	return false
}

// MaxUnmatchedDiff returns the largest |diff| among the boundaries of a
// without a counterpart in b within tolerance. diffsA is aligned with a;
// boundaries past the end of diffsA count as 0. The boolean is false when
// every boundary of a is matched.
func MaxUnmatchedDiff(a Segmentation, diffsA []float64, b Segmentation, tolerance int) (float64, bool) {
	max, found := 0.0, false
	for i, boundary := range a {
		if hasCounterpart(boundary, b, tolerance) {
			continue
		}
		var diff float64
		if i < len(diffsA) {
			diff = math.Abs(diffsA[i])
		}
		if !found || diff > max {
			max, found = diff, true
		}
	}
	return max, found
}

// Compare checks a new segmentation against a reference and, on
// disagreement, measures the largest unexplained shift on each side.
func Compare(newSeg Segmentation, newDiffs []float64, refSeg Segmentation, refDiffs []float64, tolerance int) Comparison {
	out := Comparison{IsDiff: IsDiff(newSeg, refSeg, tolerance)}
	if !out.IsDiff {
		return out
	}
	if extra, ok := MaxUnmatchedDiff(newSeg, newDiffs, refSeg, tolerance); ok {
		out.MaxExtraDiff = &extra
	}
	if missing, ok := MaxUnmatchedDiff(refSeg, refDiffs, newSeg, tolerance); ok {
		out.MaxMissingDiff = &missing
	}
	return out
}

func hasCounterpart(boundary int, other Segmentation, tolerance int) bool {
	for _, candidate := range other {
		if boundary-tolerance <= candidate && candidate <= boundary+tolerance {
			return true
		}
	}
	return false
}
