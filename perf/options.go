package perf

import (
	"math"
	"strings"

	"github.com/mongodb/grip"
	"github.com/pkg/errors"
)

// ChangeType selects how the shift between two segment means is measured.
type ChangeType string

const (
	// ChangeTypeAbsolute compares the plain difference of the means.
	ChangeTypeAbsolute ChangeType = "absolute"
	// ChangeTypeRelative compares the difference of the means as a
	// percentage of the earlier mean.
	ChangeTypeRelative ChangeType = "relative"
)

// Validate returns an error if the change type is not one of the known
// values.
func (t ChangeType) Validate() error {
	switch t {
	case ChangeTypeAbsolute, ChangeTypeRelative:
		return nil
	default:
		return errors.Errorf("invalid change type '%s'", t)
	}
}

// ParseChangeType converts a user or database supplied value into a
// ChangeType. The empty string maps to ChangeTypeRelative, which is the
// default for alerting thresholds.
func ParseChangeType(in string) (ChangeType, error) {
	switch strings.ToLower(strings.TrimSpace(in)) {
	case "", "relative", "percentage", "0":
		return ChangeTypeRelative, nil
	case "absolute", "1":
		return ChangeTypeAbsolute, nil
	default:
		return "", invalidInput("unknown change type '%s'", in)
	}
}

const (
	DefaultMinPoints    = 10
	DefaultMaxPoints    = 150
	DefaultIgnoreTop    = 3
	DefaultSignificance = 0.01
)

// Options collects the tuning scalars used by the segmenter, the trimmer
// and the comparator.
type Options struct {
	ChangeType ChangeType `bson:"change_type" json:"change_type" yaml:"change_type"`
	Threshold  float64    `bson:"threshold" json:"threshold" yaml:"threshold"`
	// MinPoints is the smallest segment the segmenter will produce.
	MinPoints int `bson:"min_points" json:"min_points" yaml:"min_points"`
	// MaxPoints is the largest segment the segmenter will leave unsplit.
	MaxPoints int `bson:"max_points" json:"max_points" yaml:"max_points"`
	// IgnoreTop is the number of values trimmed from each end of a
	// sample before computing noise or deviance.
	IgnoreTop int `bson:"ignore_top" json:"ignore_top" yaml:"ignore_top"`
	// Tolerance is the number of pushes two boundaries may be apart and
	// still be considered the same change point. Zero means MinPoints.
	Tolerance    int     `bson:"tolerance" json:"tolerance" yaml:"tolerance"`
	Significance float64 `bson:"significance" json:"significance" yaml:"significance"`
}

// DefaultOptions returns options with every scalar set to its default and
// the given change type and threshold.
func DefaultOptions(changeType ChangeType, threshold float64) Options {
	return Options{
		ChangeType:   changeType,
		Threshold:    threshold,
		MinPoints:    DefaultMinPoints,
		MaxPoints:    DefaultMaxPoints,
		IgnoreTop:    DefaultIgnoreTop,
		Tolerance:    DefaultMinPoints,
		Significance: DefaultSignificance,
	}
}

// Validate fills in unset defaults and checks that the options are
// consistent with each other.
func (o *Options) Validate() error {
	if o.ChangeType == "" {
		o.ChangeType = ChangeTypeRelative
	}
	if o.MinPoints == 0 {
		o.MinPoints = DefaultMinPoints
	}
	if o.MaxPoints == 0 {
		o.MaxPoints = DefaultMaxPoints
	}
	if o.Tolerance == 0 {
		o.Tolerance = o.MinPoints
	}
	if o.Significance == 0 {
		o.Significance = DefaultSignificance
	}

	catcher := grip.NewBasicCatcher()
	catcher.Add(o.ChangeType.Validate())
	catcher.NewWhen(o.Threshold <= 0 || math.IsNaN(o.Threshold) || math.IsInf(o.Threshold, 0), "threshold must be a positive number")
	catcher.NewWhen(o.MinPoints < 2, "min points must be at least 2")
	catcher.NewWhen(o.MaxPoints < 2*o.MinPoints, "max points must be at least twice min points")
	catcher.NewWhen(o.IgnoreTop < 0, "ignore top cannot be negative")
	catcher.NewWhen(o.MinPoints < 2*o.IgnoreTop+2, "min points must leave at least two values after trimming")
	catcher.NewWhen(o.Tolerance < 0, "tolerance cannot be negative")
	catcher.NewWhen(o.Significance <= 0 || o.Significance > 1, "significance must be in (0, 1]")
	if catcher.HasErrors() {
		return invalidInput("%s", catcher.Resolve().Error())
	}

	return nil
}
