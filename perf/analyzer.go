package perf

import "github.com/pkg/errors"

// Analysis is everything the analyzer learns about one series.
type Analysis struct {
	NumPoints    int           `bson:"num_points" json:"num_points" yaml:"num_points"`
	Segmentation Segmentation  `bson:"segmentation" json:"segmentation" yaml:"segmentation"`
	Diffs        []float64     `bson:"diffs" json:"diffs" yaml:"diffs"`
	ChangePoints []ChangePoint `bson:"change_points" json:"change_points" yaml:"change_points"`

	// The last segment fields are nil when the series has a single
	// segment: there is no earlier regime to judge it against.
	LastMean        *float64        `bson:"last_mean,omitempty" json:"last_mean,omitempty" yaml:"last_mean,omitempty"`
	LastStd         *float64        `bson:"last_std,omitempty" json:"last_std,omitempty" yaml:"last_std,omitempty"`
	RelativeNoise   *float64        `bson:"relative_noise,omitempty" json:"relative_noise,omitempty" yaml:"relative_noise,omitempty"`
	LastDeviance    *DevianceResult `bson:"last_deviance,omitempty" json:"last_deviance,omitempty" yaml:"last_deviance,omitempty"`
	OverallDeviance *DevianceResult `bson:"overall_deviance,omitempty" json:"overall_deviance,omitempty" yaml:"overall_deviance,omitempty"`

	Reference      Segmentation `bson:"reference,omitempty" json:"reference,omitempty" yaml:"reference,omitempty"`
	ReferenceDiffs []float64    `bson:"reference_diffs,omitempty" json:"reference_diffs,omitempty" yaml:"reference_diffs,omitempty"`
	Comparison     *Comparison  `bson:"comparison,omitempty" json:"comparison,omitempty" yaml:"comparison,omitempty"`

	Algorithm AlgorithmInfo `bson:"algorithm" json:"algorithm" yaml:"algorithm"`
}

// Analyzer runs the segmenter, the classifier and the comparator over a
// series with one set of options.
type Analyzer struct {
	opts     Options
	detector *stepDetector
	cache    *DevianceCache
}

// NewAnalyzer validates opts and returns an analyzer. The cache is
// optional; when set, deviance results are shared through it.
func NewAnalyzer(opts Options, cache *DevianceCache) (*Analyzer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return &Analyzer{
		opts:     opts,
		detector: newStepDetector(opts),
		cache:    cache,
	}, nil
}

// Options returns the validated options of the analyzer.
func (a *Analyzer) Options() Options { return a.opts }

// Analyze segments values, describes the last segment and the normalized
// history, and, when reference is not nil, compares the segmentation
// against it.
func (a *Analyzer) Analyze(values []float64, reference Segmentation) (*Analysis, error) {
	seg, diffs, err := FindSegments(values, a.opts.ChangeType, a.opts.Threshold, a.opts)
	if err != nil {
		return nil, errors.Wrap(err, "finding segments")
	}

	out := &Analysis{
		NumPoints:    len(values),
		Segmentation: seg,
		Diffs:        diffs,
		ChangePoints: a.detector.changePoints(seg, diffs),
		Algorithm:    a.detector.info,
	}

	if seg.Count() > 1 {
		if err = a.describeLast(out, values); err != nil {
			return nil, errors.Wrap(err, "describing last segment")
		}
		if err = a.describeOverall(out, values); err != nil {
			return nil, errors.Wrap(err, "describing normalized history")
		}
	}

	if reference != nil {
		if err = reference.Validate(len(values)); err != nil {
			return nil, errors.Wrap(err, "checking reference segmentation")
		}
		out.Reference = reference
		out.ReferenceDiffs = reference.MedianDiffs(values)
		comparison := Compare(seg, diffs, reference, out.ReferenceDiffs, a.opts.Tolerance)
		out.Comparison = &comparison
	}

	return out, nil
}

func (a *Analyzer) describeLast(out *Analysis, values []float64) error {
	last := out.Segmentation.Last(values)
	mean, std := last.Mean(), last.StdDev()
	out.LastMean, out.LastStd = &mean, &std

	trimmed, err := Trim(last.Values, a.opts.IgnoreTop)
	if err != nil {
		return err
	}
	dev, err := a.deviance(trimmed)
	if err != nil {
		return err
	}
	out.LastDeviance = &dev

	if noise, ok := RelativeNoise(trimmed); ok {
		out.RelativeNoise = &noise
	}
	return nil
}

func (a *Analyzer) describeOverall(out *Analysis, values []float64) error {
	normalized, err := Normalize(values, out.Segmentation)
	if err != nil {
		return err
	}
	trimmed, err := Trim(normalized, a.opts.IgnoreTop)
	if err != nil {
		return err
	}
	dev, err := a.deviance(trimmed)
	if err != nil {
		return err
	}
	out.OverallDeviance = &dev
	return nil
}

func (a *Analyzer) deviance(sample []float64) (DevianceResult, error) {
	if a.cache != nil {
		return a.cache.Deviance(sample)
	}
	return Deviance(sample)
}
