package perf

const (
	stepDetectorName    = "step_detector"
	stepDetectorVersion = 1
)

type stepDetector struct {
	opts Options
	info AlgorithmInfo
}

// NewStepDetector returns the segmenter as a ChangeDetector. The change
// points it reports are the internal boundaries of FindSegments.
func NewStepDetector(opts Options) (ChangeDetector, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return newStepDetector(opts), nil
}

func newStepDetector(opts Options) *stepDetector {
	return &stepDetector{
		opts: opts,
		info: AlgorithmInfo{
			Name:    stepDetectorName,
			Version: stepDetectorVersion,
			Options: []AlgorithmOption{
				{Name: "change_type", Value: string(opts.ChangeType)},
				{Name: "threshold", Value: opts.Threshold},
				{Name: "min_points", Value: opts.MinPoints},
				{Name: "max_points", Value: opts.MaxPoints},
				{Name: "significance", Value: opts.Significance},
			},
		},
	}
}

func (d *stepDetector) DetectChanges(series []float64) ([]ChangePoint, error) {
	seg, diffs, err := FindSegments(series, d.opts.ChangeType, d.opts.Threshold, d.opts)
	if err != nil {
		return nil, err
	}
	return d.changePoints(seg, diffs), nil
}

func (d *stepDetector) changePoints(seg Segmentation, diffs []float64) []ChangePoint {
	out := make([]ChangePoint, 0, seg.Count()-1)
	for i := 1; i < len(seg)-1; i++ {
		out = append(out, ChangePoint{
			Index: seg[i],
			Diff:  diffs[i],
			Info:  d.info,
		})
	}
	return out
}
