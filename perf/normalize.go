package perf

// Normalize rescales every segment of values onto the mean and standard
// deviation of the last segment and concatenates the result, so the whole
// history can be judged as a single distribution. Segments are only
// shifted when either they or the last segment have no spread. A single segment is returned as an unchanged copy.
func Normalize(values []float64, seg Segmentation) ([]float64, error) {
	if err := seg.Validate(len(values)); err != nil {
		return nil, err
	}
	if err := checkFinite(values); err != nil {
		return nil, err
	}

	out := make([]float64, 0, len(values))
	if seg.Count() == 1 {
		return append(out, values...), nil
	}

	last := seg.Last(values)
	targetMean, targetStd := last.Mean(), last.StdDev()
	for _, segment := range seg.Segments(values) {
		mean, std := segment.Mean(), segment.StdDev()
		for _, v := range segment.Values {
			if std == 0 || targetStd == 0 {
				out = append(out, v+targetMean-mean)
				continue
			}
			out = append(out, (v-mean)*targetStd/std+targetMean)
		}
	}
	return out, nil
}
