package perf

// ChangeDetector types calculate change points.
type ChangeDetector interface {
	DetectChanges([]float64) ([]ChangePoint, error)
}

// ChangePoint is an internal segment boundary together with the relative
// shift of the segment it starts.
type ChangePoint struct {
	Index int           `bson:"index" json:"index" yaml:"index"`
	Diff  float64       `bson:"diff" json:"diff" yaml:"diff"`
	Info  AlgorithmInfo `bson:"algorithm" json:"algorithm" yaml:"algorithm"`
}

type AlgorithmInfo struct {
	Name    string            `bson:"name" json:"name" yaml:"name"`
	Version int               `bson:"version" json:"version" yaml:"version"`
	Options []AlgorithmOption `bson:"options" json:"options" yaml:"options"`
}

type AlgorithmOption struct {
	Name  string      `bson:"name" json:"name" yaml:"name"`
	Value interface{} `bson:"value" json:"value" yaml:"value"`
}
