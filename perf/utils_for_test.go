package perf

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"math"
	"math/rand"
	"os"
	"strings"

	"github.com/mongodb/grip"
)

const defaultSeed = 12345678

type SegmentsFixture struct {
	Series     []float64  `json:"series"`
	Expected   []int      `json:"expected"`
	ChangeType ChangeType `json:"change_type"`
	Threshold  float64    `json:"threshold"`
	MinPoints  int        `json:"min_points"`
	MaxPoints  int        `json:"max_points"`
}

func (f *SegmentsFixture) Options() Options {
	return Options{
		ChangeType: f.ChangeType,
		Threshold:  f.Threshold,
		MinPoints:  f.MinPoints,
		MaxPoints:  f.MaxPoints,
		IgnoreTop:  1,
	}
}

func LoadFixture(testName string, fixture interface{}) error {
	parts := strings.Split(testName, "/")
	testName = parts[len(parts)-1]

	fixtureName := fmt.Sprintf("testdata/%s.json", testName)
	jsonFile, err := os.Open(fixtureName)
	if err != nil {
		return err
	}
	defer func() { grip.Alert(jsonFile.Close()) }()

	byteValue, err := ioutil.ReadAll(jsonFile)
	if err != nil {
		return err
	}

	return json.Unmarshal(byteValue, fixture)
}

// steppedSeries returns a series made of the given levels, each held for
// width points, with uniform noise of the given amplitude.
func steppedSeries(seed int64, width int, noise float64, levels ...float64) []float64 {
	r := rand.New(rand.NewSource(seed))
	out := make([]float64, 0, width*len(levels))
	for _, level := range levels {
		for i := 0; i < width; i++ {
			out = append(out, level+noise*(2*r.Float64()-1))
		}
	}
	return out
}

func repeat(value float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func posInf() float64 { return math.Inf(1) }
