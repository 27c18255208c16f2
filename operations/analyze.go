package operations

import (
	"io/ioutil"
	"os"

	"github.com/evergreen-ci/deviant/perf"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
	yaml "gopkg.in/yaml.v2"
)

// seriesInput is the file format read by the analyze command. YAML is a
// superset of JSON, so both are accepted.
type seriesInput struct {
	Values []float64 `json:"values" yaml:"values"`
	// Reference lists the indexes known to start a new regime.
	Reference []int `json:"reference,omitempty" yaml:"reference,omitempty"`
}

func readSeriesInput(path string) (*seriesInput, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading '%s'", path)
	}

	in := &seriesInput{}
	if err = yaml.Unmarshal(data, in); err != nil {
		return nil, errors.Wrapf(err, "parsing '%s'", path)
	}
	return in, nil
}

func analyzeSeries(in *seriesInput, opts perf.Options) (*perf.Analysis, error) {
	analyzer, err := perf.NewAnalyzer(opts, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var reference perf.Segmentation
	if in.Reference != nil {
		reference, err = perf.ReferenceSegmentation(len(in.Values), in.Reference)
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}

	analysis, err := analyzer.Analyze(in.Values, reference)
	return analysis, errors.WithStack(err)
}

func optionsFromFlags(c *cli.Context) (perf.Options, error) {
	changeType, err := perf.ParseChangeType(c.String(changeTypeFlag))
	if err != nil {
		return perf.Options{}, errors.WithStack(err)
	}

	opts := perf.DefaultOptions(changeType, c.Float64(thresholdFlag))
	if c.IsSet(minPointsFlag) {
		opts.MinPoints = c.Int(minPointsFlag)
		opts.Tolerance = opts.MinPoints
	}
	if c.IsSet(maxPointsFlag) {
		opts.MaxPoints = c.Int(maxPointsFlag)
	}
	opts.IgnoreTop = c.Int(ignoreTopFlag)
	return opts, errors.WithStack(opts.Validate())
}

// Analyze returns the ./deviant analyze command, which runs the segmenter
// and the deviance classifier over a local file and prints the result. It
// needs no database.
func Analyze() cli.Command {
	return cli.Command{
		Name:   "analyze",
		Usage:  "segment and classify a series read from a JSON or YAML file",
		Flags:  mergeFlags(addPathFlag(), analysisFlags()),
		Before: mergeBeforeFuncs(setFlagOrFirstPositional(pathFlagName), requireFileExists(pathFlagName)),
		Action: func(c *cli.Context) error {
			opts, err := optionsFromFlags(c)
			if err != nil {
				return errors.Wrap(err, "problem reading analysis options")
			}

			in, err := readSeriesInput(c.String(pathFlagName))
			if err != nil {
				return errors.WithStack(err)
			}

			analysis, err := analyzeSeries(in, opts)
			if err != nil {
				return errors.Wrap(err, "problem analyzing series")
			}

			return errors.WithStack(writeJSON(os.Stdout, analysis))
		},
	}
}
