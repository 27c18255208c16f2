package operations

import (
	"strings"

	"github.com/evergreen-ci/deviant/perf"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

////////////////////////////////////////////////////////////////////////
//
// Flag Name Constants

const (
	configFlag     = "config"
	pathFlagName   = "path"
	numWorkersFlag = "workers"
	limitFlag      = "limit"
	categoryFlag   = "category"
	signatureFlag  = "id"

	changeTypeFlag = "changeType"
	thresholdFlag  = "threshold"
	minPointsFlag  = "minPoints"
	maxPointsFlag  = "maxPoints"
	ignoreTopFlag  = "ignoreTop"

	dbURIFlag  = "dbUri"
	dbNameFlag = "dbName"
)

////////////////////////////////////////////////////////////////////////
//
// Utility Functions

func joinFlagNames(ids ...string) string { return strings.Join(ids, ", ") }

func mergeFlags(in ...[]cli.Flag) []cli.Flag {
	out := []cli.Flag{}

	for idx := range in {
		out = append(out, in[idx]...)
	}

	return out
}

////////////////////////////////////////////////////////////////////////
//
// Flag Groups

func addPathFlag(flags ...cli.Flag) []cli.Flag {
	return append(flags, cli.StringFlag{
		Name:  joinFlagNames(pathFlagName, "filename", "file", "f"),
		Usage: "path to a JSON or YAML series file",
	})
}

func dbFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		cli.StringFlag{
			Name:   dbURIFlag,
			Usage:  "specify a mongodb connection string",
			Value:  "mongodb://localhost:27017",
			EnvVar: "DEVIANT_MONGODB_URL",
		},
		cli.StringFlag{
			Name:   dbNameFlag,
			Usage:  "specify a database name to use",
			Value:  "deviant",
			EnvVar: "DEVIANT_DATABASE_NAME",
		})
}

func baseFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		cli.StringFlag{
			Name:   configFlag,
			Usage:  "path to a deviant YAML configuration file",
			EnvVar: "DEVIANT_CONFIG",
		},
		cli.IntFlag{
			Name:  numWorkersFlag,
			Usage: "specify the number of worker jobs this process will have",
		})
}

func analysisFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		cli.StringFlag{
			Name:  changeTypeFlag,
			Usage: "how step sizes are measured: 'relative' (percent) or 'absolute'",
			Value: "relative",
		},
		cli.Float64Flag{
			Name:  thresholdFlag,
			Usage: "smallest step worth reporting",
			Value: 2,
		},
		cli.IntFlag{
			Name:  minPointsFlag,
			Usage: "smallest segment the segmenter may produce",
		},
		cli.IntFlag{
			Name:  maxPointsFlag,
			Usage: "largest window the segmenter searches at once",
		},
		cli.IntFlag{
			Name:  ignoreTopFlag,
			Usage: "values trimmed from each end of a segment before classifying it",
			Value: perf.DefaultIgnoreTop,
		})
}

func scanFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags, cli.IntSliceFlag{
		Name:  signatureFlag,
		Usage: "summarize these signatures now, whether or not their summaries are stale; may be repeated",
	})
}

func showFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		cli.StringSliceFlag{
			Name:  categoryFlag,
			Usage: "triage listings to print, may be repeated (default all)",
		},
		cli.IntFlag{
			Name:  limitFlag,
			Usage: "maximum number of summaries per listing",
			Value: 10,
		})
}

func setFlagOrFirstPositional(name string) cli.BeforeFunc {
	return func(c *cli.Context) error {
		val := c.String(name)
		if val == "" {
			if c.NArg() != 1 {
				return errors.Errorf("must specify exactly one positional argument for '%s'", name)
			}

			val = c.Args().Get(0)
		}

		return c.Set(name, val)
	}
}
