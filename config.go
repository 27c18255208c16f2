package deviant

import (
	"io/ioutil"
	"time"

	"github.com/evergreen-ci/deviant/perf"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

const (
	defaultDialTimeout   = 2 * time.Second
	defaultLookBack      = 90 * 24 * time.Hour
	defaultStaleAfter    = 3 * 24 * time.Hour
	defaultMaxRuntime    = 50 * time.Minute
	defaultDownloadLimit = 5000
	defaultNumWorkers    = 5
	defaultDatabaseName  = "deviant"
)

// Configuration holds everything a deviant process needs to connect to its
// database, run jobs and analyze series.
type Configuration struct {
	MongoDBURI         string        `yaml:"mongodb_uri"`
	DatabaseName       string        `yaml:"database_name"`
	MongoDBDialTimeout time.Duration `yaml:"dial_timeout"`
	NumWorkers         int           `yaml:"num_workers"`
	// MaxRuntime bounds a single scan over stale signatures.
	MaxRuntime time.Duration  `yaml:"max_runtime"`
	Analysis   AnalysisConfig `yaml:"analysis"`
	Triage     TriageConfig   `yaml:"triage"`
}

// AnalysisConfig describes which data is analyzed and how. The change type
// and threshold are not set here: they come from each signature.
type AnalysisConfig struct {
	// Repositories limits the scan to signatures with data in these
	// repositories; empty means all of them.
	Repositories  []string      `yaml:"repositories"`
	LookBack      time.Duration `yaml:"look_back"`
	StaleAfter    time.Duration `yaml:"stale_after"`
	DownloadLimit int           `yaml:"download_limit"`
	MinPoints     int           `yaml:"min_points"`
	MaxPoints     int           `yaml:"max_points"`
	IgnoreTop     int           `yaml:"ignore_top"`
	Tolerance     int           `yaml:"tolerance"`
	Significance  float64       `yaml:"significance"`
}

// TriageConfig points at the service that receives each saved summary.
// Reporting is disabled when BaseURL is empty.
type TriageConfig struct {
	BaseURL string `yaml:"base_url"`
	User    string `yaml:"user"`
	Token   string `yaml:"token"`
}

// Enabled reports whether summaries should be sent to the triage service.
func (c TriageConfig) Enabled() bool { return c.BaseURL != "" }

// Options builds the analysis options for a signature with the given alert
// change type and threshold.
func (c AnalysisConfig) Options(changeType perf.ChangeType, threshold float64) perf.Options {
	return perf.Options{
		ChangeType:   changeType,
		Threshold:    threshold,
		MinPoints:    c.MinPoints,
		MaxPoints:    c.MaxPoints,
		IgnoreTop:    c.IgnoreTop,
		Tolerance:    c.Tolerance,
		Significance: c.Significance,
	}
}

// LoadConfiguration reads a YAML configuration file. The result is not
// validated.
func LoadConfiguration(path string) (*Configuration, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading configuration file '%s'", path)
	}

	conf := &Configuration{}
	if err = yaml.Unmarshal(data, conf); err != nil {
		return nil, errors.Wrapf(err, "parsing configuration file '%s'", path)
	}

	return conf, nil
}

// Validate fills unset values with their defaults and checks the rest.
func (c *Configuration) Validate() error {
	catcher := grip.NewBasicCatcher()

	if c.MongoDBURI == "" {
		catcher.New("must specify a mongodb url")
	}
	if c.NumWorkers < 0 {
		catcher.New("must specify a valid number of amboy workers")
	}
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.DatabaseName == "" {
		c.DatabaseName = defaultDatabaseName
	}
	if c.MongoDBDialTimeout <= 0 {
		c.MongoDBDialTimeout = defaultDialTimeout
	}
	if c.MaxRuntime <= 0 {
		c.MaxRuntime = defaultMaxRuntime
	}
	catcher.Wrap(c.Analysis.Validate(), "invalid analysis configuration")
	catcher.NewWhen(c.Triage.Enabled() && (c.Triage.User == "" || c.Triage.Token == ""),
		"triage reporting requires a user and a token")

	return catcher.Resolve()
}

// Validate fills unset values with their defaults and checks that the
// analysis options are consistent.
func (c *AnalysisConfig) Validate() error {
	if c.LookBack <= 0 {
		c.LookBack = defaultLookBack
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = defaultStaleAfter
	}
	if c.DownloadLimit <= 0 {
		c.DownloadLimit = defaultDownloadLimit
	}
	if c.IgnoreTop == 0 {
		c.IgnoreTop = perf.DefaultIgnoreTop
	}

	// any positive threshold checks the rest of the options
	opts := c.Options(perf.ChangeTypeRelative, 1)
	if err := opts.Validate(); err != nil {
		return errors.WithStack(err)
	}
	c.MinPoints = opts.MinPoints
	c.MaxPoints = opts.MaxPoints
	c.Tolerance = opts.Tolerance
	c.Significance = opts.Significance

	return nil
}
