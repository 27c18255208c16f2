package deviant

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/evergreen-ci/deviant/perf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationValidate(t *testing.T) {
	t.Run("FillsDefaults", func(t *testing.T) {
		conf := &Configuration{MongoDBURI: "mongodb://localhost:27017"}
		require.NoError(t, conf.Validate())
		assert.Equal(t, defaultDatabaseName, conf.DatabaseName)
		assert.Equal(t, defaultNumWorkers, conf.NumWorkers)
		assert.Equal(t, defaultDialTimeout, conf.MongoDBDialTimeout)
		assert.Equal(t, defaultMaxRuntime, conf.MaxRuntime)
		assert.Equal(t, defaultLookBack, conf.Analysis.LookBack)
		assert.Equal(t, defaultStaleAfter, conf.Analysis.StaleAfter)
		assert.Equal(t, defaultDownloadLimit, conf.Analysis.DownloadLimit)
		assert.Equal(t, perf.DefaultMinPoints, conf.Analysis.MinPoints)
		assert.Equal(t, perf.DefaultMaxPoints, conf.Analysis.MaxPoints)
		assert.Equal(t, perf.DefaultIgnoreTop, conf.Analysis.IgnoreTop)
		assert.Equal(t, perf.DefaultMinPoints, conf.Analysis.Tolerance)
		assert.Equal(t, perf.DefaultSignificance, conf.Analysis.Significance)
		assert.False(t, conf.Triage.Enabled())
	})
	t.Run("CollectsErrors", func(t *testing.T) {
		conf := &Configuration{
			NumWorkers: -1,
			Analysis:   AnalysisConfig{MinPoints: 10, MaxPoints: 5},
			Triage:     TriageConfig{BaseURL: "http://localhost"},
		}
		err := conf.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mongodb url")
		assert.Contains(t, err.Error(), "amboy workers")
		assert.Contains(t, err.Error(), "analysis")
		assert.Contains(t, err.Error(), "triage")
	})
	t.Run("Options", func(t *testing.T) {
		conf := AnalysisConfig{MinPoints: 6, MaxPoints: 20, IgnoreTop: 2}
		require.NoError(t, conf.Validate())
		opts := conf.Options(perf.ChangeTypeAbsolute, 4)
		assert.Equal(t, perf.ChangeTypeAbsolute, opts.ChangeType)
		assert.Equal(t, 4.0, opts.Threshold)
		assert.Equal(t, 6, opts.MinPoints)
		assert.Equal(t, 6, opts.Tolerance)
		assert.NoError(t, opts.Validate())
	})
}

func TestLoadConfiguration(t *testing.T) {
	dir, err := ioutil.TempDir("", "deviant-config")
	require.NoError(t, err)
	defer func() { assert.NoError(t, os.RemoveAll(dir)) }()

	t.Run("ReadsYAML", func(t *testing.T) {
		path := filepath.Join(dir, "deviant.yaml")
		require.NoError(t, ioutil.WriteFile(path, []byte(`
mongodb_uri: mongodb://db.example.net:27017
database_name: perf
num_workers: 3
max_runtime: 10m
analysis:
  look_back: 720h
  min_points: 6
  max_points: 30
  ignore_top: 1
triage:
  base_url: https://triage.example.net
  user: deviant
  token: secret
`), 0600))

		conf, err := LoadConfiguration(path)
		require.NoError(t, err)
		assert.Equal(t, "mongodb://db.example.net:27017", conf.MongoDBURI)
		assert.Equal(t, "perf", conf.DatabaseName)
		assert.Equal(t, 3, conf.NumWorkers)
		assert.Equal(t, 10*time.Minute, conf.MaxRuntime)
		assert.Equal(t, 30*24*time.Hour, conf.Analysis.LookBack)
		assert.Equal(t, 6, conf.Analysis.MinPoints)
		assert.True(t, conf.Triage.Enabled())
		assert.NoError(t, conf.Validate())
	})
	t.Run("MissingFile", func(t *testing.T) {
		_, err := LoadConfiguration(filepath.Join(dir, "missing.yaml"))
		assert.Error(t, err)
	})
	t.Run("Malformed", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, ioutil.WriteFile(path, []byte("num_workers: [1, 2"), 0600))
		_, err := LoadConfiguration(path)
		assert.Error(t, err)
	})
}
