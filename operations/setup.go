package operations

import (
	"context"

	"github.com/evergreen-ci/deviant"
	"github.com/evergreen-ci/deviant/model"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// loadConfiguration reads the configuration file named by the config flag,
// when there is one, and lets the database and worker flags override it.
func loadConfiguration(c *cli.Context) (*deviant.Configuration, error) {
	conf := &deviant.Configuration{}
	if path := c.String(configFlag); path != "" {
		var err error
		conf, err = deviant.LoadConfiguration(path)
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}

	if c.IsSet(dbURIFlag) || conf.MongoDBURI == "" {
		conf.MongoDBURI = c.String(dbURIFlag)
	}
	if c.IsSet(dbNameFlag) || conf.DatabaseName == "" {
		conf.DatabaseName = c.String(dbNameFlag)
	}
	if c.IsSet(numWorkersFlag) {
		conf.NumWorkers = c.Int(numWorkersFlag)
	}

	return conf, nil
}

// setup configures the global environment from the command line and makes
// sure the collections are indexed.
func setup(ctx context.Context, c *cli.Context) (deviant.Environment, error) {
	conf, err := loadConfiguration(c)
	if err != nil {
		return nil, errors.Wrap(err, "problem loading configuration")
	}

	env, err := deviant.NewEnvironment(ctx, c.App.Name, conf)
	if err != nil {
		return nil, errors.Wrap(err, "problem setting up environment")
	}
	deviant.SetEnvironment(env)

	if err = model.EnsureIndexes(ctx, env); err != nil {
		return nil, errors.Wrap(err, "problem creating indexes")
	}

	return env, nil
}
