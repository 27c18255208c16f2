package deviant

import (
	"context"
	"sync"

	"github.com/mongodb/amboy"
	"github.com/mongodb/amboy/queue"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	globalEnv     Environment
	globalEnvLock sync.RWMutex
)

func init() { resetEnv() }

// GetEnvironment returns the process wide environment.
func GetEnvironment() Environment {
	globalEnvLock.RLock()
	defer globalEnvLock.RUnlock()

	return globalEnv
}

// SetEnvironment replaces the process wide environment.
func SetEnvironment(env Environment) {
	globalEnvLock.Lock()
	defer globalEnvLock.Unlock()

	globalEnv = env
}

func resetEnv() { SetEnvironment(&envState{name: "global"}) }

// Environment objects provide access to shared configuration and
// state, in a way that you can isolate and test for in
type Environment interface {
	Configure(context.Context, *Configuration) error

	GetConf() *Configuration
	GetClient() *mongo.Client
	GetDB() *mongo.Database

	// GetQueue retrieves the application's shared queue, which is cache
	// for easy access from within units or inside of command line
	// operations.
	GetQueue() amboy.Queue
	// SetQueue configures the global application cache's shared queue.
	SetQueue(amboy.Queue) error

	// AddStat records written summaries for periodic logging.
	AddStat(Stat) error

	Close(context.Context) error
}

// NewEnvironment builds and configures an environment. The context bounds
// the lifetime of its background goroutines.
func NewEnvironment(ctx context.Context, name string, conf *Configuration) (Environment, error) {
	env := &envState{name: name}
	if err := env.Configure(ctx, conf); err != nil {
		return nil, errors.WithStack(err)
	}
	return env, nil
}

type envState struct {
	name   string
	queue  amboy.Queue
	client *mongo.Client
	conf   *Configuration
	stats  *summaryStats
	mutex  sync.RWMutex
}

func (c *envState) Configure(ctx context.Context, conf *Configuration) error {
	if err := conf.Validate(); err != nil {
		return errors.WithStack(err)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.conf = conf

	connCtx, cancel := context.WithTimeout(ctx, conf.MongoDBDialTimeout)
	defer cancel()
	client, err := mongo.Connect(connCtx, options.Client().
		ApplyURI(conf.MongoDBURI).
		SetConnectTimeout(conf.MongoDBDialTimeout).
		SetServerSelectionTimeout(conf.MongoDBDialTimeout))
	if err != nil {
		return errors.Wrapf(err, "could not connect to db %s", conf.MongoDBURI)
	}
	if err = client.Ping(connCtx, readpref.Primary()); err != nil {
		grip.Warning(message.WrapError(client.Disconnect(ctx), message.Fields{
			"message": "problem disconnecting from unreachable db",
		}))
		return errors.Wrapf(err, "could not reach db %s", conf.MongoDBURI)
	}
	c.client = client

	if c.queue == nil {
		c.queue = queue.NewLocalLimitedSize(conf.NumWorkers, QueueCapacity)
		grip.Info(message.Fields{
			"message": "configured local queue",
			"workers": conf.NumWorkers,
			"env":     c.name,
		})
	}

	if c.stats == nil {
		c.stats = newSummaryStats(SummaryStatsName)
		c.stats.start(ctx)
	}

	return nil
}

func (c *envState) SetQueue(q amboy.Queue) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if q == nil {
		return errors.New("cannot set queue to nil")
	}
	if c.queue != nil && c.queue.Info().Started {
		return errors.New("queue exists and is running, cannot overwrite")
	}

	c.queue = q
	grip.Noticef("caching a '%T' queue in the '%s' service cache for use in tasks", q, c.name)
	return nil
}

func (c *envState) GetQueue() amboy.Queue {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.queue
}

func (c *envState) GetClient() *mongo.Client {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.client
}

func (c *envState) GetDB() *mongo.Database {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.client == nil || c.conf == nil {
		return nil
	}
	return c.client.Database(c.conf.DatabaseName)
}

func (c *envState) GetConf() *Configuration {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.conf == nil {
		return nil
	}

	// copy the struct
	out := &Configuration{}
	*out = *c.conf

	return out
}

func (c *envState) AddStat(stat Stat) error {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.stats == nil {
		return errors.New("summary stats are not configured")
	}
	return c.stats.Add(stat)
}

func (c *envState) Close(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	catcher := grip.NewBasicCatcher()
	if c.queue != nil && c.queue.Info().Started {
		c.queue.Close(ctx)
	}
	if c.client != nil {
		catcher.Wrap(c.client.Disconnect(ctx), "disconnecting from db")
		c.client = nil
	}

	return catcher.Resolve()
}
