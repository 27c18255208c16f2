package deviant

import (
	"context"
	"testing"
	"time"

	"github.com/mongodb/amboy/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestGlobalEnvironment(t *testing.T) {
	first := GetEnvironment()
	require.NotNil(t, first)
	first.(*envState).name = "foo"
	assert.Exactly(t, first, GetEnvironment())

	resetEnv()
	second := GetEnvironment()
	assert.NotEqual(t, first, second)

	env := &envState{name: "replacement"}
	SetEnvironment(env)
	assert.Exactly(t, env, GetEnvironment())
	resetEnv()
}

func TestEnvironmentConfiguration(t *testing.T) {
	for name, test := range map[string]func(context.Context, *testing.T, Environment, *Configuration){
		"ErrorsForInvalidConfig": func(ctx context.Context, t *testing.T, env Environment, conf *Configuration) {
			err := env.Configure(ctx, &Configuration{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "must specify a mongodb url")
			assert.Nil(t, env.GetClient())
		},
		"PanicsWithNilConfig": func(ctx context.Context, t *testing.T, env Environment, conf *Configuration) {
			assert.Panics(t, func() {
				_ = env.Configure(ctx, nil)
			})
		},
		"ErrorsWithMongoDBThatDoesNotExist": func(ctx context.Context, t *testing.T, env Environment, conf *Configuration) {
			conf.MongoDBURI = " NOT A SERVER "
			assert.Error(t, env.Configure(ctx, conf))
			assert.Nil(t, env.GetDB())
		},
		"UnconfiguredAccessors": func(ctx context.Context, t *testing.T, env Environment, conf *Configuration) {
			assert.Nil(t, env.GetConf())
			assert.Nil(t, env.GetDB())
			assert.Nil(t, env.GetQueue())
			assert.Error(t, env.AddStat(Stat{Count: 1}))
			assert.NoError(t, env.Close(ctx))
		},
	} {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			env := &envState{}
			conf := &Configuration{
				MongoDBURI:         "mongodb://localhost:27017",
				NumWorkers:         2,
				MongoDBDialTimeout: 10 * time.Millisecond,
			}
			test(ctx, t, env, conf)
		})
	}
}

func TestConfiguredEnvironment(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env, err := NewEnvironment(ctx, "deviant.testing", &Configuration{
		MongoDBURI:         "mongodb://localhost:27017",
		DatabaseName:       "deviant_test_env",
		NumWorkers:         2,
		MongoDBDialTimeout: time.Second,
	})
	if err != nil {
		t.Skipf("no local mongod available: %s", err)
	}
	defer func() { assert.NoError(t, env.Close(ctx)) }()

	assert.NotNil(t, env.GetClient())
	require.NotNil(t, env.GetDB())
	assert.Equal(t, "deviant_test_env", env.GetDB().Name())
	assert.NotNil(t, env.GetQueue())
	assert.NoError(t, env.AddStat(Stat{Count: 1, Status: "OK"}))

	conf := env.GetConf()
	require.NotNil(t, conf)
	conf.DatabaseName = "changed"
	assert.Equal(t, "deviant_test_env", env.GetConf().DatabaseName)
}

type ServiceCacheSuite struct {
	cache *envState
	suite.Suite
}

func TestServiceCacheSuite(t *testing.T) {
	suite.Run(t, new(ServiceCacheSuite))
}

func (s *ServiceCacheSuite) SetupTest() {
	s.cache = &envState{name: "deviant.testing"}
}

func (s *ServiceCacheSuite) TestDefaultCacheValues() {
	s.Nil(s.cache.queue)
	s.Nil(s.cache.client)
	s.Nil(s.cache.stats)
	s.Equal("deviant.testing", s.cache.name)
}

func (s *ServiceCacheSuite) TestQueueNotSettableToNil() {
	s.Error(s.cache.SetQueue(nil))
	s.Nil(s.cache.queue)

	q := queue.NewLocalLimitedSize(2, 16)
	s.NotNil(q)
	s.NoError(s.cache.SetQueue(q))
	s.Equal(q, s.cache.GetQueue())
	s.Error(s.cache.SetQueue(nil))
	s.Equal(q, s.cache.GetQueue())
}

func (s *ServiceCacheSuite) TestRunningQueueNotReplaced() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queue.NewLocalLimitedSize(1, 16)
	s.Require().NoError(s.cache.SetQueue(q))
	s.Require().NoError(q.Start(ctx))

	s.Error(s.cache.SetQueue(queue.NewLocalLimitedSize(1, 16)))
	s.Equal(q, s.cache.GetQueue())
}
