package units

import (
	"context"
	"fmt"

	"github.com/evergreen-ci/deviant"
	"github.com/mongodb/amboy"
	"github.com/mongodb/amboy/dependency"
	"github.com/mongodb/amboy/job"
	"github.com/mongodb/amboy/registry"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
)

const queueStatsCollectorJobName = "queue-stats-collector"

func init() {
	registry.AddJobType(queueStatsCollectorJobName,
		func() amboy.Job { return makeQueueStatsCollector() })
}

type queueStatsCollector struct {
	job.Base `bson:"job_base" json:"job_base" yaml:"job_base"`
	env      deviant.Environment
}

// NewQueueStatsCollector logs the stats of the environment's queue.
func NewQueueStatsCollector(env deviant.Environment, id string) amboy.Job {
	j := makeQueueStatsCollector()
	j.env = env
	j.SetID(fmt.Sprintf("%s-%s", queueStatsCollectorJobName, id))
	return j
}

func makeQueueStatsCollector() *queueStatsCollector {
	j := &queueStatsCollector{
		env: deviant.GetEnvironment(),
		Base: job.Base{
			JobType: amboy.JobType{
				Name:    queueStatsCollectorJobName,
				Version: 0,
			},
		},
	}

	j.SetDependency(dependency.NewAlways())
	return j
}

func (j *queueStatsCollector) Run(ctx context.Context) {
	defer j.MarkComplete()

	if j.env == nil {
		j.env = deviant.GetEnvironment()
	}

	q := j.env.GetQueue()
	if q != nil && q.Info().Started {
		grip.Info(message.Fields{
			"message": "amboy queue stats",
			"stats":   q.Stats(ctx),
		})
	}
}
