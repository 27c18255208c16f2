package units

import (
	"context"
	"fmt"
	"time"

	"github.com/evergreen-ci/deviant"
	"github.com/evergreen-ci/deviant/model"
	"github.com/evergreen-ci/deviant/perf"
	"github.com/mongodb/amboy"
	"github.com/mongodb/amboy/dependency"
	"github.com/mongodb/amboy/job"
	"github.com/mongodb/amboy/registry"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

const devianceSummaryScanJobName = "deviance-summary-scan"

type devianceSummaryScanJob struct {
	*job.Base `bson:"metadata" json:"metadata" yaml:"metadata"`

	env   deviant.Environment
	queue amboy.Queue
}

func init() {
	registry.AddJobType(devianceSummaryScanJobName, func() amboy.Job { return makeDevianceSummaryScanJob() })
}

func makeDevianceSummaryScanJob() *devianceSummaryScanJob {
	j := &devianceSummaryScanJob{
		Base: &job.Base{
			JobType: amboy.JobType{
				Name:    devianceSummaryScanJobName,
				Version: 1,
			},
		},
	}
	j.SetDependency(dependency.NewAlways())
	return j
}

// NewDevianceSummaryScanJob creates a job that finds the signatures whose
// summaries are missing or stale and enqueues a deviance summary job for
// each of them.
func NewDevianceSummaryScanJob(id string) amboy.Job {
	j := makeDevianceSummaryScanJob()
	j.SetID(fmt.Sprintf("%s.%s", devianceSummaryScanJobName, id))
	return j
}

func (j *devianceSummaryScanJob) Run(ctx context.Context) {
	defer j.MarkComplete()

	if j.env == nil {
		j.env = deviant.GetEnvironment()
	}
	if j.queue == nil {
		j.queue = j.env.GetQueue()
	}
	conf := j.env.GetConf()
	if conf == nil || j.queue == nil {
		j.AddError(errors.New("environment is not configured"))
		return
	}

	now := time.Now()
	candidates, err := model.FindRecentlyUpdatedSignatures(ctx, j.env, now.Add(-conf.Analysis.LookBack), conf.Analysis.Repositories, 0)
	if err != nil {
		j.AddError(errors.Wrap(err, "finding recently updated signatures"))
		return
	}
	ids, err := model.FindSignaturesNeedingUpdate(ctx, j.env, candidates, now.Add(-conf.Analysis.StaleAfter), conf.Analysis.DownloadLimit)
	if err != nil {
		j.AddError(errors.Wrap(err, "finding signatures needing update"))
		return
	}

	grip.Info(message.Fields{
		"job_id":     j.ID(),
		"message":    "enqueueing deviance summary jobs",
		"candidates": len(candidates),
		"selected":   len(ids),
	})

	j.AddError(EnqueueDevianceSummaries(ctx, j.queue, j.env, ids))
}

// EnqueueDevianceSummaries adds a deviance summary job for each signature
// to the queue. The jobs share one deviance cache. A signature that already
// has a job queued in the current ten minute window is skipped.
func EnqueueDevianceSummaries(ctx context.Context, q amboy.Queue, env deviant.Environment, ids []int) error {
	cache := perf.NewDevianceCache()
	catcher := grip.NewBasicCatcher()
	for _, id := range ids {
		summaryJob := newDevianceSummaryJob(id, cache)
		if env != nil {
			summaryJob.env = env
		}
		catcher.Wrapf(amboy.EnqueueUniqueJob(ctx, q, summaryJob), "enqueueing signature %d", id)
	}
	return catcher.Resolve()
}
