package units

import (
	"context"
	"time"

	"github.com/evergreen-ci/deviant"
	"github.com/evergreen-ci/utility"
	"github.com/mongodb/amboy"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

const tsFormat = "2006-01-02.15-04-05"

// StartCrons schedules the hourly scan for stale deviance summaries and the
// queue stats report on the environment's queue.
func StartCrons(ctx context.Context, env deviant.Environment) error {
	opts := amboy.QueueOperationConfig{
		ContinueOnError: true,
		LogErrors:       false,
		DebugLogging:    false,
	}

	q := env.GetQueue()
	if q == nil {
		return errors.New("environment has no queue")
	}

	grip.Info(message.Fields{
		"message": "starting background cron jobs",
		"opts":    opts,
		"started": q.Info().Started,
		"stats":   q.Stats(ctx),
	})

	amboy.IntervalQueueOperation(ctx, q, time.Minute, time.Now(), opts, func(ctx context.Context, queue amboy.Queue) error {
		return queue.Put(ctx, NewQueueStatsCollector(env, utility.RoundPartOfMinute(0).Format(tsFormat)))
	})
	amboy.IntervalQueueOperation(ctx, q, time.Hour, time.Now(), opts, func(ctx context.Context, queue amboy.Queue) error {
		return queue.Put(ctx, NewDevianceSummaryScanJob(utility.RoundPartOfMinute(0).Format(tsFormat)))
	})

	return nil
}
