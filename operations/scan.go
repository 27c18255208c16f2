package operations

import (
	"context"
	"time"

	"github.com/evergreen-ci/deviant/units"
	"github.com/evergreen-ci/utility"
	"github.com/mongodb/amboy"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Scan returns the ./deviant scan command, which summarizes every signature
// whose summary is missing or stale, or only the signatures named with --id,
// and exits when the work is done or the configured maximum runtime elapses.
func Scan() cli.Command {
	return cli.Command{
		Name:  "scan",
		Usage: "summarize stale signatures once and exit",
		Flags: mergeFlags(baseFlags(), dbFlags(), scanFlags()),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			env, err := setup(ctx, c)
			if err != nil {
				return errors.WithStack(err)
			}
			defer func() {
				grip.Warning(message.WrapError(env.Close(context.Background()), message.Fields{
					"message": "problem closing environment",
				}))
			}()

			q := env.GetQueue()
			if err = q.Start(ctx); err != nil {
				return errors.Wrap(err, "starting queue")
			}

			ctx, cancel = context.WithTimeout(ctx, env.GetConf().MaxRuntime)
			defer cancel()

			if ids := c.IntSlice(signatureFlag); len(ids) > 0 {
				if err = units.EnqueueDevianceSummaries(ctx, q, env, ids); err != nil {
					return errors.Wrap(err, "enqueueing signatures")
				}
			} else if err = q.Put(ctx, units.NewDevianceSummaryScanJob(utility.RoundPartOfMinute(0).Format(tsFormat))); err != nil {
				// the scan enqueues the summary jobs onto the same queue
				return errors.Wrap(err, "enqueueing scan")
			}

			amboy.WaitInterval(ctx, q, time.Second)
			stats := q.Stats(ctx)
			grip.Info(message.Fields{
				"message": "scan finished",
				"stats":   stats,
				"timeout": ctx.Err() != nil,
			})
			if ctx.Err() != nil {
				return errors.Errorf("scan did not finish within %s", env.GetConf().MaxRuntime)
			}

			return nil
		},
	}
}
