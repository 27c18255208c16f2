package operations

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/evergreen-ci/deviant/units"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

const tsFormat = "2006-01-02.15-04-05"

// Service returns the ./deviant service command, which keeps a worker
// queue running and rescans stale signatures every hour until it is
// interrupted.
func Service() cli.Command {
	return cli.Command{
		Name:  "service",
		Usage: "run the background summary service",
		Flags: mergeFlags(baseFlags(), dbFlags()),
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

			if err = env.GetQueue().Start(ctx); err != nil {
				return errors.Wrap(err, "starting queue")
			}
			if err = units.StartCrons(ctx, env); err != nil {
				return errors.Wrap(err, "problem starting background jobs")
			}

			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
			grip.Notice("starting deviant service")
			<-sigs
			grip.Info("received signal, terminating.")
			return nil
		},
	}
}
