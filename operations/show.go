package operations

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/evergreen-ci/deviant"
	"github.com/evergreen-ci/deviant/model"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Show returns the ./deviant show command, which prints the triage
// listings built from the saved summaries.
func Show() cli.Command {
	return cli.Command{
		Name:   "show",
		Usage:  "print triage listings of saved deviance summaries",
		Flags:  mergeFlags(baseFlags(), dbFlags(), showFlags()),
		Before: requireCategories(categoryFlag),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			env, err := setup(ctx, c)
			if err != nil {
				return errors.WithStack(err)
			}
			defer env.Close(ctx)

			categories := model.TriageCategories()
			if names := c.StringSlice(categoryFlag); len(names) > 0 {
				categories = categories[:0]
				for _, name := range names {
					categories = append(categories, model.TriageCategory(name))
				}
			}

			return errors.WithStack(showListings(ctx, os.Stdout, env, categories, c.Int(limitFlag)))
		},
	}
}

func showListings(ctx context.Context, w io.Writer, env deviant.Environment, categories []model.TriageCategory, limit int) error {
	for _, category := range categories {
		summaries, err := model.FindTriageSummaries(ctx, env, category, limit)
		if err != nil {
			return errors.Wrapf(err, "listing '%s'", category)
		}

		if _, err = fmt.Fprintf(w, "== %s (%d)\n", category, len(summaries)); err != nil {
			return errors.WithStack(err)
		}
		for _, summary := range summaries {
			if _, err = fmt.Fprintln(w, formatSummary(summary)); err != nil {
				return errors.WithStack(err)
			}
		}
	}
	return nil
}

func formatSummary(s model.DevianceSummary) string {
	return fmt.Sprintf("%-60s pushes=%d segments=%d/%d status=%s score=%s noise=%s updated=%s",
		s.Title, s.NumPushes, s.NumNewSegments, s.NumOldSegments, s.DevStatus,
		formatOptional(s.DevScore), formatOptional(s.RelativeNoise), s.LastUpdated.Format(deviant.ShortDateFormat))
}

func formatOptional(f *float64) string {
	if f == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f", *f)
}
