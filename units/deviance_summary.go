package units

import (
	"context"
	"fmt"
	"time"

	"github.com/evergreen-ci/deviant"
	"github.com/evergreen-ci/deviant/model"
	"github.com/evergreen-ci/deviant/perf"
	"github.com/evergreen-ci/deviant/triage"
	"github.com/evergreen-ci/utility"
	"github.com/mongodb/amboy"
	"github.com/mongodb/amboy/dependency"
	"github.com/mongodb/amboy/job"
	"github.com/mongodb/amboy/registry"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

const devianceSummaryJobName = "deviance-summary"

type devianceSummaryJob struct {
	*job.Base   `bson:"metadata" json:"metadata" yaml:"metadata"`
	SignatureID int `bson:"signature_id" json:"signature_id" yaml:"signature_id"`

	env      deviant.Environment
	cache    *perf.DevianceCache
	reporter triage.Reporter
}

func init() {
	registry.AddJobType(devianceSummaryJobName, func() amboy.Job { return makeDevianceSummaryJob() })
}

func makeDevianceSummaryJob() *devianceSummaryJob {
	j := &devianceSummaryJob{
		Base: &job.Base{
			JobType: amboy.JobType{
				Name:    devianceSummaryJobName,
				Version: 1,
			},
		},
		env: deviant.GetEnvironment(),
	}
	j.SetDependency(dependency.NewAlways())
	return j
}

// NewDevianceSummaryJob creates a job that analyzes one signature and
// upserts its deviance summary.
func NewDevianceSummaryJob(signatureID int) amboy.Job {
	return newDevianceSummaryJob(signatureID, nil)
}

func newDevianceSummaryJob(signatureID int, cache *perf.DevianceCache) *devianceSummaryJob {
	j := makeDevianceSummaryJob()
	// Every ten minutes at most
	timestamp := utility.RoundPartOfHour(10).Format(tsFormat)
	j.SetID(fmt.Sprintf("%s.%d.%s", j.JobType.Name, signatureID, timestamp))
	j.SignatureID = signatureID
	j.cache = cache
	return j
}

func (j *devianceSummaryJob) makeMessage(msg string) message.Fields {
	return message.Fields{
		"job_id":    j.ID(),
		"message":   msg,
		"signature": j.SignatureID,
	}
}

func (j *devianceSummaryJob) Run(ctx context.Context) {
	defer j.MarkComplete()

	if j.env == nil {
		j.env = deviant.GetEnvironment()
	}
	conf := j.env.GetConf()
	if conf == nil {
		j.AddError(errors.New("environment is not configured"))
		return
	}
	if j.reporter == nil && conf.Triage.Enabled() {
		j.reporter = triage.NewReporter(conf.Triage.BaseURL, conf.Triage.User, conf.Triage.Token)
	}

	sig, err := model.FindSignature(ctx, j.env, j.SignatureID)
	if err != nil {
		j.AddError(errors.Wrap(err, "finding signature"))
		return
	}

	since := time.Now().Add(-conf.Analysis.LookBack)
	data, err := model.FindPerformanceData(ctx, j.env, sig.ID, since, 0)
	if err != nil {
		j.AddError(errors.Wrap(err, "finding performance data"))
		return
	}
	pushes, err := model.AggregatePushes(data, since)
	if err != nil {
		j.AddError(errors.Wrap(err, "aggregating pushes"))
		return
	}

	var analysis *perf.Analysis
	if len(pushes) > 0 {
		analysis, err = j.analyze(sig, pushes, conf.Analysis)
		if err != nil {
			j.AddError(errors.Wrapf(err, "analyzing '%s'", sig.Title()))
			return
		}
	}

	summary := model.NewDevianceSummary(sig, pushes, analysis)
	if err = summary.Save(ctx, j.env); err != nil {
		j.AddError(errors.Wrap(err, "saving deviance summary"))
		return
	}

	grip.Warning(message.WrapError(j.env.AddStat(deviant.Stat{
		Count:      1,
		Framework:  sig.Framework,
		Repository: sig.Repository,
		Status:     string(summary.DevStatus),
	}), j.makeMessage("could not record summary stat")))

	if j.reporter != nil {
		// the summary is already saved, so a failed report is only logged
		grip.Warning(message.WrapError(j.reporter.ReportSummary(ctx, *summary),
			j.makeMessage("could not report summary to triage service")))
	}
}

func (j *devianceSummaryJob) analyze(sig *model.PerformanceSignature, pushes model.Pushes, conf deviant.AnalysisConfig) (*perf.Analysis, error) {
	opts, err := sig.Options(conf)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	analyzer, err := perf.NewAnalyzer(opts, j.cache)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	reference, err := perf.ReferenceSegmentation(len(pushes), pushes.AlertIndices())
	if err != nil {
		return nil, errors.WithStack(err)
	}

	analysis, err := analyzer.Analyze(pushes.Values(), reference)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	msg := j.makeMessage("segmentation agrees with alerts")
	msg["title"] = sig.Title()
	msg["num_pushes"] = len(pushes)
	msg["new_segments"] = analysis.Segmentation.Count()
	msg["old_segments"] = reference.Count()
	if analysis.Comparison != nil && analysis.Comparison.IsDiff {
		msg["message"] = "segmentation disagrees with alerts"
		if analysis.Comparison.MaxExtraDiff != nil {
			msg["max_extra_diff"] = *analysis.Comparison.MaxExtraDiff
		}
		if analysis.Comparison.MaxMissingDiff != nil {
			msg["max_missing_diff"] = *analysis.Comparison.MaxMissingDiff
		}
		grip.Info(msg)
	} else {
		grip.Debug(msg)
	}

	return analysis, nil
}
