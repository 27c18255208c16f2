package model

import (
	"context"
	"time"

	"github.com/evergreen-ci/deviant"
	"github.com/evergreen-ci/deviant/perf"
	"github.com/mongodb/anser/bsonutil"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const summaryCollection = "deviant_summary"

// DevianceSummary is the persisted result of analyzing one signature.
// Pointer fields are nil when the analysis could not produce them, for
// example when the whole history is a single segment.
type DevianceSummary struct {
	ID         int    `bson:"_id" json:"id" yaml:"id"`
	Title      string `bson:"title" json:"title" yaml:"title"`
	Hash       string `bson:"signature_hash" json:"signature_hash" yaml:"signature_hash"`
	Framework  string `bson:"framework" json:"framework" yaml:"framework"`
	Repository string `bson:"repository" json:"repository" yaml:"repository"`
	NumPushes  int    `bson:"num_pushes" json:"num_pushes" yaml:"num_pushes"`

	IsDiff         bool     `bson:"is_diff" json:"is_diff" yaml:"is_diff"`
	MaxExtraDiff   *float64 `bson:"max_extra_diff,omitempty" json:"max_extra_diff,omitempty" yaml:"max_extra_diff,omitempty"`
	MaxMissingDiff *float64 `bson:"max_missing_diff,omitempty" json:"max_missing_diff,omitempty" yaml:"max_missing_diff,omitempty"`
	NumNewSegments int      `bson:"num_new_segments" json:"num_new_segments" yaml:"num_new_segments"`
	NumOldSegments int      `bson:"num_old_segments" json:"num_old_segments" yaml:"num_old_segments"`

	RelativeNoise    *float64    `bson:"relative_noise,omitempty" json:"relative_noise,omitempty" yaml:"relative_noise,omitempty"`
	LastMean         *float64    `bson:"last_mean,omitempty" json:"last_mean,omitempty" yaml:"last_mean,omitempty"`
	LastStd          *float64    `bson:"last_std,omitempty" json:"last_std,omitempty" yaml:"last_std,omitempty"`
	DevStatus        perf.Status `bson:"dev_status,omitempty" json:"dev_status,omitempty" yaml:"dev_status,omitempty"`
	DevScore         *float64    `bson:"dev_score,omitempty" json:"dev_score,omitempty" yaml:"dev_score,omitempty"`
	OverallDevStatus perf.Status `bson:"overall_dev_status,omitempty" json:"overall_dev_status,omitempty" yaml:"overall_dev_status,omitempty"`
	OverallDevScore  *float64    `bson:"overall_dev_score,omitempty" json:"overall_dev_score,omitempty" yaml:"overall_dev_score,omitempty"`

	Algorithm   perf.AlgorithmInfo `bson:"algorithm" json:"algorithm" yaml:"algorithm"`
	LastUpdated time.Time          `bson:"last_updated" json:"last_updated" yaml:"last_updated"`
}

var (
	summaryIDKey             = bsonutil.MustHaveTag(DevianceSummary{}, "ID")
	summaryNumPushesKey      = bsonutil.MustHaveTag(DevianceSummary{}, "NumPushes")
	summaryMaxExtraDiffKey   = bsonutil.MustHaveTag(DevianceSummary{}, "MaxExtraDiff")
	summaryMaxMissingDiffKey = bsonutil.MustHaveTag(DevianceSummary{}, "MaxMissingDiff")
	summaryNumNewSegmentsKey = bsonutil.MustHaveTag(DevianceSummary{}, "NumNewSegments")
	summaryNumOldSegmentsKey = bsonutil.MustHaveTag(DevianceSummary{}, "NumOldSegments")
	summaryRelativeNoiseKey  = bsonutil.MustHaveTag(DevianceSummary{}, "RelativeNoise")
	summaryDevStatusKey      = bsonutil.MustHaveTag(DevianceSummary{}, "DevStatus")
	summaryDevScoreKey       = bsonutil.MustHaveTag(DevianceSummary{}, "DevScore")
	summaryLastUpdatedKey    = bsonutil.MustHaveTag(DevianceSummary{}, "LastUpdated")
)

// NewDevianceSummary builds the summary row for a signature from its
// aggregated pushes and their analysis.
func NewDevianceSummary(sig *PerformanceSignature, pushes Pushes, analysis *perf.Analysis) *DevianceSummary {
	out := &DevianceSummary{
		ID:             sig.ID,
		Title:          sig.Title(),
		Hash:           sig.Hash,
		Framework:      sig.Framework,
		Repository:     sig.Repository,
		NumPushes:      len(pushes),
		LastUpdated:    time.Now(),
		NumOldSegments: 1,
	}
	if analysis == nil {
		return out
	}

	out.NumNewSegments = analysis.Segmentation.Count()
	out.RelativeNoise = analysis.RelativeNoise
	out.LastMean = analysis.LastMean
	out.LastStd = analysis.LastStd
	out.Algorithm = analysis.Algorithm
	if analysis.LastDeviance != nil {
		score := analysis.LastDeviance.Score
		out.DevStatus = analysis.LastDeviance.Status
		out.DevScore = &score
	}
	if analysis.OverallDeviance != nil {
		score := analysis.OverallDeviance.Score
		out.OverallDevStatus = analysis.OverallDeviance.Status
		out.OverallDevScore = &score
	}
	if analysis.Reference != nil {
		out.NumOldSegments = analysis.Reference.Count()
	}
	if analysis.Comparison != nil {
		out.IsDiff = analysis.Comparison.IsDiff
		out.MaxExtraDiff = analysis.Comparison.MaxExtraDiff
		out.MaxMissingDiff = analysis.Comparison.MaxMissingDiff
	}

	return out
}

// Save upserts the summary by signature id.
func (s *DevianceSummary) Save(ctx context.Context, env deviant.Environment) error {
	db := env.GetDB()
	if db == nil {
		return errors.New("no database configured")
	}

	_, err := db.Collection(summaryCollection).ReplaceOne(ctx,
		bson.M{summaryIDKey: s.ID}, s, options.Replace().SetUpsert(true))
	return errors.Wrapf(err, "saving deviance summary for signature %d", s.ID)
}

// FindDevianceSummary returns the summary of the given signature.
func FindDevianceSummary(ctx context.Context, env deviant.Environment, id int) (*DevianceSummary, error) {
	db := env.GetDB()
	if db == nil {
		return nil, errors.New("no database configured")
	}

	out := &DevianceSummary{}
	err := db.Collection(summaryCollection).FindOne(ctx, bson.M{summaryIDKey: id}).Decode(out)
	if err == mongo.ErrNoDocuments {
		return nil, errors.Errorf("could not find deviance summary for signature %d", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "finding deviance summary for signature %d", id)
	}
	return out, nil
}

// FindSignaturesNeedingUpdate picks, among candidates, the signatures to
// analyze next: those with no summary yet, in candidate order, then those
// whose summary was last updated before staleBefore, oldest first. At most
// limit ids are returned when limit is positive.
func FindSignaturesNeedingUpdate(ctx context.Context, env deviant.Environment, candidates []int, staleBefore time.Time, limit int) ([]int, error) {
	if len(candidates) == 0 {
		return []int{}, nil
	}
	db := env.GetDB()
	if db == nil {
		return nil, errors.New("no database configured")
	}

	cur, err := db.Collection(summaryCollection).Find(ctx,
		bson.M{
			summaryIDKey:        bson.M{"$in": candidates},
			summaryNumPushesKey: bson.M{"$exists": true},
		},
		options.Find().
			SetProjection(bson.M{summaryIDKey: 1, summaryLastUpdatedKey: 1}).
			SetSort(bson.D{{Key: summaryLastUpdatedKey, Value: 1}, {Key: summaryIDKey, Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "finding existing summaries")
	}
	defer cur.Close(ctx)

	var existing []DevianceSummary
	if err = cur.All(ctx, &existing); err != nil {
		return nil, errors.Wrap(err, "decoding existing summaries")
	}

	return selectForUpdate(candidates, existing, staleBefore, limit), nil
}

func selectForUpdate(candidates []int, existing []DevianceSummary, staleBefore time.Time, limit int) []int {
	seen := make(map[int]bool, len(existing))
	for _, summary := range existing {
		seen[summary.ID] = true
	}

	out := []int{}
	add := func(id int) bool {
		if limit > 0 && len(out) >= limit {
			return false
		}
		out = append(out, id)
		return true
	}

	queued := map[int]bool{}
	for _, id := range candidates {
		if seen[id] || queued[id] {
			continue
		}
		queued[id] = true
		if !add(id) {
			return out
		}
	}
	for _, summary := range existing {
		if !summary.LastUpdated.Before(staleBefore) {
			continue
		}
		if !add(summary.ID) {
			return out
		}
	}
	return out
}
