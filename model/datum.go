package model

import (
	"context"
	"sort"
	"time"

	"github.com/evergreen-ci/deviant"
	"github.com/mongodb/anser/bsonutil"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const datumCollection = "performance_datum"

// PerformanceDatum is a single run of a signature's test on one push.
// AlertID is set when the perf sheriffs attached an alert to the push.
type PerformanceDatum struct {
	ID          int64     `bson:"_id" json:"id" yaml:"id"`
	SignatureID int       `bson:"signature_id" json:"signature_id" yaml:"signature_id"`
	Repository  string    `bson:"repository" json:"repository" yaml:"repository"`
	PushTime    time.Time `bson:"push_time" json:"push_time" yaml:"push_time"`
	Value       float64   `bson:"value" json:"value" yaml:"value"`
	AlertID     int       `bson:"alert_id,omitempty" json:"alert_id,omitempty" yaml:"alert_id,omitempty"`
}

var (
	datumSignatureIDKey = bsonutil.MustHaveTag(PerformanceDatum{}, "SignatureID")
	datumRepositoryKey  = bsonutil.MustHaveTag(PerformanceDatum{}, "Repository")
	datumPushTimeKey    = bsonutil.MustHaveTag(PerformanceDatum{}, "PushTime")
)

// SavePerformanceData inserts the given runs.
func SavePerformanceData(ctx context.Context, env deviant.Environment, data []PerformanceDatum) error {
	if len(data) == 0 {
		return nil
	}
	db := env.GetDB()
	if db == nil {
		return errors.New("no database configured")
	}

	docs := make([]interface{}, 0, len(data))
	for _, datum := range data {
		docs = append(docs, datum)
	}
	_, err := db.Collection(datumCollection).InsertMany(ctx, docs)
	return errors.Wrap(err, "inserting performance data")
}

// FindPerformanceData returns the runs of a signature pushed at or after
// since, oldest first, keeping at most limit of the most recent runs when
// limit is positive.
func FindPerformanceData(ctx context.Context, env deviant.Environment, signatureID int, since time.Time, limit int) ([]PerformanceDatum, error) {
	db := env.GetDB()
	if db == nil {
		return nil, errors.New("no database configured")
	}

	opts := options.Find().SetSort(bson.D{{Key: datumPushTimeKey, Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := db.Collection(datumCollection).Find(ctx, bson.M{
		datumSignatureIDKey: signatureID,
		datumPushTimeKey:    bson.M{"$gte": since},
	}, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "finding data for signature %d", signatureID)
	}
	defer cur.Close(ctx)

	out := []PerformanceDatum{}
	if err = cur.All(ctx, &out); err != nil {
		return nil, errors.Wrapf(err, "decoding data for signature %d", signatureID)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Push is the aggregate of every run of a signature on one push.
type Push struct {
	Time     time.Time `bson:"time" json:"time" yaml:"time"`
	Value    float64   `bson:"value" json:"value" yaml:"value"`
	Runs     int       `bson:"runs" json:"runs" yaml:"runs"`
	HasAlert bool      `bson:"has_alert" json:"has_alert" yaml:"has_alert"`
}

// Pushes is a push-time ordered series.
type Pushes []Push

// AggregatePushes groups runs by push time, takes the median of each group
// and returns the pushes after since in time order.
func AggregatePushes(data []PerformanceDatum, since time.Time) (Pushes, error) {
	groups := map[int64][]PerformanceDatum{}
	for _, datum := range data {
		if !datum.PushTime.After(since) {
			continue
		}
		key := datum.PushTime.UnixNano()
		groups[key] = append(groups[key], datum)
	}

	out := make(Pushes, 0, len(groups))
	for _, runs := range groups {
		values := make([]float64, 0, len(runs))
		hasAlert := false
		for _, run := range runs {
			values = append(values, run.Value)
			hasAlert = hasAlert || run.AlertID != 0
		}
		median, err := stats.Median(values)
		if err != nil {
			return nil, errors.Wrapf(err, "aggregating push at %s", runs[0].PushTime)
		}
		out = append(out, Push{
			Time:     runs[0].PushTime,
			Value:    median,
			Runs:     len(runs),
			HasAlert: hasAlert,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

// Values returns the aggregated value of every push.
func (p Pushes) Values() []float64 {
	out := make([]float64, len(p))
	for i := range p {
		out[i] = p[i].Value
	}
	return out
}

// AlertIndices returns the positions of the pushes that carry an alert.
func (p Pushes) AlertIndices() []int {
	out := []int{}
	for i := range p {
		if p[i].HasAlert {
			out = append(out, i)
		}
	}
	return out
}
