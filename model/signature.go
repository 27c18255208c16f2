package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/evergreen-ci/deviant"
	"github.com/evergreen-ci/deviant/perf"
	"github.com/mongodb/anser/bsonutil"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const signatureCollection = "performance_signature"

// PerformanceSignature identifies one performance series: a test on a
// platform in a repository, together with the alerting settings the
// segmenter uses for it.
type PerformanceSignature struct {
	ID              int     `bson:"_id" json:"id" yaml:"id"`
	Hash            string  `bson:"signature_hash" json:"signature_hash" yaml:"signature_hash"`
	Framework       string  `bson:"framework" json:"framework" yaml:"framework"`
	Suite           string  `bson:"suite" json:"suite" yaml:"suite"`
	Test            string  `bson:"test" json:"test" yaml:"test"`
	Platform        string  `bson:"platform" json:"platform" yaml:"platform"`
	Repository      string  `bson:"repository" json:"repository" yaml:"repository"`
	AlertChangeType string  `bson:"alert_change_type" json:"alert_change_type" yaml:"alert_change_type"`
	AlertThreshold  float64 `bson:"alert_threshold" json:"alert_threshold" yaml:"alert_threshold"`
}

var (
	signatureIDKey         = bsonutil.MustHaveTag(PerformanceSignature{}, "ID")
	signatureHashKey       = bsonutil.MustHaveTag(PerformanceSignature{}, "Hash")
	signatureRepositoryKey = bsonutil.MustHaveTag(PerformanceSignature{}, "Repository")
)

// Title joins the identifying fields of the signature into a single
// human readable label.
func (s *PerformanceSignature) Title() string {
	parts := []string{fmt.Sprint(s.ID), s.Framework, s.Suite}
	if s.Test != "" {
		parts = append(parts, s.Test)
	}
	return strings.Join(append(parts, s.Platform, s.Repository), "-")
}

// Options builds the analysis options for the signature from the
// configured analysis settings and the signature's own alert settings.
func (s *PerformanceSignature) Options(conf deviant.AnalysisConfig) (perf.Options, error) {
	changeType, err := perf.ParseChangeType(s.AlertChangeType)
	if err != nil {
		return perf.Options{}, errors.Wrapf(err, "signature %d", s.ID)
	}
	return conf.Options(changeType, s.AlertThreshold), nil
}

// Save upserts the signature.
func (s *PerformanceSignature) Save(ctx context.Context, env deviant.Environment) error {
	db := env.GetDB()
	if db == nil {
		return errors.New("no database configured")
	}

	_, err := db.Collection(signatureCollection).ReplaceOne(ctx,
		bson.M{signatureIDKey: s.ID}, s, options.Replace().SetUpsert(true))
	return errors.Wrapf(err, "saving signature %d", s.ID)
}

// FindSignature returns the signature with the given id.
func FindSignature(ctx context.Context, env deviant.Environment, id int) (*PerformanceSignature, error) {
	db := env.GetDB()
	if db == nil {
		return nil, errors.New("no database configured")
	}

	out := &PerformanceSignature{}
	err := db.Collection(signatureCollection).FindOne(ctx, bson.M{signatureIDKey: id}).Decode(out)
	if err == mongo.ErrNoDocuments {
		return nil, errors.Errorf("could not find signature %d", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "finding signature %d", id)
	}
	return out, nil
}

// FindSignatureByHash returns the signature with the given hash in a
// repository.
func FindSignatureByHash(ctx context.Context, env deviant.Environment, repository, hash string) (*PerformanceSignature, error) {
	db := env.GetDB()
	if db == nil {
		return nil, errors.New("no database configured")
	}

	out := &PerformanceSignature{}
	err := db.Collection(signatureCollection).FindOne(ctx, bson.M{
		signatureRepositoryKey: repository,
		signatureHashKey:       hash,
	}).Decode(out)
	if err == mongo.ErrNoDocuments {
		return nil, errors.Errorf("could not find signature '%s' in '%s'", hash, repository)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "finding signature '%s' in '%s'", hash, repository)
	}
	return out, nil
}

// FindSignatures returns the signatures with the given ids, ordered by id.
func FindSignatures(ctx context.Context, env deviant.Environment, ids []int) ([]PerformanceSignature, error) {
	db := env.GetDB()
	if db == nil {
		return nil, errors.New("no database configured")
	}

	cur, err := db.Collection(signatureCollection).Find(ctx,
		bson.M{signatureIDKey: bson.M{"$in": ids}},
		options.Find().SetSort(bson.M{signatureIDKey: 1}))
	if err != nil {
		return nil, errors.Wrap(err, "finding signatures")
	}
	defer cur.Close(ctx)

	out := []PerformanceSignature{}
	if err = cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "decoding signatures")
	}
	return out, nil
}

// FindRecentlyUpdatedSignatures returns the ids of the signatures that
// received data since the given time, most recently updated first, in the
// given repositories (all of them when empty).
func FindRecentlyUpdatedSignatures(ctx context.Context, env deviant.Environment, since time.Time, repositories []string, limit int) ([]int, error) {
	db := env.GetDB()
	if db == nil {
		return nil, errors.New("no database configured")
	}

	match := bson.M{datumPushTimeKey: bson.M{"$gte": since}}
	if len(repositories) > 0 {
		match[datumRepositoryKey] = bson.M{"$in": repositories}
	}
	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{
			"_id":       "$" + datumSignatureIDKey,
			"last_push": bson.M{"$max": "$" + datumPushTimeKey},
		}},
		{"$sort": bson.D{{Key: "last_push", Value: -1}, {Key: "_id", Value: 1}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.M{"$limit": limit})
	}

	cur, err := db.Collection(datumCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "finding recently updated signatures")
	}
	defer cur.Close(ctx)

	var res []struct {
		ID int `bson:"_id"`
	}
	if err = cur.All(ctx, &res); err != nil {
		return nil, errors.Wrap(err, "decoding recently updated signatures")
	}

	out := make([]int, 0, len(res))
	for _, doc := range res {
		out = append(out, doc.ID)
	}
	return out, nil
}
