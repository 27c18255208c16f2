package model

import (
	"context"

	"github.com/evergreen-ci/deviant"
	"github.com/evergreen-ci/deviant/perf"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
)

// TriageCategory names one of the listings perf sheriffs work through.
type TriageCategory string

const (
	TriageCategoryDeviant      TriageCategory = "deviant"
	TriageCategoryModal        TriageCategory = "modal"
	TriageCategoryOutliers     TriageCategory = "outliers"
	TriageCategorySkewed       TriageCategory = "skewed"
	TriageCategoryOK           TriageCategory = "ok"
	TriageCategoryNoise        TriageCategory = "noise"
	TriageCategoryExtra        TriageCategory = "extra"
	TriageCategoryMissing      TriageCategory = "missing"
	TriageCategoryPathological TriageCategory = "pathological"
)

const (
	// Series with more segments than these are pathological and would
	// crowd the extra and missing listings.
	maxExtraListingSegments   = 7
	maxMissingListingSegments = 6

	triageSortKey = "triage_sort_key"
)

func (c TriageCategory) Validate() error {
	for _, category := range TriageCategories() {
		if c == category {
			return nil
		}
	}
	return errors.Errorf("invalid triage category '%s'", c)
}

// TriageCategories lists the categories in the order they are reviewed.
func TriageCategories() []TriageCategory {
	return []TriageCategory{
		TriageCategoryDeviant,
		TriageCategoryModal,
		TriageCategoryOutliers,
		TriageCategorySkewed,
		TriageCategoryOK,
		TriageCategoryNoise,
		TriageCategoryExtra,
		TriageCategoryMissing,
		TriageCategoryPathological,
	}
}

type triageListing struct {
	filter    bson.M
	field     string
	magnitude bool
	direction int
}

func (c TriageCategory) listing() triageListing {
	byStatus := func(status perf.Status, magnitude bool, direction int) triageListing {
		return triageListing{
			filter:    bson.M{summaryDevStatusKey: status},
			field:     summaryDevScoreKey,
			magnitude: magnitude,
			direction: direction,
		}
	}

	switch c {
	case TriageCategoryModal:
		return byStatus(perf.StatusModal, false, 1)
	case TriageCategoryOutliers:
		return byStatus(perf.StatusOutliers, false, -1)
	case TriageCategorySkewed:
		return byStatus(perf.StatusSkewed, true, -1)
	case TriageCategoryOK:
		return byStatus(perf.StatusOK, true, -1)
	case TriageCategoryNoise:
		return triageListing{field: summaryRelativeNoiseKey, magnitude: true, direction: -1}
	case TriageCategoryExtra:
		return triageListing{
			filter:    bson.M{summaryNumNewSegmentsKey: bson.M{"$lte": maxExtraListingSegments}},
			field:     summaryMaxExtraDiffKey,
			magnitude: true,
			direction: -1,
		}
	case TriageCategoryMissing:
		return triageListing{
			filter:    bson.M{summaryNumOldSegmentsKey: bson.M{"$lte": maxMissingListingSegments}},
			field:     summaryMaxMissingDiffKey,
			magnitude: true,
			direction: -1,
		}
	case TriageCategoryPathological:
		return triageListing{field: summaryNumNewSegmentsKey, direction: -1}
	default:
		return triageListing{field: summaryDevScoreKey, magnitude: true, direction: -1}
	}
}

// Pipeline builds the aggregation listing the summaries of the category,
// most interesting first. Only summaries with at least one push are
// listed.
func (c TriageCategory) Pipeline(limit int) []bson.M {
	listing := c.listing()

	match := bson.M{summaryNumPushesKey: bson.M{"$gte": 1}}
	for key, value := range listing.filter {
		match[key] = value
	}

	var sortValue interface{} = "$" + listing.field
	if listing.magnitude {
		sortValue = bson.M{"$abs": "$" + listing.field}
	}

	pipeline := []bson.M{
		{"$match": match},
		{"$addFields": bson.M{triageSortKey: sortValue}},
		{"$sort": bson.D{
			{Key: triageSortKey, Value: listing.direction},
			{Key: summaryIDKey, Value: 1},
		}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.M{"$limit": limit})
	}
	return append(pipeline, bson.M{"$project": bson.M{triageSortKey: 0}})
}

// FindTriageSummaries returns up to limit summaries of the category.
func FindTriageSummaries(ctx context.Context, env deviant.Environment, category TriageCategory, limit int) ([]DevianceSummary, error) {
	if err := category.Validate(); err != nil {
		return nil, errors.WithStack(err)
	}
	db := env.GetDB()
	if db == nil {
		return nil, errors.New("no database configured")
	}

	cur, err := db.Collection(summaryCollection).Aggregate(ctx, category.Pipeline(limit))
	if err != nil {
		return nil, errors.Wrapf(err, "listing '%s' summaries", category)
	}
	defer cur.Close(ctx)

	out := []DevianceSummary{}
	if err = cur.All(ctx, &out); err != nil {
		return nil, errors.Wrapf(err, "decoding '%s' summaries", category)
	}
	return out, nil
}
