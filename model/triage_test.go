package model

import (
	"context"
	"testing"

	"github.com/evergreen-ci/deviant/perf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestTriageCategory(t *testing.T) {
	t.Run("Validate", func(t *testing.T) {
		for _, category := range TriageCategories() {
			assert.NoError(t, category.Validate())
		}
		assert.Error(t, TriageCategory("bimodal").Validate())
	})
	t.Run("PipelineSortsByMagnitude", func(t *testing.T) {
		pipeline := TriageCategorySkewed.Pipeline(5)
		require.Len(t, pipeline, 5)

		match := pipeline[0]["$match"].(bson.M)
		assert.Equal(t, perf.StatusSkewed, match[summaryDevStatusKey])
		assert.Equal(t, bson.M{"$gte": 1}, match[summaryNumPushesKey])

		addFields := pipeline[1]["$addFields"].(bson.M)
		assert.Equal(t, bson.M{"$abs": "$" + summaryDevScoreKey}, addFields[triageSortKey])

		sort := pipeline[2]["$sort"].(bson.D)
		assert.Equal(t, -1, sort[0].Value)
		assert.Equal(t, 5, pipeline[3]["$limit"])
	})
	t.Run("ModalSortsAscending", func(t *testing.T) {
		pipeline := TriageCategoryModal.Pipeline(0)
		require.Len(t, pipeline, 4)
		addFields := pipeline[1]["$addFields"].(bson.M)
		assert.Equal(t, "$"+summaryDevScoreKey, addFields[triageSortKey])
		sort := pipeline[2]["$sort"].(bson.D)
		assert.Equal(t, 1, sort[0].Value)
	})
	t.Run("ExtraFiltersPathological", func(t *testing.T) {
		match := TriageCategoryExtra.Pipeline(1)[0]["$match"].(bson.M)
		assert.Equal(t, bson.M{"$lte": maxExtraListingSegments}, match[summaryNumNewSegmentsKey])
	})
}

func TestFindTriageSummaries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env := testEnvironment(ctx, t)

	for _, summary := range []DevianceSummary{
		{ID: 1, NumPushes: 20, DevStatus: perf.StatusSkewed, DevScore: floatPtr(1.5), NumNewSegments: 2, MaxExtraDiff: floatPtr(0.2)},
		{ID: 2, NumPushes: 20, DevStatus: perf.StatusSkewed, DevScore: floatPtr(-3), NumNewSegments: 12, MaxExtraDiff: floatPtr(0.9)},
		{ID: 3, NumPushes: 20, DevStatus: perf.StatusOK, DevScore: floatPtr(0.1), RelativeNoise: floatPtr(0.3), NumNewSegments: 1},
		{ID: 4, NumPushes: 0, DevStatus: perf.StatusSkewed, DevScore: floatPtr(10)},
		{ID: 5, NumPushes: 20, DevStatus: perf.StatusModal, DevScore: floatPtr(8), RelativeNoise: floatPtr(-0.6), NumNewSegments: 3},
	} {
		require.NoError(t, summary.Save(ctx, env))
	}

	ids := func(summaries []DevianceSummary) []int {
		out := []int{}
		for _, summary := range summaries {
			out = append(out, summary.ID)
		}
		return out
	}

	for category, expected := range map[TriageCategory][]int{
		TriageCategorySkewed:       {2, 1},
		TriageCategoryDeviant:      {5, 2, 1, 3},
		TriageCategoryNoise:        {5, 3, 1, 2},
		TriageCategoryExtra:        {1, 3, 5},
		TriageCategoryPathological: {2, 5, 1, 3},
		TriageCategoryOutliers:     {},
	} {
		t.Run(string(category), func(t *testing.T) {
			found, err := FindTriageSummaries(ctx, env, category, 0)
			require.NoError(t, err)
			assert.Equal(t, expected, ids(found))
		})
	}
	t.Run("Limit", func(t *testing.T) {
		found, err := FindTriageSummaries(ctx, env, TriageCategoryDeviant, 2)
		require.NoError(t, err)
		assert.Equal(t, []int{5, 2}, ids(found))
	})
	t.Run("InvalidCategory", func(t *testing.T) {
		_, err := FindTriageSummaries(ctx, env, "bimodal", 1)
		assert.Error(t, err)
	})
}
