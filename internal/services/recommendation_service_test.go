package services

import (
	"context"
	"testing"

	"learnpath/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommendTopics(t *testing.T) {
	svc := NewRecommendationServiceWithLogger(newTestAnalyticsConfig(), newNopLogger())
	ctx := context.Background()

	vectors := []models.FeatureVector{
		{StudentID: "s1", Topic: "algebra", AccuracyMean: 0.9},
		{StudentID: "s1", Topic: "geometry", AccuracyMean: 0.3},
		{StudentID: "s1", Topic: "calculus", AccuracyMean: 0.55},
		{StudentID: "s1", Topic: "statistics", AccuracyMean: 0.75},
		{StudentID: "s2", Topic: "algebra", AccuracyMean: 0.1},
	}

	t.Run("weakest topics first with matching difficulty", func(t *testing.T) {
		rec, err := svc.RecommendTopics(ctx, "s1", vectors, 3)
		require.NoError(t, err)
		require.Len(t, rec.Recommendations, 3)
		assert.Empty(t, rec.Reason)

		assert.Equal(t, "geometry", rec.Recommendations[0].Topic)
		assert.Equal(t, models.DifficultyEasy, rec.Recommendations[0].RecommendedDifficulty)
		assert.Equal(t, "calculus", rec.Recommendations[1].Topic)
		assert.Equal(t, models.DifficultyMedium, rec.Recommendations[1].RecommendedDifficulty)
		assert.Equal(t, "statistics", rec.Recommendations[2].Topic)
		assert.Equal(t, models.DifficultyHard, rec.Recommendations[2].RecommendedDifficulty)
	})

	t.Run("only the student's own vectors count", func(t *testing.T) {
		rec, err := svc.RecommendTopics(ctx, "s2", vectors, 3)
		require.NoError(t, err)
		require.Len(t, rec.Recommendations, 1)
		assert.Equal(t, "algebra", rec.Recommendations[0].Topic)
	})

	t.Run("unknown student gets no_data, not an error", func(t *testing.T) {
		rec, err := svc.RecommendTopics(ctx, "ghost", vectors, 3)
		require.NoError(t, err)
		assert.Empty(t, rec.Recommendations)
		assert.Equal(t, "no_data", rec.Reason)
	})

	t.Run("non-positive topN falls back to the default", func(t *testing.T) {
		rec, err := svc.RecommendTopics(ctx, "s1", vectors, 0)
		require.NoError(t, err)
		assert.Len(t, rec.Recommendations, 3)
	})

	t.Run("accuracy ties break on topic name", func(t *testing.T) {
		tied := []models.FeatureVector{
			{StudentID: "s1", Topic: "zeta", AccuracyMean: 0.5},
			{StudentID: "s1", Topic: "alpha", AccuracyMean: 0.5},
		}
		rec, err := svc.RecommendTopics(ctx, "s1", tied, 2)
		require.NoError(t, err)
		require.Len(t, rec.Recommendations, 2)
		assert.Equal(t, "alpha", rec.Recommendations[0].Topic)
		assert.Equal(t, "zeta", rec.Recommendations[1].Topic)
	})

	t.Run("boundary accuracies map to the upper band", func(t *testing.T) {
		boundary := []models.FeatureVector{
			{StudentID: "s1", Topic: "a", AccuracyMean: 0.4},
			{StudentID: "s1", Topic: "b", AccuracyMean: 0.7},
		}
		rec, err := svc.RecommendTopics(ctx, "s1", boundary, 2)
		require.NoError(t, err)
		require.Len(t, rec.Recommendations, 2)
		assert.Equal(t, models.DifficultyMedium, rec.Recommendations[0].RecommendedDifficulty)
		assert.Equal(t, models.DifficultyHard, rec.Recommendations[1].RecommendedDifficulty)
	})
}
