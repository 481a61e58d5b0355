package services

import (
	"context"
	"testing"

	"learnpath/internal/models"
	contextutils "learnpath/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func behaviorVector(student, topic string, accuracy, avgTime, slope float64) models.FeatureVector {
	return models.FeatureVector{
		StudentID:        student,
		Topic:            topic,
		AccuracyMean:     accuracy,
		AvgTimeMean:      avgTime,
		ImprovementSlope: slope,
	}
}

func TestClusterStudents(t *testing.T) {
	svc := NewClusterServiceWithLogger(newTestAnalyticsConfig(), newNopLogger())
	ctx := context.Background()

	t.Run("separates well-defined groups", func(t *testing.T) {
		vectors := []models.FeatureVector{
			behaviorVector("s1", "algebra", 0.95, 10, 0.1),
			behaviorVector("s2", "algebra", 0.90, 12, 0.1),
			behaviorVector("s3", "algebra", 0.50, 60, 0.0),
			behaviorVector("s4", "algebra", 0.45, 55, 0.0),
			behaviorVector("s5", "algebra", 0.10, 120, -0.1),
			behaviorVector("s6", "algebra", 0.15, 110, -0.1),
		}

		assignments, summaries, err := svc.ClusterStudents(ctx, vectors)
		require.NoError(t, err)
		require.Len(t, assignments, 6)
		require.Len(t, summaries, 3)

		// Students in the same group land in the same cluster.
		assert.Equal(t, assignments[0].Cluster, assignments[1].Cluster)
		assert.Equal(t, assignments[2].Cluster, assignments[3].Cluster)
		assert.Equal(t, assignments[4].Cluster, assignments[5].Cluster)
		// The three groups are distinct.
		assert.NotEqual(t, assignments[0].Cluster, assignments[2].Cluster)
		assert.NotEqual(t, assignments[2].Cluster, assignments[4].Cluster)

		var total int
		for _, s := range summaries {
			total += s.Size
			assert.Len(t, s.Centroid, 3)
		}
		assert.Equal(t, 6, total)
	})

	t.Run("deterministic across runs", func(t *testing.T) {
		vectors := []models.FeatureVector{
			behaviorVector("s1", "algebra", 0.9, 15, 0.05),
			behaviorVector("s2", "algebra", 0.4, 70, 0.0),
			behaviorVector("s3", "algebra", 0.2, 100, -0.05),
			behaviorVector("s4", "algebra", 0.85, 20, 0.04),
			behaviorVector("s5", "algebra", 0.35, 80, 0.01),
		}

		first, _, err := svc.ClusterStudents(ctx, vectors)
		require.NoError(t, err)
		second, _, err := svc.ClusterStudents(ctx, vectors)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("fewer vectors than clusters", func(t *testing.T) {
		vectors := []models.FeatureVector{
			behaviorVector("s1", "algebra", 0.9, 15, 0.05),
			behaviorVector("s2", "algebra", 0.2, 90, -0.02),
		}

		assignments, summaries, err := svc.ClusterStudents(ctx, vectors)
		require.NoError(t, err)
		require.Len(t, assignments, 2)
		require.Len(t, summaries, 2)
		assert.NotEqual(t, assignments[0].Cluster, assignments[1].Cluster)
	})

	t.Run("empty input is insufficient data", func(t *testing.T) {
		_, _, err := svc.ClusterStudents(ctx, nil)
		require.Error(t, err)
		assert.True(t, contextutils.IsError(err, contextutils.ErrInsufficientData))
	})

	t.Run("identical vectors collapse into one cluster", func(t *testing.T) {
		vectors := []models.FeatureVector{
			behaviorVector("s1", "algebra", 0.5, 30, 0),
			behaviorVector("s2", "algebra", 0.5, 30, 0),
			behaviorVector("s3", "algebra", 0.5, 30, 0),
			behaviorVector("s4", "algebra", 0.5, 30, 0),
		}

		assignments, _, err := svc.ClusterStudents(ctx, vectors)
		require.NoError(t, err)
		for _, a := range assignments {
			assert.Equal(t, assignments[0].Cluster, a.Cluster)
		}
	})
}

func TestStandardize(t *testing.T) {
	points := [][]float64{{1, 10}, {3, 10}}
	scaled := standardize(points)
	require.Len(t, scaled, 2)
	assert.InDelta(t, -1.0, scaled[0][0], 1e-9)
	assert.InDelta(t, 1.0, scaled[1][0], 1e-9)
	// Zero-variance dimension maps to zero.
	assert.Zero(t, scaled[0][1])
	assert.Zero(t, scaled[1][1])
}
