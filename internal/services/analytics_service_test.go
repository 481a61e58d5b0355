package services

import (
	"context"
	"testing"
	"time"

	"learnpath/internal/models"
	contextutils "learnpath/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func ts(minutes int) time.Time {
	return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(minutes) * time.Minute)
}

func newTestAnalyticsService() *AnalyticsService {
	return NewAnalyticsServiceWithLogger(newNopLogger())
}

func TestNormalizeAttempts(t *testing.T) {
	svc := newTestAnalyticsService()
	ctx := context.Background()

	t.Run("fills missing counters and time", func(t *testing.T) {
		records := []models.AttemptRecord{
			{StudentID: "s1", Topic: "algebra", Difficulty: models.DifficultyEasy, CorrectAnswers: intPtr(3), TotalQuestions: intPtr(5), TimeTakenSeconds: floatPtr(100), AttemptedAt: ts(0)},
			{StudentID: "s1", Topic: "algebra", Difficulty: models.DifficultyEasy, TimeTakenSeconds: floatPtr(300), AttemptedAt: ts(1)},
			{StudentID: "s1", Topic: "algebra", Difficulty: models.DifficultyEasy, CorrectAnswers: intPtr(2), TotalQuestions: intPtr(4), AttemptedAt: ts(2)},
		}

		out, err := svc.NormalizeAttempts(ctx, records)
		require.NoError(t, err)
		require.Len(t, out, 3)

		assert.Equal(t, 0, *out[1].CorrectAnswers)
		assert.Equal(t, 1, *out[1].TotalQuestions)
		// Median of the two present times (100, 300).
		assert.InDelta(t, 200.0, *out[2].TimeTakenSeconds, 1e-9)
	})

	t.Run("missing student_id is a data error", func(t *testing.T) {
		records := []models.AttemptRecord{
			{Topic: "algebra", CorrectAnswers: intPtr(1), TotalQuestions: intPtr(2), AttemptedAt: ts(0)},
		}

		_, err := svc.NormalizeAttempts(ctx, records)
		require.Error(t, err)
		assert.True(t, contextutils.IsError(err, contextutils.ErrMissingRequired))
	})

	t.Run("missing topic is a data error", func(t *testing.T) {
		records := []models.AttemptRecord{
			{StudentID: "s1", CorrectAnswers: intPtr(1), TotalQuestions: intPtr(2), AttemptedAt: ts(0)},
		}

		_, err := svc.NormalizeAttempts(ctx, records)
		require.Error(t, err)
		assert.True(t, contextutils.IsError(err, contextutils.ErrMissingRequired))
	})

	t.Run("zero total questions is a data error", func(t *testing.T) {
		records := []models.AttemptRecord{
			{StudentID: "s1", Topic: "algebra", CorrectAnswers: intPtr(0), TotalQuestions: intPtr(0), TimeTakenSeconds: floatPtr(10), AttemptedAt: ts(0)},
		}

		_, err := svc.NormalizeAttempts(ctx, records)
		require.Error(t, err)
		assert.True(t, contextutils.IsError(err, contextutils.ErrDataInvalid))
	})
}

func TestAggregateFeatures(t *testing.T) {
	svc := newTestAnalyticsService()
	ctx := context.Background()

	t.Run("single record group has zero std and slope", func(t *testing.T) {
		records := []models.AttemptRecord{
			{StudentID: "s1", Topic: "algebra", Difficulty: models.DifficultyMedium, CorrectAnswers: intPtr(4), TotalQuestions: intPtr(5), TimeTakenSeconds: floatPtr(250), AttemptedAt: ts(0)},
		}

		vectors, err := svc.AggregateFeatures(ctx, records)
		require.NoError(t, err)
		require.Len(t, vectors, 1)

		fv := vectors[0]
		assert.Equal(t, "s1", fv.StudentID)
		assert.Equal(t, "algebra", fv.Topic)
		assert.InDelta(t, 0.8, fv.AccuracyMean, 1e-9)
		assert.Zero(t, fv.AccuracyStd)
		assert.Zero(t, fv.ImprovementSlope)
		assert.InDelta(t, 50.0, fv.AvgTimeMean, 1e-9)
		assert.Equal(t, 1, fv.AttemptsCount)
		assert.InDelta(t, 0.8, fv.SuccessMedium, 1e-9)
		assert.Zero(t, fv.SuccessEasy)
		assert.Zero(t, fv.SuccessHard)
	})

	t.Run("improving student has positive slope", func(t *testing.T) {
		records := []models.AttemptRecord{
			{StudentID: "s1", Topic: "algebra", Difficulty: models.DifficultyEasy, CorrectAnswers: intPtr(2), TotalQuestions: intPtr(10), TimeTakenSeconds: floatPtr(100), AttemptedAt: ts(0)},
			{StudentID: "s1", Topic: "algebra", Difficulty: models.DifficultyEasy, CorrectAnswers: intPtr(5), TotalQuestions: intPtr(10), TimeTakenSeconds: floatPtr(100), AttemptedAt: ts(10)},
			{StudentID: "s1", Topic: "algebra", Difficulty: models.DifficultyEasy, CorrectAnswers: intPtr(9), TotalQuestions: intPtr(10), TimeTakenSeconds: floatPtr(100), AttemptedAt: ts(20)},
		}

		vectors, err := svc.AggregateFeatures(ctx, records)
		require.NoError(t, err)
		require.Len(t, vectors, 1)
		assert.Greater(t, vectors[0].ImprovementSlope, 0.0)
		assert.Greater(t, vectors[0].AccuracyStd, 0.0)
	})

	t.Run("declining student has negative slope", func(t *testing.T) {
		records := []models.AttemptRecord{
			{StudentID: "s1", Topic: "algebra", Difficulty: models.DifficultyEasy, CorrectAnswers: intPtr(9), TotalQuestions: intPtr(10), TimeTakenSeconds: floatPtr(100), AttemptedAt: ts(0)},
			{StudentID: "s1", Topic: "algebra", Difficulty: models.DifficultyEasy, CorrectAnswers: intPtr(3), TotalQuestions: intPtr(10), TimeTakenSeconds: floatPtr(100), AttemptedAt: ts(10)},
		}

		vectors, err := svc.AggregateFeatures(ctx, records)
		require.NoError(t, err)
		require.Len(t, vectors, 1)
		assert.Less(t, vectors[0].ImprovementSlope, 0.0)
	})

	t.Run("identical timestamps yield zero slope", func(t *testing.T) {
		records := []models.AttemptRecord{
			{StudentID: "s1", Topic: "algebra", Difficulty: models.DifficultyEasy, CorrectAnswers: intPtr(2), TotalQuestions: intPtr(10), TimeTakenSeconds: floatPtr(100), AttemptedAt: ts(0)},
			{StudentID: "s1", Topic: "algebra", Difficulty: models.DifficultyEasy, CorrectAnswers: intPtr(9), TotalQuestions: intPtr(10), TimeTakenSeconds: floatPtr(100), AttemptedAt: ts(0)},
		}

		vectors, err := svc.AggregateFeatures(ctx, records)
		require.NoError(t, err)
		require.Len(t, vectors, 1)
		assert.Zero(t, vectors[0].ImprovementSlope)
	})

	t.Run("groups by student and topic in stable order", func(t *testing.T) {
		records := []models.AttemptRecord{
			{StudentID: "s2", Topic: "geometry", Difficulty: models.DifficultyEasy, CorrectAnswers: intPtr(1), TotalQuestions: intPtr(2), TimeTakenSeconds: floatPtr(60), AttemptedAt: ts(0)},
			{StudentID: "s1", Topic: "geometry", Difficulty: models.DifficultyEasy, CorrectAnswers: intPtr(1), TotalQuestions: intPtr(2), TimeTakenSeconds: floatPtr(60), AttemptedAt: ts(0)},
			{StudentID: "s1", Topic: "algebra", Difficulty: models.DifficultyEasy, CorrectAnswers: intPtr(1), TotalQuestions: intPtr(2), TimeTakenSeconds: floatPtr(60), AttemptedAt: ts(0)},
		}

		vectors, err := svc.AggregateFeatures(ctx, records)
		require.NoError(t, err)
		require.Len(t, vectors, 3)
		assert.Equal(t, "s1", vectors[0].StudentID)
		assert.Equal(t, "algebra", vectors[0].Topic)
		assert.Equal(t, "s1", vectors[1].StudentID)
		assert.Equal(t, "geometry", vectors[1].Topic)
		assert.Equal(t, "s2", vectors[2].StudentID)
	})

	t.Run("empty input yields empty output", func(t *testing.T) {
		vectors, err := svc.AggregateFeatures(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, vectors)
	})
}

func TestTrendSlope(t *testing.T) {
	t.Run("exact linear fit", func(t *testing.T) {
		x := []float64{0, 1, 2, 3}
		y := []float64{1, 3, 5, 7}
		assert.InDelta(t, 2.0, trendSlope(x, y), 1e-9)
	})

	t.Run("no variance in x", func(t *testing.T) {
		assert.Zero(t, trendSlope([]float64{5, 5}, []float64{1, 2}))
	})
}

func TestMedian(t *testing.T) {
	assert.Zero(t, median(nil))
	assert.InDelta(t, 3.0, median([]float64{5, 3, 1}), 1e-9)
	assert.InDelta(t, 2.5, median([]float64{4, 1, 2, 3}), 1e-9)
}
