// Package services provides business logic services for the learning platform.
package services

import (
	"context"
	"math"
	"sort"

	"learnpath/internal/models"
	"learnpath/internal/observability"
	contextutils "learnpath/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// AnalyticsServiceInterface defines the feature aggregation operations
type AnalyticsServiceInterface interface {
	NormalizeAttempts(ctx context.Context, records []models.AttemptRecord) ([]models.AttemptRecord, error)
	AggregateFeatures(ctx context.Context, records []models.AttemptRecord) ([]models.FeatureVector, error)
}

// AnalyticsService turns raw attempt logs into per-(student, topic) feature
// vectors.
type AnalyticsService struct {
	logger *observability.Logger
}

// NewAnalyticsServiceWithLogger creates a new analytics service
func NewAnalyticsServiceWithLogger(logger *observability.Logger) *AnalyticsService {
	return &AnalyticsService{logger: logger}
}

// NormalizeAttempts applies the documented NA-fill rules: missing
// correct_answers become 0, missing total_questions become 1, and missing
// time_taken falls back to the dataset median. A record without a student id
// or topic is a data error and surfaces immediately; nothing is dropped
// silently.
func (s *AnalyticsService) NormalizeAttempts(ctx context.Context, records []models.AttemptRecord) (result0 []models.AttemptRecord, err error) {
	_, span := observability.TraceAnalyticsFunction(ctx, "normalize_attempts",
		observability.AttributeRecordCount(len(records)),
	)
	defer observability.FinishSpan(span, &err)

	times := make([]float64, 0, len(records))
	for _, r := range records {
		if r.TimeTakenSeconds != nil {
			times = append(times, *r.TimeTakenSeconds)
		}
	}
	timeMedian := median(times)

	out := make([]models.AttemptRecord, 0, len(records))
	for i, r := range records {
		if r.StudentID == "" {
			span.SetAttributes(attribute.Int("normalize.failed_index", i))
			return nil, contextutils.WrapErrorf(contextutils.ErrMissingRequired, "attempt record %d has no student_id", i)
		}
		if r.Topic == "" {
			span.SetAttributes(attribute.Int("normalize.failed_index", i))
			return nil, contextutils.WrapErrorf(contextutils.ErrMissingRequired, "attempt record %d has no topic", i)
		}

		if r.CorrectAnswers == nil {
			zero := 0
			r.CorrectAnswers = &zero
		}
		if r.TotalQuestions == nil {
			one := 1
			r.TotalQuestions = &one
		} else if *r.TotalQuestions < 1 {
			span.SetAttributes(attribute.Int("normalize.failed_index", i))
			return nil, contextutils.WrapErrorf(contextutils.ErrDataInvalid, "attempt record %d has non-positive total_questions %d", i, *r.TotalQuestions)
		}
		if r.TimeTakenSeconds == nil {
			m := timeMedian
			r.TimeTakenSeconds = &m
		}
		out = append(out, r)
	}

	return out, nil
}

// AggregateFeatures computes one feature vector per distinct (student, topic)
// pair. Records are normalized first; each group is processed in timestamp
// order so the improvement slope reflects the accuracy trend over time.
func (s *AnalyticsService) AggregateFeatures(ctx context.Context, records []models.AttemptRecord) (result0 []models.FeatureVector, err error) {
	ctx, span := observability.TraceAnalyticsFunction(ctx, "aggregate_features",
		observability.AttributeRecordCount(len(records)),
	)
	defer observability.FinishSpan(span, &err)

	normalized, err := s.NormalizeAttempts(ctx, records)
	if err != nil {
		return nil, err
	}

	type groupKey struct {
		student string
		topic   string
	}
	groups := make(map[groupKey][]models.AttemptRecord)
	for _, r := range normalized {
		k := groupKey{student: r.StudentID, topic: r.Topic}
		groups[k] = append(groups[k], r)
	}

	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].student != keys[j].student {
			return keys[i].student < keys[j].student
		}
		return keys[i].topic < keys[j].topic
	})

	vectors := make([]models.FeatureVector, 0, len(keys))
	for _, k := range keys {
		group := groups[k]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].AttemptedAt.Before(group[j].AttemptedAt)
		})
		vectors = append(vectors, aggregateGroup(k.student, k.topic, group))
	}

	s.logger.Debug(ctx, "Aggregated attempt features", map[string]interface{}{
		"records": len(records),
		"vectors": len(vectors),
	})
	span.SetAttributes(attribute.Int("vectors.count", len(vectors)))

	return vectors, nil
}

// aggregateGroup computes the statistics for one timestamp-sorted group.
func aggregateGroup(studentID, topic string, group []models.AttemptRecord) models.FeatureVector {
	accuracies := make([]float64, len(group))
	perQuestionTimes := make([]float64, len(group))
	timestamps := make([]float64, len(group))
	byDifficulty := make(map[models.Difficulty][]float64)

	for i, r := range group {
		total := float64(*r.TotalQuestions)
		acc := float64(*r.CorrectAnswers) / total
		accuracies[i] = acc
		perQuestionTimes[i] = *r.TimeTakenSeconds / total
		timestamps[i] = float64(r.AttemptedAt.Unix())
		byDifficulty[r.Difficulty] = append(byDifficulty[r.Difficulty], acc)
	}

	fv := models.FeatureVector{
		StudentID:     studentID,
		Topic:         topic,
		AccuracyMean:  mean(accuracies),
		AvgTimeMean:   mean(perQuestionTimes),
		AttemptsCount: len(group),
		SuccessEasy:   meanOrZero(byDifficulty[models.DifficultyEasy]),
		SuccessMedium: meanOrZero(byDifficulty[models.DifficultyMedium]),
		SuccessHard:   meanOrZero(byDifficulty[models.DifficultyHard]),
	}
	if len(group) > 1 {
		fv.AccuracyStd = populationStd(accuracies)
		fv.ImprovementSlope = trendSlope(timestamps, accuracies)
	}
	return fv
}

// trendSlope is the least-squares slope of y over x, computed as the
// population covariance divided by the variance of x. Zero when x has no
// variance.
func trendSlope(x, y []float64) float64 {
	varX := populationVariance(x)
	if varX == 0 {
		return 0
	}
	mx := mean(x)
	my := mean(y)
	var cov float64
	for i := range x {
		cov += (x[i] - mx) * (y[i] - my)
	}
	cov /= float64(len(x))
	return cov / varX
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// meanOrZero is the conservative fill for difficulty success ratios with no
// samples.
func meanOrZero(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return mean(values)
}

func populationVariance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}

func populationStd(values []float64) float64 {
	return math.Sqrt(populationVariance(values))
}

// median returns the middle value of the inputs, or 0 for an empty slice. The
// input slice is not modified.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
