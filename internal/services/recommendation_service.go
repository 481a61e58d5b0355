package services

import (
	"context"
	"sort"

	"learnpath/internal/config"
	"learnpath/internal/models"
	"learnpath/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// RecommendationServiceInterface defines the topic recommendation operations
type RecommendationServiceInterface interface {
	RecommendTopics(ctx context.Context, studentID string, vectors []models.FeatureVector, topN int) (models.Recommendation, error)
}

// RecommendationService ranks a student's topics weakest-first and attaches a
// target difficulty to each.
type RecommendationService struct {
	cfg    *config.AnalyticsConfig
	logger *observability.Logger
}

// NewRecommendationServiceWithLogger creates a new recommendation service
func NewRecommendationServiceWithLogger(cfg *config.AnalyticsConfig, logger *observability.Logger) *RecommendationService {
	return &RecommendationService{cfg: cfg, logger: logger}
}

// RecommendTopics returns up to topN topics for the student, ordered by
// ascending accuracy with topic name as tie-break. A topN below one falls
// back to the configured default. A student with no feature vectors gets an
// empty recommendation with reason "no_data"; that is a valid outcome, not an
// error.
func (s *RecommendationService) RecommendTopics(ctx context.Context, studentID string, vectors []models.FeatureVector, topN int) (result0 models.Recommendation, err error) {
	ctx, span := observability.TraceAnalyticsFunction(ctx, "recommend_topics",
		observability.AttributeStudentID(studentID),
		attribute.Int("recommend.top_n", topN),
	)
	defer observability.FinishSpan(span, &err)

	if topN < 1 {
		topN = s.cfg.TopN
	}

	own := make([]models.FeatureVector, 0, len(vectors))
	for _, fv := range vectors {
		if fv.StudentID == studentID {
			own = append(own, fv)
		}
	}

	if len(own) == 0 {
		span.SetAttributes(attribute.String("recommend.reason", "no_data"))
		return models.Recommendation{StudentID: studentID, Recommendations: []models.RecommendedTopic{}, Reason: "no_data"}, nil
	}

	sort.SliceStable(own, func(i, j int) bool {
		if own[i].AccuracyMean != own[j].AccuracyMean {
			return own[i].AccuracyMean < own[j].AccuracyMean
		}
		return own[i].Topic < own[j].Topic
	})
	if len(own) > topN {
		own = own[:topN]
	}

	recs := make([]models.RecommendedTopic, len(own))
	for i, fv := range own {
		recs[i] = models.RecommendedTopic{
			Topic:                 fv.Topic,
			Accuracy:              fv.AccuracyMean,
			RecommendedDifficulty: s.difficultyFor(fv.AccuracyMean),
		}
	}

	s.logger.Debug(ctx, "Built topic recommendations", map[string]interface{}{
		"student_id": studentID,
		"topics":     len(recs),
	})

	return models.Recommendation{StudentID: studentID, Recommendations: recs}, nil
}

// difficultyFor maps accuracy to the difficulty a student should practice at
// next: struggle easy, middle band medium, strong hard.
func (s *RecommendationService) difficultyFor(accuracy float64) models.Difficulty {
	switch {
	case accuracy < s.cfg.DifficultyEasyBelow:
		return models.DifficultyEasy
	case accuracy < s.cfg.DifficultyHardFrom:
		return models.DifficultyMedium
	default:
		return models.DifficultyHard
	}
}
