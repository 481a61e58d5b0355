package handlers

import (
	"context"
	"net/http"
	"time"

	"learnpath/internal/database"
	"learnpath/internal/models"
	"learnpath/internal/observability"
	"learnpath/internal/services"
	contextutils "learnpath/internal/utils"

	"github.com/gin-gonic/gin"
)

// AnalyticsHandler serves the attempt ingestion and analytics endpoints.
type AnalyticsHandler struct {
	attempts       database.AttemptStoreInterface
	analytics      services.AnalyticsServiceInterface
	clusters       services.ClusterServiceInterface
	mastery        services.MasteryServiceInterface
	recommendation services.RecommendationServiceInterface
	learningPath   services.LearningPathServiceInterface
	logger         *observability.Logger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(
	attempts database.AttemptStoreInterface,
	analytics services.AnalyticsServiceInterface,
	clusters services.ClusterServiceInterface,
	mastery services.MasteryServiceInterface,
	recommendation services.RecommendationServiceInterface,
	learningPath services.LearningPathServiceInterface,
	logger *observability.Logger,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		attempts:       attempts,
		analytics:      analytics,
		clusters:       clusters,
		mastery:        mastery,
		recommendation: recommendation,
		learningPath:   learningPath,
		logger:         logger,
	}
}

type recordAttemptRequest struct {
	StudentID        string     `json:"student_id" binding:"required"`
	Topic            string     `json:"topic" binding:"required"`
	Difficulty       string     `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	CorrectAnswers   *int       `json:"correct_answers" binding:"omitempty,min=0"`
	TotalQuestions   *int       `json:"total_questions" binding:"omitempty,min=1"`
	TimeTakenSeconds *float64   `json:"time_taken_seconds" binding:"omitempty,min=0"`
	AttemptedAt      *time.Time `json:"attempt_timestamp"`
}

// RecordAttempt ingests one quiz attempt.
func (h *AnalyticsHandler) RecordAttempt(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "record_attempt")
	var err error
	defer observability.FinishSpan(span, &err)

	var req recordAttemptRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid attempt payload: %w", err))
		return
	}

	difficulty := models.Difficulty(req.Difficulty)
	if req.Difficulty == "" {
		difficulty = models.DifficultyMedium
	}
	attemptedAt := time.Now().UTC()
	if req.AttemptedAt != nil {
		attemptedAt = *req.AttemptedAt
	}

	record := models.AttemptRecord{
		StudentID:        req.StudentID,
		Topic:            req.Topic,
		Difficulty:       difficulty,
		CorrectAnswers:   req.CorrectAnswers,
		TotalQuestions:   req.TotalQuestions,
		TimeTakenSeconds: req.TimeTakenSeconds,
		AttemptedAt:      attemptedAt,
	}
	if err = h.attempts.SaveAttempt(ctx, record); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "recorded"})
}

type recommendationsRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	TopN      int    `json:"top_n" binding:"omitempty,min=1,max=20"`
}

// Recommendations returns the weakness-ranked topic list for a student.
func (h *AnalyticsHandler) Recommendations(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "recommendations")
	var err error
	defer observability.FinishSpan(span, &err)

	var req recommendationsRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid recommendations payload: %w", err))
		return
	}

	rec, err := h.recommendationFor(ctx, req.StudentID, req.TopN)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

type learningPathRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	Pace      string `json:"pace" binding:"omitempty,oneof=slow normal fast"`
	TopN      int    `json:"top_n" binding:"omitempty,min=1,max=20"`
}

// LearningPath returns per-topic study sequences for a student.
func (h *AnalyticsHandler) LearningPath(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "learning_path")
	var err error
	defer observability.FinishSpan(span, &err)

	var req learningPathRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid learning path payload: %w", err))
		return
	}

	pace := models.Pace(req.Pace)
	if req.Pace == "" {
		pace = models.PaceNormal
	}

	rec, err := h.recommendationFor(ctx, req.StudentID, req.TopN)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	path, err := h.learningPath.GeneratePath(ctx, rec, pace)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"student_id": req.StudentID,
		"pace":       string(pace),
		"path":       path,
	})
}

// Clusters groups all (student, topic) behavior vectors.
func (h *AnalyticsHandler) Clusters(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "clusters")
	var err error
	defer observability.FinishSpan(span, &err)

	records, err := h.attempts.LoadAttempts(ctx)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	vectors, err := h.analytics.AggregateFeatures(ctx, records)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	assignments, summaries, err := h.clusters.ClusterStudents(ctx, vectors)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"assignments": assignments,
		"clusters":    summaries,
	})
}

// Mastery returns the global mastery label and, when a per-topic model
// exists, the mastery probability for one (student, topic) pair.
func (h *AnalyticsHandler) Mastery(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "mastery")
	var err error
	defer observability.FinishSpan(span, &err)

	studentID := c.Query("student_id")
	topic := c.Query("topic")
	if !contextutils.IsValidStudentID(studentID) || topic == "" {
		respondError(c, h.logger, contextutils.WrapError(contextutils.ErrInvalidInput, "student_id and topic query parameters are required"))
		return
	}

	records, err := h.attempts.LoadAttemptsByStudent(ctx, studentID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	vectors, err := h.analytics.AggregateFeatures(ctx, records)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var fv *models.FeatureVector
	for i := range vectors {
		if vectors[i].Topic == topic {
			fv = &vectors[i]
			break
		}
	}
	if fv == nil {
		respondError(c, h.logger, contextutils.WrapErrorf(contextutils.ErrInsufficientData, "no attempts for student %q on topic %q", studentID, topic))
		return
	}

	label, err := h.mastery.ClassifyMastery(ctx, *fv)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := gin.H{
		"student_id": studentID,
		"topic":      topic,
		"mastery":    label,
	}
	if prediction, perr := h.mastery.PredictTopicMastery(ctx, *fv); perr == nil {
		resp["probability"] = prediction.Probability
	} else if !contextutils.IsError(perr, contextutils.ErrModelUnavailable) {
		respondError(c, h.logger, perr)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// recommendationFor loads a student's attempts and turns them into a
// recommendation.
func (h *AnalyticsHandler) recommendationFor(ctx context.Context, studentID string, topN int) (models.Recommendation, error) {
	records, err := h.attempts.LoadAttemptsByStudent(ctx, studentID)
	if err != nil {
		return models.Recommendation{}, err
	}
	vectors, err := h.analytics.AggregateFeatures(ctx, records)
	if err != nil {
		return models.Recommendation{}, err
	}
	return h.recommendation.RecommendTopics(ctx, studentID, vectors, topN)
}
