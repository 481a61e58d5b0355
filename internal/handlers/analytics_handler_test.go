package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"learnpath/internal/config"
	"learnpath/internal/models"
	"learnpath/internal/observability"
	"learnpath/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAttemptStore serves attempts from memory.
type fakeAttemptStore struct {
	records []models.AttemptRecord
	saveErr error
}

func (f *fakeAttemptStore) SaveAttempt(_ context.Context, record models.AttemptRecord) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakeAttemptStore) LoadAttempts(_ context.Context) ([]models.AttemptRecord, error) {
	return f.records, nil
}

func (f *fakeAttemptStore) LoadAttemptsByStudent(_ context.Context, studentID string) ([]models.AttemptRecord, error) {
	var out []models.AttemptRecord
	for _, r := range f.records {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func testAnalyticsConfig() *config.AnalyticsConfig {
	return &config.AnalyticsConfig{
		ClusterCount:        config.DefaultClusterCount,
		MinTopicSamples:     config.DefaultMinTopicSamples,
		TopN:                config.DefaultRecommendationTopN,
		MasteryIntermediate: config.DefaultMasteryIntermediate,
		MasteryAdvanced:     config.DefaultMasteryAdvanced,
		MasteredThreshold:   config.DefaultMasteredThreshold,
		DifficultyEasyBelow: config.DefaultDifficultyEasyBelow,
		DifficultyHardFrom:  config.DefaultDifficultyHardFrom,
	}
}

func seedAttempts(store *fakeAttemptStore) {
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	add := func(student, topic string, correct, total int) {
		c, tq, taken := correct, total, 90.0
		store.records = append(store.records, models.AttemptRecord{
			StudentID:        student,
			Topic:            topic,
			Difficulty:       models.DifficultyMedium,
			CorrectAnswers:   &c,
			TotalQuestions:   &tq,
			TimeTakenSeconds: &taken,
			AttemptedAt:      base.Add(time.Duration(len(store.records)) * time.Minute),
		})
	}
	add("s1", "algebra", 9, 10)
	add("s1", "geometry", 3, 10)
	add("s1", "calculus", 6, 10)
	add("s2", "algebra", 5, 10)
}

func newTestRouter(store *fakeAttemptStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := observability.NewLogger(nil)

	analyticsCfg := testAnalyticsConfig()
	analytics := services.NewAnalyticsServiceWithLogger(logger)
	clusters := services.NewClusterServiceWithLogger(analyticsCfg, logger)
	mastery := services.NewMasteryServiceWithLogger(analyticsCfg, services.NewMemoryArtifactStore(), logger)
	recommendation := services.NewRecommendationServiceWithLogger(analyticsCfg, logger)
	learningPath := services.NewLearningPathServiceWithLogger(logger)

	analyticsHandler := NewAnalyticsHandler(store, analytics, clusters, mastery, recommendation, learningPath, logger)
	quizHandler := NewQuizHandler(&fakeQuizService{}, logger)

	router := gin.New()
	router.GET("/v1/health", healthHandler)
	router.POST("/v1/attempts", analyticsHandler.RecordAttempt)
	router.POST("/v1/analytics/recommendations", analyticsHandler.Recommendations)
	router.POST("/v1/analytics/learning-path", analyticsHandler.LearningPath)
	router.POST("/v1/analytics/clusters", analyticsHandler.Clusters)
	router.GET("/v1/analytics/mastery", analyticsHandler.Mastery)
	router.POST("/v1/quiz/generate", quizHandler.GenerateItem)
	router.POST("/v1/quiz/topic", quizHandler.TopicQuiz)
	router.POST("/v1/lessons/process", quizHandler.ProcessLesson)
	return router
}

func newTestRouterLogger() *observability.Logger {
	return observability.NewLogger(nil)
}

func newBareRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(&fakeAttemptStore{})
	w := doJSON(t, router, http.MethodGet, "/v1/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecordAttemptEndpoint(t *testing.T) {
	t.Run("accepts a valid attempt", func(t *testing.T) {
		store := &fakeAttemptStore{}
		router := newTestRouter(store)

		w := doJSON(t, router, http.MethodPost, "/v1/attempts",
			`{"student_id": "s1", "topic": "algebra", "difficulty": "easy", "correct_answers": 4, "total_questions": 5}`)
		assert.Equal(t, http.StatusCreated, w.Code)
		require.Len(t, store.records, 1)
		assert.Equal(t, "s1", store.records[0].StudentID)
	})

	t.Run("rejects a missing student_id", func(t *testing.T) {
		router := newTestRouter(&fakeAttemptStore{})
		w := doJSON(t, router, http.MethodPost, "/v1/attempts", `{"topic": "algebra"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects an unknown difficulty", func(t *testing.T) {
		router := newTestRouter(&fakeAttemptStore{})
		w := doJSON(t, router, http.MethodPost, "/v1/attempts",
			`{"student_id": "s1", "topic": "algebra", "difficulty": "brutal"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRecommendationsEndpoint(t *testing.T) {
	t.Run("returns weakest topics first", func(t *testing.T) {
		store := &fakeAttemptStore{}
		seedAttempts(store)
		router := newTestRouter(store)

		w := doJSON(t, router, http.MethodPost, "/v1/analytics/recommendations",
			`{"student_id": "s1", "top_n": 2}`)
		require.Equal(t, http.StatusOK, w.Code)

		var rec models.Recommendation
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
		require.Len(t, rec.Recommendations, 2)
		assert.Equal(t, "geometry", rec.Recommendations[0].Topic)
		assert.Equal(t, "calculus", rec.Recommendations[1].Topic)
	})

	t.Run("unknown student gets no_data", func(t *testing.T) {
		router := newTestRouter(&fakeAttemptStore{})
		w := doJSON(t, router, http.MethodPost, "/v1/analytics/recommendations",
			`{"student_id": "ghost"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var rec models.Recommendation
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
		assert.Equal(t, "no_data", rec.Reason)
		assert.Empty(t, rec.Recommendations)
	})
}

func TestLearningPathEndpoint(t *testing.T) {
	store := &fakeAttemptStore{}
	seedAttempts(store)
	router := newTestRouter(store)

	t.Run("returns sequences per topic", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/analytics/learning-path",
			`{"student_id": "s1", "pace": "fast", "top_n": 2}`)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Pace string             `json:"pace"`
			Path []models.TopicPath `json:"path"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "fast", resp.Pace)
		require.Len(t, resp.Path, 2)
		for _, p := range resp.Path {
			assert.Equal(t, models.StepRevision, p.Sequence[0].Step)
			assert.Equal(t, models.StepAdvanceOrRepeat, p.Sequence[len(p.Sequence)-1].Step)
		}
	})

	t.Run("rejects an unknown pace", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/analytics/learning-path",
			`{"student_id": "s1", "pace": "turbo"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestClustersEndpoint(t *testing.T) {
	store := &fakeAttemptStore{}
	seedAttempts(store)
	router := newTestRouter(store)

	w := doJSON(t, router, http.MethodPost, "/v1/analytics/clusters", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Assignments []models.ClusterAssignment `json:"assignments"`
		Clusters    []models.ClusterSummary    `json:"clusters"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Assignments, 4)
	assert.NotEmpty(t, resp.Clusters)
}

func TestMasteryEndpoint(t *testing.T) {
	store := &fakeAttemptStore{}
	seedAttempts(store)
	router := newTestRouter(store)

	t.Run("missing query parameters", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/v1/analytics/mastery", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("untrained model is unavailable", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/v1/analytics/mastery?student_id=s1&topic=algebra", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("no attempts is insufficient data", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/v1/analytics/mastery?student_id=s1&topic=topology", "")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}
