package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"learnpath/internal/models"
	"learnpath/internal/services"
	contextutils "learnpath/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQuizService returns canned items.
type fakeQuizService struct {
	lessonErr error
}

func (f *fakeQuizService) GenerateItem(_ context.Context, chunk string, difficulty models.Difficulty) (models.QuizItem, services.QuizOutcome) {
	return models.QuizItem{
		Question:      "What is the main idea of the following passage: \"" + chunk + "\"?",
		Answer:        "A canned answer.",
		Options:       []string{"A canned answer.", "B", "C", "D"},
		CorrectAnswer: "A canned answer.",
		Hint:          "A hint.",
	}, services.QuizOutcomeValid
}

func (f *fakeQuizService) ProcessLesson(_ context.Context, topic, text string) (models.LessonQuiz, error) {
	if f.lessonErr != nil {
		return models.LessonQuiz{}, f.lessonErr
	}
	item, _ := f.GenerateItem(context.Background(), text, models.DifficultyMedium)
	return models.LessonQuiz{Topic: topic, Difficulty: models.DifficultyMedium, Items: []models.QuizItem{item}}, nil
}

func (f *fakeQuizService) GenerateTopicQuiz(_ context.Context, topic string, difficulty models.Difficulty, nQuestions int) (models.LessonQuiz, error) {
	if f.lessonErr != nil {
		return models.LessonQuiz{}, f.lessonErr
	}
	items := make([]models.QuizItem, nQuestions)
	for i := range items {
		items[i], _ = f.GenerateItem(context.Background(), topic, difficulty)
	}
	return models.LessonQuiz{Topic: topic, Difficulty: difficulty, Items: items}, nil
}

func TestGenerateItemEndpoint(t *testing.T) {
	router := newTestRouter(&fakeAttemptStore{})

	t.Run("returns item and outcome", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/quiz/generate",
			`{"text": "Photosynthesis converts light into chemical energy.", "difficulty": "easy"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Item    models.QuizItem      `json:"item"`
			Outcome services.QuizOutcome `json:"outcome"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, services.QuizOutcomeValid, resp.Outcome)
		assert.Contains(t, resp.Item.Options, resp.Item.CorrectAnswer)
	})

	t.Run("rejects empty text", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/quiz/generate", `{"text": ""}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects unknown difficulty", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/quiz/generate",
			`{"text": "some text", "difficulty": "impossible"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTopicQuizEndpoint(t *testing.T) {
	router := newTestRouter(&fakeAttemptStore{})

	t.Run("returns the requested number of items", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/quiz/topic",
			`{"topic": "algebra", "difficulty": "easy", "n_questions": 3}`)
		require.Equal(t, http.StatusOK, w.Code)

		var quiz models.LessonQuiz
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &quiz))
		assert.Equal(t, "algebra", quiz.Topic)
		assert.Len(t, quiz.Items, 3)
	})

	t.Run("rejects a missing topic", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/v1/quiz/topic", `{"n_questions": 3}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestProcessLessonEndpoint(t *testing.T) {
	t.Run("returns a lesson quiz", func(t *testing.T) {
		router := newTestRouter(&fakeAttemptStore{})
		w := doJSON(t, router, http.MethodPost, "/v1/lessons/process",
			`{"topic": "biology", "text": "Cells divide by mitosis."}`)
		require.Equal(t, http.StatusOK, w.Code)

		var quiz models.LessonQuiz
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &quiz))
		assert.Equal(t, "biology", quiz.Topic)
		require.Len(t, quiz.Items, 1)
	})

	t.Run("rejects a missing topic", func(t *testing.T) {
		router := newTestRouter(&fakeAttemptStore{})
		w := doJSON(t, router, http.MethodPost, "/v1/lessons/process", `{"text": "some text"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("maps invalid input errors to 400", func(t *testing.T) {
		logger := newTestRouterLogger()
		handler := NewQuizHandler(&fakeQuizService{
			lessonErr: contextutils.WrapError(contextutils.ErrInvalidInput, "lesson text is empty"),
		}, logger)

		router := newBareRouter()
		router.POST("/v1/lessons/process", handler.ProcessLesson)

		w := doJSON(t, router, http.MethodPost, "/v1/lessons/process",
			`{"topic": "biology", "text": "   "}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
