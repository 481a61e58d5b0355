package handlers

import (
	"net/http"

	"learnpath/internal/models"
	"learnpath/internal/observability"
	"learnpath/internal/services"
	contextutils "learnpath/internal/utils"

	"github.com/gin-gonic/gin"
)

// QuizHandler serves the quiz generation endpoints.
type QuizHandler struct {
	quiz   services.QuizServiceInterface
	logger *observability.Logger
}

// NewQuizHandler creates a new quiz handler
func NewQuizHandler(quiz services.QuizServiceInterface, logger *observability.Logger) *QuizHandler {
	return &QuizHandler{quiz: quiz, logger: logger}
}

type generateItemRequest struct {
	Text       string `json:"text" binding:"required"`
	Difficulty string `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
}

// GenerateItem produces one quiz item from a text chunk. Generation itself
// cannot fail; the outcome tag tells the caller how degraded the item is.
func (h *QuizHandler) GenerateItem(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "generate_item")
	var err error
	defer observability.FinishSpan(span, &err)

	var req generateItemRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid quiz payload: %w", err))
		return
	}

	difficulty := models.Difficulty(req.Difficulty)
	if req.Difficulty == "" {
		difficulty = models.DifficultyMedium
	}

	item, outcome := h.quiz.GenerateItem(ctx, req.Text, difficulty)
	c.JSON(http.StatusOK, gin.H{
		"item":    item,
		"outcome": outcome,
	})
}

type topicQuizRequest struct {
	Topic      string `json:"topic" binding:"required"`
	Difficulty string `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	NQuestions int    `json:"n_questions" binding:"omitempty,min=1,max=20"`
}

// TopicQuiz generates a whole quiz for a topic in one backend call.
func (h *QuizHandler) TopicQuiz(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "topic_quiz")
	var err error
	defer observability.FinishSpan(span, &err)

	var req topicQuizRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid topic quiz payload: %w", err))
		return
	}

	difficulty := models.Difficulty(req.Difficulty)
	if req.Difficulty == "" {
		difficulty = models.DifficultyMedium
	}

	quiz, err := h.quiz.GenerateTopicQuiz(ctx, req.Topic, difficulty, req.NQuestions)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

type processLessonRequest struct {
	Topic string `json:"topic" binding:"required"`
	Text  string `json:"text" binding:"required"`
}

// ProcessLesson turns one uploaded lesson text into a full quiz.
func (h *QuizHandler) ProcessLesson(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "process_lesson")
	var err error
	defer observability.FinishSpan(span, &err)

	var req processLessonRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid lesson payload: %w", err))
		return
	}

	quiz, err := h.quiz.ProcessLesson(ctx, req.Topic, req.Text)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}
