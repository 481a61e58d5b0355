package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"learnpath/internal/config"
	"learnpath/internal/models"
	"learnpath/internal/observability"
	contextutils "learnpath/internal/utils"

	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"
)

// QuizOutcome tags how a quiz item was produced: a clean structured
// response, a structured response that needed the options repaired, or a
// rejection that pushed the item down the fallback chain.
type QuizOutcome string

// Quiz generation outcomes
const (
	QuizOutcomeValid    QuizOutcome = "valid"
	QuizOutcomeRepaired QuizOutcome = "repaired"
	QuizOutcomeRejected QuizOutcome = "rejected"
)

const (
	defaultHint       = "Summarize the passage in one sentence."
	placeholderAnswer = "Answer TBD"

	// structuredAnswerSchema is the response contract the structured tier
	// validates against.
	structuredAnswerSchema = `{
		"type": "object",
		"required": ["answer", "options", "correct_answer"],
		"properties": {
			"answer": {"type": "string", "minLength": 1},
			"options": {"type": "array", "items": {"type": "string"}, "minItems": 4, "maxItems": 4},
			"correct_answer": {"type": "string"},
			"hint": {"type": "string"}
		}
	}`
)

// placeholderDistractors complete the option set when the backend only gave
// a free-text answer. The answer itself is always the first option.
var placeholderDistractors = [3]string{
	"None of the above",
	"Not enough information",
	"All of the above",
}

// QuizServiceInterface defines the quiz generation operations
type QuizServiceInterface interface {
	GenerateItem(ctx context.Context, chunk string, difficulty models.Difficulty) (models.QuizItem, QuizOutcome)
	ProcessLesson(ctx context.Context, topic, text string) (models.LessonQuiz, error)
	GenerateTopicQuiz(ctx context.Context, topic string, difficulty models.Difficulty, nQuestions int) (models.LessonQuiz, error)
}

// QuizService turns lesson text into validated multiple-choice quiz items.
// Generation degrades through three tiers: a structured JSON call, a
// plain-text call, and fixed placeholders. A caller always gets a complete
// item; backend failures never propagate out of GenerateItem.
type QuizService struct {
	cfg    *config.QuizConfig
	genai  GenAIServiceInterface
	schema *gojsonschema.Schema
	logger *observability.Logger
}

// NewQuizServiceWithLogger creates a new quiz service
func NewQuizServiceWithLogger(cfg *config.QuizConfig, genai GenAIServiceInterface, logger *observability.Logger) (*QuizService, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(structuredAnswerSchema))
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to compile quiz answer schema: %w", err)
	}
	return &QuizService{cfg: cfg, genai: genai, schema: schema, logger: logger}, nil
}

// GenerateItem produces exactly one quiz item for a text chunk. The question
// is built from the chunk's excerpt; the answer comes from the first
// generation tier that succeeds. The returned outcome reflects the
// structured tier: valid or repaired when it produced the item, rejected
// when a fallback tier had to.
func (s *QuizService) GenerateItem(ctx context.Context, chunk string, difficulty models.Difficulty) (models.QuizItem, QuizOutcome) {
	ctx, span := observability.TraceQuizgenFunction(ctx, "generate_item",
		observability.AttributeDifficulty(string(difficulty)),
	)
	var spanErr error
	defer observability.FinishSpan(span, &spanErr)

	excerpt := BuildExcerpt(chunk, s.cfg.ExcerptMaxChars)
	question := fmt.Sprintf("What is the main idea of the following passage: %q?", excerpt)

	item, outcome, err := s.structuredItem(ctx, question, difficulty)
	if err == nil {
		span.SetAttributes(attribute.String("call.result", string(outcome)))
		return item, outcome
	}
	s.logger.Debug(ctx, "Structured quiz tier failed, falling back", map[string]interface{}{
		"error": err.Error(),
	})

	item, err = s.plainTextItem(ctx, question)
	if err == nil {
		span.SetAttributes(attribute.String("call.result", "rejected_plain_text"))
		return item, QuizOutcomeRejected
	}
	s.logger.Debug(ctx, "Plain-text quiz tier failed, using placeholders", map[string]interface{}{
		"error": err.Error(),
	})

	span.SetAttributes(attribute.String("call.result", "rejected_placeholder"))
	return placeholderItem(question), QuizOutcomeRejected
}

// structuredItem asks the backend for the full answer object and validates
// it. A correct_answer missing from the options is repaired by overwriting
// the first option; everything else that deviates from the schema rejects
// the response. Transient request failures get a single retry.
func (s *QuizService) structuredItem(ctx context.Context, question string, difficulty models.Difficulty) (models.QuizItem, QuizOutcome, error) {
	prompt := fmt.Sprintf(
		"Return ONLY a valid JSON object with four keys: 'answer', 'options', 'correct_answer', 'hint'. "+
			"'answer' is a concise one-sentence answer to the question. "+
			"'options' is a list of exactly 4 answer choices including the correct one. "+
			"'correct_answer' must be one of the options. "+
			"'hint' is a short one-sentence hint. "+
			"Target difficulty: %s.\n\nQuestion: %s",
		difficulty, question,
	)

	raw, err := s.genai.GenerateJSON(ctx, prompt)
	if err != nil && contextutils.IsError(err, contextutils.ErrAIRequestFailed) {
		raw, err = s.genai.GenerateJSON(ctx, prompt)
	}
	if err != nil {
		return models.QuizItem{}, QuizOutcomeRejected, err
	}

	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return models.QuizItem{}, QuizOutcomeRejected, contextutils.WrapErrorf(contextutils.ErrAIResponseInvalid, "schema validation failed: %w", err)
	}
	if !result.Valid() {
		return models.QuizItem{}, QuizOutcomeRejected, contextutils.WrapErrorf(contextutils.ErrAIResponseInvalid, "structured answer violates schema: %v", result.Errors())
	}

	var sa models.StructuredAnswer
	if err := json.Unmarshal(raw, &sa); err != nil {
		return models.QuizItem{}, QuizOutcomeRejected, contextutils.WrapErrorf(contextutils.ErrAIResponseInvalid, "failed to decode structured answer: %w", err)
	}

	sa.Answer = strings.TrimSpace(sa.Answer)
	sa.Hint = strings.TrimSpace(sa.Hint)
	if sa.Answer == "" {
		return models.QuizItem{}, QuizOutcomeRejected, contextutils.WrapError(contextutils.ErrAIResponseInvalid, "structured answer is empty after trimming")
	}

	outcome := QuizOutcomeValid
	if !containsString(sa.Options, sa.CorrectAnswer) {
		// Documented repair policy: keep the model's correct_answer and
		// sacrifice the first option.
		sa.Options[0] = sa.CorrectAnswer
		outcome = QuizOutcomeRepaired
	}

	hint := sa.Hint
	if hint == "" {
		hint = defaultHint
	}

	return models.QuizItem{
		Question:      question,
		Answer:        sa.Answer,
		Options:       sa.Options,
		CorrectAnswer: sa.CorrectAnswer,
		Hint:          hint,
	}, outcome, nil
}

// plainTextItem asks for a free-text answer and wraps it in the fixed
// placeholder option set.
func (s *QuizService) plainTextItem(ctx context.Context, question string) (models.QuizItem, error) {
	text, err := s.genai.GenerateText(ctx, question)
	if err != nil {
		return models.QuizItem{}, err
	}
	answer := strings.TrimSpace(text)
	if answer == "" {
		return models.QuizItem{}, contextutils.WrapError(contextutils.ErrAIResponseInvalid, "plain-text answer is empty")
	}

	return models.QuizItem{
		Question:      question,
		Answer:        answer,
		Options:       placeholderOptions(answer),
		CorrectAnswer: answer,
		Hint:          defaultHint,
	}, nil
}

// placeholderItem is the terminal tier: a fully-formed item with fixed
// content, used when the backend is unreachable or unconfigured.
func placeholderItem(question string) models.QuizItem {
	return models.QuizItem{
		Question:      question,
		Answer:        placeholderAnswer,
		Options:       placeholderOptions(placeholderAnswer),
		CorrectAnswer: placeholderAnswer,
		Hint:          defaultHint,
	}
}

func placeholderOptions(answer string) []string {
	return []string{answer, placeholderDistractors[0], placeholderDistractors[1], placeholderDistractors[2]}
}

// ProcessLesson runs the full content pipeline for one uploaded lesson:
// clean the text, derive a difficulty from its length, chunk it, and
// generate one quiz item per chunk. Chunks fan out concurrently up to the
// configured bound; output order matches chunk order. Only empty input is
// an error — generation itself always completes.
func (s *QuizService) ProcessLesson(ctx context.Context, topic, text string) (result0 models.LessonQuiz, err error) {
	ctx, span := observability.TraceQuizgenFunction(ctx, "process_lesson",
		observability.AttributeTopic(topic),
	)
	defer observability.FinishSpan(span, &err)

	cleaned := CleanText(text)
	if cleaned == "" {
		return models.LessonQuiz{}, contextutils.WrapError(contextutils.ErrInvalidInput, "lesson text is empty")
	}

	difficulty := lessonDifficulty(cleaned)
	chunks := ChunkText(cleaned, s.cfg.ChunkMaxWords)
	span.SetAttributes(
		observability.AttributeChunkCount(len(chunks)),
		observability.AttributeDifficulty(string(difficulty)),
	)

	items := make([]models.QuizItem, len(chunks))
	outcomes := make([]QuizOutcome, len(chunks))

	bound := s.cfg.MaxConcurrentChunks
	if bound < 1 {
		bound = config.DefaultMaxConcurrentChunks
	}
	sem := make(chan struct{}, bound)
	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			items[i], outcomes[i] = s.GenerateItem(ctx, chunk, difficulty)
		}(i, chunk)
	}
	wg.Wait()

	degraded := 0
	for _, o := range outcomes {
		if o == QuizOutcomeRejected {
			degraded++
		}
	}
	s.logger.Info(ctx, "Processed lesson into quiz items", map[string]interface{}{
		"topic":      topic,
		"difficulty": string(difficulty),
		"chunks":     len(chunks),
		"degraded":   degraded,
	})

	return models.LessonQuiz{Topic: topic, Difficulty: difficulty, Items: items}, nil
}

// topicQuizItem is the per-item shape of a topic quiz response.
type topicQuizItem struct {
	Question   string   `json:"question"`
	Choices    []string `json:"choices,omitempty"`
	Answer     string   `json:"answer"`
	Difficulty string   `json:"difficulty,omitempty"`
}

type topicQuizResponse struct {
	Quiz []topicQuizItem `json:"quiz"`
}

// buildTopicQuizPrompt asks the backend for a whole quiz on a topic as one
// JSON object with a top-level quiz array.
func buildTopicQuizPrompt(topic string, difficulty models.Difficulty, nQuestions int) string {
	return fmt.Sprintf(
		"You are a helpful quiz writer. Return ONLY valid JSON.\n"+
			"Create a quiz for the specified topic and difficulty. Each item must have 'question', 'answer', and 'difficulty'. "+
			"Include 'choices' (4 options) for multiple-choice questions when appropriate. Keep each answer concise.\n\n"+
			"Topic: %s\nDifficulty: %s\nNumber of questions: %d\n\n"+
			"Return exactly one top-level JSON object with a 'quiz' array.",
		topic, difficulty, nQuestions,
	)
}

// GenerateTopicQuiz asks the backend for a whole quiz on a topic in one call.
// Items missing a question or answer are dropped; the result is truncated to
// the requested count. Unlike GenerateItem there is no fallback chain here: a
// backend failure or a malformed quiz array is an error.
func (s *QuizService) GenerateTopicQuiz(ctx context.Context, topic string, difficulty models.Difficulty, nQuestions int) (result0 models.LessonQuiz, err error) {
	ctx, span := observability.TraceQuizgenFunction(ctx, "generate_topic_quiz",
		observability.AttributeTopic(topic),
		observability.AttributeDifficulty(string(difficulty)),
	)
	defer observability.FinishSpan(span, &err)

	if nQuestions < 1 {
		nQuestions = config.DefaultTopicQuizQuestions
	}

	prompt := buildTopicQuizPrompt(topic, difficulty, nQuestions)
	raw, err := s.genai.GenerateJSON(ctx, prompt)
	if err != nil && contextutils.IsError(err, contextutils.ErrAIRequestFailed) {
		raw, err = s.genai.GenerateJSON(ctx, prompt)
	}
	if err != nil {
		return models.LessonQuiz{}, err
	}

	var resp topicQuizResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return models.LessonQuiz{}, contextutils.WrapErrorf(contextutils.ErrAIResponseInvalid, "failed to decode topic quiz: %w", err)
	}
	if resp.Quiz == nil {
		return models.LessonQuiz{}, contextutils.WrapError(contextutils.ErrAIResponseInvalid, "topic quiz response has no quiz array")
	}

	items := make([]models.QuizItem, 0, len(resp.Quiz))
	for _, qi := range resp.Quiz {
		question := strings.TrimSpace(qi.Question)
		answer := strings.TrimSpace(qi.Answer)
		if question == "" || answer == "" {
			continue
		}
		options := qi.Choices
		if len(options) != 4 || !containsString(options, answer) {
			options = placeholderOptions(answer)
		}
		items = append(items, models.QuizItem{
			Question:      question,
			Answer:        answer,
			Options:       options,
			CorrectAnswer: answer,
			Hint:          defaultHint,
		})
		if len(items) == nQuestions {
			break
		}
	}

	s.logger.Info(ctx, "Generated topic quiz", map[string]interface{}{
		"topic":     topic,
		"requested": nQuestions,
		"items":     len(items),
	})

	return models.LessonQuiz{Topic: topic, Difficulty: difficulty, Items: items}, nil
}

// lessonDifficulty maps lesson length to a difficulty: short notes read
// easy, long expositions read hard.
func lessonDifficulty(cleaned string) models.Difficulty {
	words := len(strings.Fields(cleaned))
	switch {
	case words < 100:
		return models.DifficultyEasy
	case words < 400:
		return models.DifficultyMedium
	default:
		return models.DifficultyHard
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
