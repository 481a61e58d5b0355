package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"learnpath/internal/models"
	"learnpath/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// LearningPathServiceInterface defines the learning path operations
type LearningPathServiceInterface interface {
	GeneratePath(ctx context.Context, rec models.Recommendation, pace models.Pace) ([]models.TopicPath, error)
}

// LearningPathService expands a recommendation into ordered study sequences.
type LearningPathService struct {
	logger *observability.Logger
}

// NewLearningPathServiceWithLogger creates a new learning path service
func NewLearningPathServiceWithLogger(logger *observability.Logger) *LearningPathService {
	return &LearningPathService{logger: logger}
}

// GeneratePath builds one sequence per recommended topic, in recommendation
// order. Each sequence is a revision step, the practice blocks, an
// assessment and an advance-or-repeat decision step, always in that order.
// The practice block count scales with how far the student is from full
// accuracy, multiplied by the pace repeat factor, and is never less than
// one. An empty recommendation yields an empty path.
func (s *LearningPathService) GeneratePath(ctx context.Context, rec models.Recommendation, pace models.Pace) (result0 []models.TopicPath, err error) {
	ctx, span := observability.TraceAnalyticsFunction(ctx, "generate_path",
		observability.AttributeStudentID(rec.StudentID),
		attribute.String("path.pace", string(pace)),
		attribute.Int("path.topics", len(rec.Recommendations)),
	)
	defer observability.FinishSpan(span, &err)

	paths := make([]models.TopicPath, 0, len(rec.Recommendations))
	for _, topic := range rec.Recommendations {
		paths = append(paths, buildTopicSequence(topic, pace))
	}

	s.logger.Debug(ctx, "Generated learning path", map[string]interface{}{
		"student_id": rec.StudentID,
		"topics":     len(paths),
		"pace":       string(pace),
	})

	return paths, nil
}

func buildTopicSequence(topic models.RecommendedTopic, pace models.Pace) models.TopicPath {
	blocks := practiceBlocks(topic.Accuracy, pace.RepeatFactor())
	// The seed varies the warm-up mix per topic: the first `seed` practice
	// blocks stay easy before the target difficulty kicks in.
	seed := topicSeed(topic.Topic)

	sequence := make([]models.LearningPathStep, 0, blocks+3)
	sequence = append(sequence, models.LearningPathStep{
		Step:       models.StepRevision,
		Topic:      topic.Topic,
		Details:    fmt.Sprintf("Read textbook / notes for %s", topic.Topic),
		Difficulty: models.DifficultyEasy,
	})
	for i := 0; i < blocks; i++ {
		difficulty := topic.RecommendedDifficulty
		if i < seed {
			difficulty = models.DifficultyEasy
		}
		sequence = append(sequence, models.LearningPathStep{
			Step:       models.StepPractice,
			Topic:      topic.Topic,
			Details:    fmt.Sprintf("Practice set %d", i+1),
			Difficulty: difficulty,
		})
	}
	sequence = append(sequence,
		models.LearningPathStep{
			Step:       models.StepAssessment,
			Topic:      topic.Topic,
			Details:    "Short quiz to test mastery",
			Difficulty: topic.RecommendedDifficulty,
		},
		models.LearningPathStep{
			Step:       models.StepAdvanceOrRepeat,
			Topic:      topic.Topic,
			Details:    "If assessment good -> advance, else repeat practice",
			Difficulty: topic.RecommendedDifficulty,
		},
	)

	return models.TopicPath{Topic: topic.Topic, Sequence: sequence}
}

// practiceBlocks scales the accuracy gap into whole practice sets. The floor
// of one guarantees even near-mastered topics get a practice step.
func practiceBlocks(accuracy float64, repeatFactor int) int {
	gap := 1 - accuracy
	if gap < 0 {
		gap = 0
	}
	blocks := int(math.Floor(gap*5)) * repeatFactor
	if blocks < 1 {
		blocks = 1
	}
	return blocks
}

// topicSeed maps a topic name onto a stable value in [0,3). FNV-1a is used
// deliberately: the seed must be reproducible across runs and processes.
func topicSeed(topic string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(topic))
	return int(h.Sum32() % 3)
}
