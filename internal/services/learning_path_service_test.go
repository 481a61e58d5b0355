package services

import (
	"context"
	"testing"

	"learnpath/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePath(t *testing.T) {
	svc := NewLearningPathServiceWithLogger(newNopLogger())
	ctx := context.Background()

	rec := models.Recommendation{
		StudentID: "s1",
		Recommendations: []models.RecommendedTopic{
			{Topic: "geometry", Accuracy: 0.3, RecommendedDifficulty: models.DifficultyMedium},
			{Topic: "calculus", Accuracy: 0.55, RecommendedDifficulty: models.DifficultyHard},
		},
	}

	t.Run("sequence order is fixed", func(t *testing.T) {
		paths, err := svc.GeneratePath(ctx, rec, models.PaceNormal)
		require.NoError(t, err)
		require.Len(t, paths, 2)

		for _, p := range paths {
			seq := p.Sequence
			require.GreaterOrEqual(t, len(seq), 4)
			assert.Equal(t, models.StepRevision, seq[0].Step)
			for _, step := range seq[1 : len(seq)-2] {
				assert.Equal(t, models.StepPractice, step.Step)
			}
			assert.Equal(t, models.StepAssessment, seq[len(seq)-2].Step)
			assert.Equal(t, models.StepAdvanceOrRepeat, seq[len(seq)-1].Step)
			for _, step := range seq {
				assert.Equal(t, p.Topic, step.Topic)
				assert.NotEmpty(t, step.Details)
			}
		}
	})

	t.Run("normal pace at accuracy 0.45 gives seven steps", func(t *testing.T) {
		one := models.Recommendation{
			StudentID: "s1",
			Recommendations: []models.RecommendedTopic{
				{Topic: "algebra", Accuracy: 0.45, RecommendedDifficulty: models.DifficultyEasy},
			},
		}
		paths, err := svc.GeneratePath(ctx, one, models.PaceNormal)
		require.NoError(t, err)
		require.Len(t, paths, 1)
		// 1 revision + max(1, floor(0.55*5)*2)=4 practice + assessment + advance.
		assert.Len(t, paths[0].Sequence, 7)
	})

	t.Run("practice blocks scale with accuracy gap and pace", func(t *testing.T) {
		assert.Equal(t, 3, practiceBlocks(0.3, 1))
		assert.Equal(t, 6, practiceBlocks(0.3, 2))
		assert.Equal(t, 9, practiceBlocks(0.3, 3))
		// Near-mastered topics still get at least one block.
		assert.Equal(t, 1, practiceBlocks(0.95, 2))
		// Accuracy above one does not go negative.
		assert.Equal(t, 1, practiceBlocks(1.2, 3))
	})

	t.Run("revision is always easy, closing steps use the target difficulty", func(t *testing.T) {
		paths, err := svc.GeneratePath(ctx, rec, models.PaceNormal)
		require.NoError(t, err)

		for i, p := range paths {
			target := rec.Recommendations[i].RecommendedDifficulty
			seq := p.Sequence
			assert.Equal(t, models.DifficultyEasy, seq[0].Difficulty)
			assert.Equal(t, target, seq[len(seq)-2].Difficulty)
			assert.Equal(t, target, seq[len(seq)-1].Difficulty)
		}
	})

	t.Run("early practice blocks below the topic seed stay easy", func(t *testing.T) {
		one := models.Recommendation{
			StudentID: "s1",
			Recommendations: []models.RecommendedTopic{
				{Topic: "geometry", Accuracy: 0.1, RecommendedDifficulty: models.DifficultyHard},
			},
		}
		paths, err := svc.GeneratePath(ctx, one, models.PaceNormal)
		require.NoError(t, err)

		seed := topicSeed("geometry")
		practice := paths[0].Sequence[1 : len(paths[0].Sequence)-2]
		for i, step := range practice {
			if i < seed {
				assert.Equal(t, models.DifficultyEasy, step.Difficulty)
			} else {
				assert.Equal(t, models.DifficultyHard, step.Difficulty)
			}
		}
	})

	t.Run("pace changes sequence length", func(t *testing.T) {
		slow, err := svc.GeneratePath(ctx, rec, models.PaceSlow)
		require.NoError(t, err)
		fast, err := svc.GeneratePath(ctx, rec, models.PaceFast)
		require.NoError(t, err)
		assert.Greater(t, len(slow[0].Sequence), len(fast[0].Sequence))
	})

	t.Run("deterministic across runs", func(t *testing.T) {
		a, err := svc.GeneratePath(ctx, rec, models.PaceNormal)
		require.NoError(t, err)
		b, err := svc.GeneratePath(ctx, rec, models.PaceNormal)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("empty recommendation yields empty path", func(t *testing.T) {
		paths, err := svc.GeneratePath(ctx, models.Recommendation{StudentID: "s1"}, models.PaceNormal)
		require.NoError(t, err)
		assert.Empty(t, paths)
	})
}

func TestTopicSeed(t *testing.T) {
	v := topicSeed("algebra")
	assert.GreaterOrEqual(t, v, 0)
	assert.Less(t, v, 3)
	assert.Equal(t, v, topicSeed("algebra"))
}
