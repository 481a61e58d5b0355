// Package models defines data structures used throughout the learning platform.
package models

import (
	"time"
)

// Difficulty represents a quiz difficulty level
type Difficulty string

// Difficulty levels
const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether the difficulty is one of the known levels
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Pace controls how many practice blocks a learning path repeats
type Pace string

// Pace settings
const (
	PaceSlow   Pace = "slow"
	PaceNormal Pace = "normal"
	PaceFast   Pace = "fast"
)

// RepeatFactor maps a pace to its practice repeat factor. Unknown paces
// behave like normal.
func (p Pace) RepeatFactor() int {
	switch p {
	case PaceSlow:
		return 3
	case PaceFast:
		return 1
	default:
		return 2
	}
}

// MasteryLabel is the three-tier mastery classification of a student on a topic
type MasteryLabel string

// Mastery labels
const (
	MasteryBeginner     MasteryLabel = "Beginner"
	MasteryIntermediate MasteryLabel = "Intermediate"
	MasteryAdvanced     MasteryLabel = "Advanced"
)

// AttemptRecord is a single quiz attempt as ingested from the persistence
// layer. Optional numeric fields are pointers so that upstream gaps survive
// until normalization; records are immutable once ingested.
type AttemptRecord struct {
	StudentID        string     `json:"student_id" yaml:"student_id"`
	Topic            string     `json:"topic" yaml:"topic"`
	Difficulty       Difficulty `json:"difficulty" yaml:"difficulty"`
	CorrectAnswers   *int       `json:"correct_answers" yaml:"correct_answers"`
	TotalQuestions   *int       `json:"total_questions" yaml:"total_questions"`
	TimeTakenSeconds *float64   `json:"time_taken_seconds" yaml:"time_taken_seconds"`
	AttemptedAt      time.Time  `json:"attempt_timestamp" yaml:"attempt_timestamp"`
}

// FeatureVector holds the per-(student, topic) aggregate statistics derived
// from attempt records. It is recomputed on every aggregation pass and has no
// identity beyond its key.
type FeatureVector struct {
	StudentID        string  `json:"student_id" yaml:"student_id"`
	Topic            string  `json:"topic" yaml:"topic"`
	AccuracyMean     float64 `json:"accuracy_mean" yaml:"accuracy_mean"`
	AccuracyStd      float64 `json:"accuracy_std" yaml:"accuracy_std"`
	AvgTimeMean      float64 `json:"avg_time_mean" yaml:"avg_time_mean"`
	AttemptsCount    int     `json:"attempts_count" yaml:"attempts_count"`
	ImprovementSlope float64 `json:"improvement_slope" yaml:"improvement_slope"`
	SuccessEasy      float64 `json:"success_easy" yaml:"success_easy"`
	SuccessMedium    float64 `json:"success_medium" yaml:"success_medium"`
	SuccessHard      float64 `json:"success_hard" yaml:"success_hard"`
}

// Features returns the 7-dimensional numeric representation used by the
// mastery classifiers.
func (fv *FeatureVector) Features() []float64 {
	return []float64{
		fv.AccuracyMean,
		fv.AvgTimeMean,
		float64(fv.AttemptsCount),
		fv.ImprovementSlope,
		fv.SuccessEasy,
		fv.SuccessMedium,
		fv.SuccessHard,
	}
}

// BehaviorVector returns the 3-dimensional projection used for clustering:
// (accuracy_mean, avg_time_mean, improvement_slope).
func (fv *FeatureVector) BehaviorVector() []float64 {
	return []float64{fv.AccuracyMean, fv.AvgTimeMean, fv.ImprovementSlope}
}

// ClusterAssignment attaches a run-local cluster id to a feature vector key.
// Cluster ids carry no semantic ordering across runs unless the same seed and
// data are used.
type ClusterAssignment struct {
	StudentID string `json:"student_id" yaml:"student_id"`
	Topic     string `json:"topic" yaml:"topic"`
	Cluster   int    `json:"cluster" yaml:"cluster"`
}

// ClusterSummary describes one cluster of the behavior space.
type ClusterSummary struct {
	Cluster  int       `json:"cluster" yaml:"cluster"`
	Size     int       `json:"size" yaml:"size"`
	Centroid []float64 `json:"centroid" yaml:"centroid"`
}

// RecommendedTopic is a single entry of a recommendation, ordered weakest
// first by the engine.
type RecommendedTopic struct {
	Topic                 string     `json:"topic" yaml:"topic"`
	Accuracy              float64    `json:"accuracy" yaml:"accuracy"`
	RecommendedDifficulty Difficulty `json:"recommended_difficulty" yaml:"recommended_difficulty"`
}

// Recommendation is the weakness-ranked topic list for one student. Reason is
// "no_data" when the student has no feature vectors; that case is not an error.
type Recommendation struct {
	StudentID       string             `json:"student_id" yaml:"student_id"`
	Recommendations []RecommendedTopic `json:"recommendations" yaml:"recommendations"`
	Reason          string             `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// StepKind is the kind of a learning path step
type StepKind string

// Learning path step kinds, in the order they appear within a topic sequence
const (
	StepRevision        StepKind = "revision"
	StepPractice        StepKind = "practice"
	StepAssessment      StepKind = "assessment"
	StepAdvanceOrRepeat StepKind = "advance_or_repeat"
)

// LearningPathStep is one step of a per-topic learning sequence. A sequence
// always starts with a revision step and ends with an advance_or_repeat step.
type LearningPathStep struct {
	Step       StepKind   `json:"step" yaml:"step"`
	Topic      string     `json:"topic" yaml:"topic"`
	Details    string     `json:"details" yaml:"details"`
	Difficulty Difficulty `json:"difficulty" yaml:"difficulty"`
}

// TopicPath is the ordered learning sequence for a single recommended topic.
type TopicPath struct {
	Topic    string             `json:"topic" yaml:"topic"`
	Sequence []LearningPathStep `json:"sequence" yaml:"sequence"`
}

// StructuredAnswer is the JSON contract the generative backend is asked to
// fulfil for a quiz question.
type StructuredAnswer struct {
	Answer        string   `json:"answer" yaml:"answer"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer string   `json:"correct_answer" yaml:"correct_answer"`
	Hint          string   `json:"hint,omitempty" yaml:"hint,omitempty"`
}

// QuizItem is the externally delivered, fully validated quiz unit. It is
// always well-formed, even when the generative backend failed entirely.
type QuizItem struct {
	Question      string   `json:"question" yaml:"question"`
	Answer        string   `json:"answer" yaml:"answer"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer string   `json:"correct_answer" yaml:"correct_answer"`
	Hint          string   `json:"hint,omitempty" yaml:"hint,omitempty"`
}

// LessonQuiz is the result of processing one uploaded lesson text.
type LessonQuiz struct {
	Topic      string     `json:"topic" yaml:"topic"`
	Difficulty Difficulty `json:"difficulty" yaml:"difficulty"`
	Items      []QuizItem `json:"quiz" yaml:"quiz"`
}

// MasteryPrediction is a per-topic mastery probability for a student.
type MasteryPrediction struct {
	StudentID   string  `json:"student_id" yaml:"student_id"`
	Topic       string  `json:"topic" yaml:"topic"`
	Probability float64 `json:"probability" yaml:"probability"`
}
