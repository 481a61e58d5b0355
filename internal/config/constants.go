package config

import "time"

// Timeout constants
const (
	DefaultHTTPTimeout    = 60 * time.Second
	GenAIRequestTimeout   = 2 * time.Minute
	ServerShutdownTimeout = 30 * time.Second
	WorkerShutdownTimeout = 30 * time.Second

	// Database timeouts
	DatabaseConnMaxLifetime = 5 * time.Minute

	// Worker pacing
	WorkerCheckInterval = 15 * time.Second
)

// Generative backend defaults
const (
	DefaultGenAIModel     = "gemini-2.5-flash"
	DefaultGenAIMaxTokens = 800
)

// Analytics defaults. The mastery band cutoffs (0.5 / 0.8) and the
// recommendation difficulty cutoffs (0.4 / 0.7) come from the calibrated
// values used in production; see AnalyticsConfig for overriding them.
const (
	DefaultClusterCount        = 3
	DefaultMinTopicSamples     = 2
	DefaultRecommendationTopN  = 3
	DefaultMasteryIntermediate = 0.5
	DefaultMasteryAdvanced     = 0.8
	DefaultMasteredThreshold   = 0.8
	DefaultDifficultyEasyBelow = 0.4
	DefaultDifficultyHardFrom  = 0.7
)

// Quiz generation defaults
const (
	DefaultExcerptMaxChars     = 120
	DefaultChunkMaxWords       = 50
	DefaultMaxConcurrentChunks = 4
	DefaultTopicQuizQuestions  = 5

	// MinFirstSentenceChars is the length below which a lone first sentence
	// is considered too short to quote on its own.
	MinFirstSentenceChars = 40
)

// Per-topic model training constants
const (
	// LogisticTrainingIterations bounds the gradient descent loop when
	// fitting a per-topic mastery model.
	LogisticTrainingIterations = 500
	// LogisticLearningRate is the gradient descent step size.
	LogisticLearningRate = 0.1

	// KMeansMaxIterations bounds the clustering loop.
	KMeansMaxIterations = 100
)
