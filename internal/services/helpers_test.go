package services

import (
	"learnpath/internal/config"
	"learnpath/internal/observability"
)

// newNopLogger returns a logger that discards everything; a nil telemetry
// config disables logging entirely.
func newNopLogger() *observability.Logger {
	return observability.NewLogger(nil)
}

// newTestAnalyticsConfig returns the default analytics tunables used across
// service tests.
func newTestAnalyticsConfig() *config.AnalyticsConfig {
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
