// Package di wires the application services together.
package di

import (
	"context"
	"database/sql"

	"learnpath/internal/config"
	"learnpath/internal/database"
	"learnpath/internal/observability"
	"learnpath/internal/services"
	contextutils "learnpath/internal/utils"
	"learnpath/internal/worker"
)

// Container owns the singletons of one running process.
type Container struct {
	Config *config.Config
	Logger *observability.Logger
	DB     *sql.DB

	AttemptStore  database.AttemptStoreInterface
	ArtifactStore services.ArtifactStore

	Analytics      services.AnalyticsServiceInterface
	Clusters       services.ClusterServiceInterface
	Mastery        services.MasteryServiceInterface
	Recommendation services.RecommendationServiceInterface
	LearningPath   services.LearningPathServiceInterface
	GenAI          services.GenAIServiceInterface
	Quiz           services.QuizServiceInterface

	Worker *worker.Worker
}

// NewContainer builds the full service graph. The database connection is
// optional: without a configured URL the container falls back to in-memory
// stores, which keeps the adm CLI and tests independent of Postgres.
func NewContainer(ctx context.Context, cfg *config.Config, logger *observability.Logger) (result0 *Container, err error) {
	c := &Container{Config: cfg, Logger: logger}

	if cfg.Database.URL != "" {
		dbManager := database.NewManager(logger)
		c.DB, err = dbManager.InitDB(cfg.Database)
		if err != nil {
			return nil, err
		}
		c.AttemptStore = database.NewAttemptStore(c.DB, logger)
		c.ArtifactStore = database.NewSQLArtifactStore(c.DB, logger)
	} else {
		logger.Warn(ctx, "No database configured, using in-memory stores")
		c.AttemptStore = newMemoryAttemptStore()
		c.ArtifactStore = services.NewMemoryArtifactStore()
	}

	c.Analytics = services.NewAnalyticsServiceWithLogger(logger)
	c.Clusters = services.NewClusterServiceWithLogger(&cfg.Analytics, logger)
	c.Mastery = services.NewMasteryServiceWithLogger(&cfg.Analytics, c.ArtifactStore, logger)
	c.Recommendation = services.NewRecommendationServiceWithLogger(&cfg.Analytics, logger)
	c.LearningPath = services.NewLearningPathServiceWithLogger(logger)
	c.GenAI = services.NewGenAIServiceWithLogger(&cfg.GenAI, logger)

	quiz, err := services.NewQuizServiceWithLogger(&cfg.Quiz, c.GenAI, logger)
	if err != nil {
		return nil, err
	}
	c.Quiz = quiz

	c.Worker = worker.NewWorker(c.AttemptStore, c.Analytics, c.Mastery, config.WorkerCheckInterval, logger)

	return c, nil
}

// Close releases the container's resources.
func (c *Container) Close() error {
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			return contextutils.WrapErrorf(contextutils.ErrDatabaseConnection, "failed to close database: %w", err)
		}
	}
	return nil
}
