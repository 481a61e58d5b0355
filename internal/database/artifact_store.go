package database

import (
	"context"
	"database/sql"
	"errors"

	"learnpath/internal/observability"
	contextutils "learnpath/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// SQLArtifactStore persists model artifacts in the model_artifacts table.
// It satisfies services.ArtifactStore; writes are last-writer-wins upserts,
// which matches how infrequently training and inference collide on a key.
type SQLArtifactStore struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewSQLArtifactStore creates a new database-backed artifact store
func NewSQLArtifactStore(db *sql.DB, logger *observability.Logger) *SQLArtifactStore {
	return &SQLArtifactStore{db: db, logger: logger}
}

// Put upserts the artifact stored under key.
func (s *SQLArtifactStore) Put(ctx context.Context, key string, data []byte) (err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "put_artifact",
		attribute.String("artifact.key", key),
		attribute.Int("artifact.size", len(data)),
	)
	defer observability.FinishSpan(span, &err)

	if key == "" {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "artifact key must not be empty")
	}

	query := `
		INSERT INTO model_artifacts (key, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`
	if _, err = s.db.ExecContext(ctx, query, key, data); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to store artifact %q: %w", key, err)
	}
	return nil
}

// Get returns the artifact stored under key.
func (s *SQLArtifactStore) Get(ctx context.Context, key string) (result0 []byte, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "get_artifact",
		attribute.String("artifact.key", key),
	)
	defer observability.FinishSpan(span, &err)

	var data []byte
	err = s.db.QueryRowContext(ctx, `SELECT data FROM model_artifacts WHERE key = $1`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "artifact %q not found", key)
	}
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to load artifact %q: %w", key, err)
	}
	return data, nil
}

// Exists reports whether an artifact is stored under key.
func (s *SQLArtifactStore) Exists(ctx context.Context, key string) (result0 bool, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "artifact_exists",
		attribute.String("artifact.key", key),
	)
	defer observability.FinishSpan(span, &err)

	var exists bool
	err = s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM model_artifacts WHERE key = $1)`, key).Scan(&exists)
	if err != nil {
		return false, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to check artifact %q: %w", key, err)
	}
	return exists, nil
}

// Keys lists stored artifact keys with the given prefix in sorted order.
func (s *SQLArtifactStore) Keys(ctx context.Context, prefix string) (result0 []string, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "artifact_keys",
		attribute.String("artifact.prefix", prefix),
	)
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `SELECT key FROM model_artifacts WHERE key LIKE $1 || '%' ORDER BY key`, prefix)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to list artifacts: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close artifact rows", closeErr)
		}
	}()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to scan artifact key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "artifact key iteration failed: %w", err)
	}
	return keys, nil
}
