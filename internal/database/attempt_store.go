package database

import (
	"context"
	"database/sql"

	"learnpath/internal/models"
	"learnpath/internal/observability"
	contextutils "learnpath/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// AttemptStoreInterface defines attempt log persistence
type AttemptStoreInterface interface {
	SaveAttempt(ctx context.Context, record models.AttemptRecord) error
	LoadAttempts(ctx context.Context) ([]models.AttemptRecord, error)
	LoadAttemptsByStudent(ctx context.Context, studentID string) ([]models.AttemptRecord, error)
}

// AttemptStore persists quiz attempt records.
type AttemptStore struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewAttemptStore creates a new attempt store
func NewAttemptStore(db *sql.DB, logger *observability.Logger) *AttemptStore {
	return &AttemptStore{db: db, logger: logger}
}

// SaveAttempt inserts one attempt record. Optional fields persist as NULL so
// the analytics normalization stays the single place that fills gaps.
func (s *AttemptStore) SaveAttempt(ctx context.Context, record models.AttemptRecord) (err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "save_attempt",
		observability.AttributeStudentID(record.StudentID),
		observability.AttributeTopic(record.Topic),
	)
	defer observability.FinishSpan(span, &err)

	if record.StudentID == "" || record.Topic == "" {
		return contextutils.WrapError(contextutils.ErrMissingRequired, "attempt record needs student_id and topic")
	}

	query := `
		INSERT INTO quiz_attempts (student_id, topic, difficulty, correct_answers, total_questions, time_taken_seconds, attempt_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = s.db.ExecContext(ctx, query,
		record.StudentID,
		record.Topic,
		string(record.Difficulty),
		nullableInt(record.CorrectAnswers),
		nullableInt(record.TotalQuestions),
		nullableFloat(record.TimeTakenSeconds),
		record.AttemptedAt,
	)
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to insert attempt: %w", err)
	}
	return nil
}

// LoadAttempts returns all attempt records ordered by timestamp.
func (s *AttemptStore) LoadAttempts(ctx context.Context) (result0 []models.AttemptRecord, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "load_attempts")
	defer observability.FinishSpan(span, &err)

	query := `
		SELECT student_id, topic, difficulty, correct_answers, total_questions, time_taken_seconds, attempt_timestamp
		FROM quiz_attempts
		ORDER BY attempt_timestamp, id`
	records, err := s.queryAttempts(ctx, query)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("records.count", len(records)))
	return records, nil
}

// LoadAttemptsByStudent returns one student's attempt records ordered by
// timestamp.
func (s *AttemptStore) LoadAttemptsByStudent(ctx context.Context, studentID string) (result0 []models.AttemptRecord, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "load_attempts_by_student",
		observability.AttributeStudentID(studentID),
	)
	defer observability.FinishSpan(span, &err)

	query := `
		SELECT student_id, topic, difficulty, correct_answers, total_questions, time_taken_seconds, attempt_timestamp
		FROM quiz_attempts
		WHERE student_id = $1
		ORDER BY attempt_timestamp, id`
	return s.queryAttempts(ctx, query, studentID)
}

func (s *AttemptStore) queryAttempts(ctx context.Context, query string, args ...interface{}) ([]models.AttemptRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to query attempts: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close attempt rows", closeErr)
		}
	}()

	var records []models.AttemptRecord
	for rows.Next() {
		var (
			record     models.AttemptRecord
			difficulty string
			correct    sql.NullInt64
			total      sql.NullInt64
			taken      sql.NullFloat64
		)
		if err := rows.Scan(&record.StudentID, &record.Topic, &difficulty, &correct, &total, &taken, &record.AttemptedAt); err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to scan attempt row: %w", err)
		}
		record.Difficulty = models.Difficulty(difficulty)
		if correct.Valid {
			v := int(correct.Int64)
			record.CorrectAnswers = &v
		}
		if total.Valid {
			v := int(total.Int64)
			record.TotalQuestions = &v
		}
		if taken.Valid {
			v := taken.Float64
			record.TimeTakenSeconds = &v
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "attempt row iteration failed: %w", err)
	}
	return records, nil
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
