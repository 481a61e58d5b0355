package di

import (
	"context"
	"sort"
	"sync"

	"learnpath/internal/models"
	contextutils "learnpath/internal/utils"
)

// memoryAttemptStore is the database-free attempt log used when no Postgres
// URL is configured.
type memoryAttemptStore struct {
	mu      sync.RWMutex
	records []models.AttemptRecord
}

func newMemoryAttemptStore() *memoryAttemptStore {
	return &memoryAttemptStore{}
}

func (s *memoryAttemptStore) SaveAttempt(_ context.Context, record models.AttemptRecord) error {
	if record.StudentID == "" || record.Topic == "" {
		return contextutils.WrapError(contextutils.ErrMissingRequired, "attempt record needs student_id and topic")
	}
	s.mu.Lock()
	s.records = append(s.records, record)
	s.mu.Unlock()
	return nil
}

func (s *memoryAttemptStore) LoadAttempts(_ context.Context) ([]models.AttemptRecord, error) {
	s.mu.RLock()
	out := make([]models.AttemptRecord, len(s.records))
	copy(out, s.records)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].AttemptedAt.Before(out[j].AttemptedAt) })
	return out, nil
}

func (s *memoryAttemptStore) LoadAttemptsByStudent(ctx context.Context, studentID string) ([]models.AttemptRecord, error) {
	all, err := s.LoadAttempts(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.AttemptRecord
	for _, r := range all {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out, nil
}
