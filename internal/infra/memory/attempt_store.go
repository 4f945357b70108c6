package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ai-quiz-service/internal/domain"
)

// AttemptStore keeps scored attempts in memory, indexed by tenant.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]domain.Attempt
	byTenant map[string][]string
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]domain.Attempt),
		byTenant: make(map[string][]string),
	}
}

func (s *AttemptStore) Save(_ context.Context, attempt domain.Attempt) error {
	if attempt.ID == "" {
		return fmt.Errorf("%w: attempt id is required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.attempts[attempt.ID]; !exists {
		s.byTenant[attempt.TenantID] = append(s.byTenant[attempt.TenantID], attempt.ID)
	}
	s.attempts[attempt.ID] = cloneAttempt(attempt)
	return nil
}

func (s *AttemptStore) Get(_ context.Context, id string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[id]
	if !ok {
		return domain.Attempt{}, fmt.Errorf("%w: %s", domain.ErrAttemptNotFound, id)
	}
	return cloneAttempt(attempt), nil
}

func (s *AttemptStore) ListByTenant(_ context.Context, tenantID string) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byTenant[tenantID]
	out := make([]domain.Attempt, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneAttempt(s.attempts[id]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.Before(out[j].CompletedAt)
	})
	return out, nil
}

func cloneAttempt(a domain.Attempt) domain.Attempt {
	a.PerQuestion = append([]domain.QuestionResult(nil), a.PerQuestion...)
	return a
}
