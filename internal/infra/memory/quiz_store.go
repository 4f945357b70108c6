package memory

import (
	"context"
	"fmt"
	"sync"

	"ai-quiz-service/internal/domain"
)

// QuizStore is a process-lifetime app.QuizRepository. Quizzes are deep-copied on the way in
// and out so callers never share slices with the store.
type QuizStore struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
}

func NewQuizStore() *QuizStore {
	return &QuizStore{quizzes: make(map[string]domain.Quiz)}
}

func (s *QuizStore) Put(_ context.Context, id string, quiz domain.Quiz) error {
	if id == "" {
		return fmt.Errorf("%w: quiz id is required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[id] = quiz.Clone()
	return nil
}

func (s *QuizStore) Get(_ context.Context, id string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[id]
	if !ok {
		return domain.Quiz{}, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, id)
	}
	return quiz.Clone(), nil
}

func (s *QuizStore) List(_ context.Context) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0, len(s.quizzes))
	for _, quiz := range s.quizzes {
		out = append(out, quiz.Clone())
	}
	return out, nil
}

func (s *QuizStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes = make(map[string]domain.Quiz)
	return nil
}
