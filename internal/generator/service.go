package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"ai-quiz-service/internal/domain"
)

// DefaultProviderTimeout bounds a live provider call.
const DefaultProviderTimeout = 10 * time.Second

// Service prefers the live provider and falls back to templates on any provider failure.
type Service struct {
	provider Provider
	timeout  time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewService builds a generator. provider may be nil (template-only); rng must not be nil.
func NewService(provider Provider, rng *rand.Rand, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &Service{provider: provider, rng: rng, timeout: timeout}
}

// Generate validates the inputs, then tries the provider and falls back to templates.
// Provider failures are logged and never returned.
func (s *Service) Generate(ctx context.Context, topic string, difficulty domain.Difficulty, count int) ([]domain.Question, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", domain.ErrInvalidInput)
	}
	if count < 1 {
		return nil, fmt.Errorf("%w: question count %d", domain.ErrInvalidInput, count)
	}
	difficulty, err := domain.ParseDifficulty(string(difficulty))
	if err != nil {
		return nil, err
	}

	if s.provider != nil {
		questions, err := s.fromProvider(ctx, Request{Topic: topic, Difficulty: difficulty, Count: count})
		if err == nil {
			return questions, nil
		}
		slog.Warn("generation provider failed, using template generator", "topic", topic, "error", err)
	}
	return s.Template(topic, difficulty, count)
}

// Template runs the template generator against the shared random source.
func (s *Service) Template(topic string, difficulty domain.Difficulty, count int) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return TemplateGenerate(s.rng, topic, difficulty, count)
}

func (s *Service) fromProvider(ctx context.Context, req Request) ([]domain.Question, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	questions, err := s.provider.Generate(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w: %w", domain.ErrProvider, domain.ErrTimeout, err)
		}
		if !errors.Is(err, domain.ErrProvider) {
			err = fmt.Errorf("%w: %w", domain.ErrProvider, err)
		}
		return nil, err
	}
	if len(questions) != req.Count {
		return nil, fmt.Errorf("%w: got %d questions, want %d", domain.ErrProvider, len(questions), req.Count)
	}
	return questions, nil
}
