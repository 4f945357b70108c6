package app

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"time"

	"ai-quiz-service/internal/analytics"
	"ai-quiz-service/internal/domain"
	"ai-quiz-service/internal/generator"
	"ai-quiz-service/internal/scoring"
	"ai-quiz-service/internal/session"

	"github.com/google/uuid"
)

const (
	// MaxQuestions caps a single quiz.
	MaxQuestions = 50
	// DefaultDurationMinutes applies when a request leaves duration unset.
	DefaultDurationMinutes = 10

	synthesizedTopic     = "General Knowledge"
	synthesizedQuestions = 5
)

// QuizRepository stores generated quizzes (in-memory, Redis, Postgres).
type QuizRepository interface {
	Put(ctx context.Context, id string, quiz domain.Quiz) error
	Get(ctx context.Context, id string) (domain.Quiz, error)
	List(ctx context.Context) ([]domain.Quiz, error)
	Clear(ctx context.Context) error
}

// AttemptRepository stores scored attempts. ListByTenant returns oldest first.
type AttemptRepository interface {
	Save(ctx context.Context, attempt domain.Attempt) error
	Get(ctx context.Context, id string) (domain.Attempt, error)
	ListByTenant(ctx context.Context, tenantID string) ([]domain.Attempt, error)
}

// SessionRegistry tracks live session controllers.
type SessionRegistry interface {
	Register(ctx context.Context, c *session.Controller) error
	Get(ctx context.Context, id string) (*session.Controller, bool)
	Remove(ctx context.Context, id string)
	Count() int
}

// QuestionGenerator produces questions for a new quiz.
type QuestionGenerator interface {
	Generate(ctx context.Context, topic string, difficulty domain.Difficulty, count int) ([]domain.Question, error)
}

// CreateQuizRequest is the quiz creation payload.
type CreateQuizRequest struct {
	Topic        string `json:"topic"`
	Difficulty   string `json:"difficulty"`
	NumQuestions int    `json:"num_questions"`
	Duration     int    `json:"duration"`
	TenantID     string `json:"tenant_id"`
}

// Option configures a QuizService.
type Option func(*QuizService)

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

// WithIDGenerator replaces uuid-based ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *QuizService) { s.newID = newID }
}

// WithSynthesizeMissing enables the deterministic fallback for unknown quiz ids.
func WithSynthesizeMissing(enabled bool) Option {
	return func(s *QuizService) { s.synthesizeMissing = enabled }
}

// WithDefaultDuration sets the duration used when a request omits one.
func WithDefaultDuration(minutes int) Option {
	return func(s *QuizService) {
		if minutes > 0 {
			s.defaultDuration = minutes
		}
	}
}

// WithLogger overrides slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *QuizService) { s.logger = logger }
}

// QuizService contains the core quiz use cases.
type QuizService struct {
	quizzes   QuizRepository
	attempts  AttemptRepository
	generator QuestionGenerator

	now               func() time.Time
	newID             func() string
	logger            *slog.Logger
	synthesizeMissing bool
	defaultDuration   int
}

func NewQuizService(quizzes QuizRepository, attempts AttemptRepository, gen QuestionGenerator, opts ...Option) *QuizService {
	s := &QuizService{
		quizzes:         quizzes,
		attempts:        attempts,
		generator:       gen,
		now:             time.Now,
		newID:           uuid.NewString,
		logger:          slog.Default(),
		defaultDuration: DefaultDurationMinutes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateQuiz generates and stores a new quiz. Provider failures are absorbed by the generator.
func (s *QuizService) CreateQuiz(ctx context.Context, req CreateQuizRequest) (domain.Quiz, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return domain.Quiz{}, fmt.Errorf("%w: topic is required", domain.ErrInvalidInput)
	}
	difficulty, err := domain.ParseDifficulty(req.Difficulty)
	if err != nil {
		return domain.Quiz{}, err
	}
	if req.NumQuestions < 1 || req.NumQuestions > MaxQuestions {
		return domain.Quiz{}, fmt.Errorf("%w: num_questions must be between 1 and %d", domain.ErrInvalidInput, MaxQuestions)
	}
	duration := req.Duration
	if duration == 0 {
		duration = s.defaultDuration
	}
	if duration < 1 {
		return domain.Quiz{}, fmt.Errorf("%w: duration %d", domain.ErrInvalidInput, duration)
	}

	questions, err := s.generator.Generate(ctx, topic, difficulty, req.NumQuestions)
	if err != nil {
		return domain.Quiz{}, err
	}

	quiz := domain.Quiz{
		ID:              s.newID(),
		Title:           fmt.Sprintf("%s Quiz", topic),
		Topic:           topic,
		Difficulty:      difficulty,
		DurationMinutes: duration,
		TenantID:        req.TenantID,
		Questions:       questions,
		CreatedAt:       s.now().UTC(),
	}
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	if err := s.quizzes.Put(ctx, quiz.ID, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("store quiz %s: %w", quiz.ID, err)
	}
	return quiz, nil
}

// GetQuiz returns the stored quiz. Unknown ids are synthesized only when enabled.
func (s *QuizService) GetQuiz(ctx context.Context, id, tenantID string) (domain.Quiz, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Quiz{}, fmt.Errorf("%w: quiz id is required", domain.ErrInvalidInput)
	}
	quiz, err := s.quizzes.Get(ctx, id)
	if err == nil {
		return quiz, nil
	}
	if !errors.Is(err, domain.ErrNotFound) || !s.synthesizeMissing {
		return domain.Quiz{}, err
	}

	s.logger.Warn("quiz not found, synthesizing deterministic quiz", "quiz_id", id, "tenant_id", tenantID)
	quiz, err = s.synthesize(id, tenantID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if err := s.quizzes.Put(ctx, id, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("store synthesized quiz %s: %w", id, err)
	}
	return quiz, nil
}

// synthesize builds the same quiz for the same id: the random source is seeded from the id.
func (s *QuizService) synthesize(id, tenantID string) (domain.Quiz, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	questions, err := generator.TemplateGenerate(rng, synthesizedTopic, domain.DifficultyMedium, synthesizedQuestions)
	if err != nil {
		return domain.Quiz{}, err
	}
	return domain.Quiz{
		ID:              id,
		Title:           fmt.Sprintf("%s Quiz", synthesizedTopic),
		Topic:           synthesizedTopic,
		Difficulty:      domain.DifficultyMedium,
		DurationMinutes: DefaultDurationMinutes,
		TenantID:        tenantID,
		Questions:       questions,
		CreatedAt:       s.now().UTC(),
	}, nil
}

// ListQuizzes returns quizzes ordered by creation time. An empty tenant lists everything.
func (s *QuizService) ListQuizzes(ctx context.Context, tenantID string) ([]domain.Quiz, error) {
	all, err := s.quizzes.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Quiz, 0, len(all))
	for _, quiz := range all {
		if tenantID == "" || quiz.TenantID == tenantID {
			out = append(out, quiz)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SubmitQuiz scores a submission against the stored quiz and records the attempt.
// It satisfies session.Submitter.
func (s *QuizService) SubmitQuiz(ctx context.Context, sub domain.Submission) (domain.ScoredResult, error) {
	if strings.TrimSpace(sub.QuizID) == "" {
		return domain.ScoredResult{}, fmt.Errorf("%w: quiz_id is required", domain.ErrInvalidInput)
	}
	for questionID, label := range sub.Answers {
		if label != "" && !label.Valid() {
			return domain.ScoredResult{}, fmt.Errorf("%w: answer %q for question %s", domain.ErrInvalidInput, label, questionID)
		}
	}

	quiz, err := s.quizzes.Get(ctx, sub.QuizID)
	if err != nil {
		return domain.ScoredResult{}, s.submitFailed(sub, err)
	}
	result, err := scoring.Score(quiz, sub.Answers, sub.TimeTakenSeconds)
	if err != nil {
		return domain.ScoredResult{}, s.submitFailed(sub, err)
	}

	result.ID = s.newID()
	result.TenantID = sub.TenantID
	if result.TenantID == "" {
		result.TenantID = quiz.TenantID
	}
	result.CompletedAt = s.now().UTC()

	attempt := domain.Attempt{ScoredResult: result, Topic: quiz.Topic, Difficulty: quiz.Difficulty}
	if err := s.attempts.Save(ctx, attempt); err != nil {
		return domain.ScoredResult{}, s.submitFailed(sub, fmt.Errorf("save attempt: %w", err))
	}
	return result, nil
}

func (s *QuizService) submitFailed(sub domain.Submission, err error) error {
	s.logger.Error("submission failed", "quiz_id", sub.QuizID, "tenant_id", sub.TenantID, "error", err)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	return fmt.Errorf("%w: quiz %s: %w", domain.ErrSubmission, sub.QuizID, err)
}

// GetResult returns a stored result by id.
func (s *QuizService) GetResult(ctx context.Context, id string) (domain.ScoredResult, error) {
	attempt, err := s.attempts.Get(ctx, id)
	if err != nil {
		return domain.ScoredResult{}, err
	}
	return attempt.ScoredResult, nil
}

// History returns a tenant's attempts, newest first. limit <= 0 means no limit.
func (s *QuizService) History(ctx context.Context, tenantID string, limit int) ([]domain.Attempt, error) {
	attempts, err := s.attempts.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(attempts, func(i, j int) bool {
		return attempts[i].CompletedAt.After(attempts[j].CompletedAt)
	})
	if limit > 0 && len(attempts) > limit {
		attempts = attempts[:limit]
	}
	return attempts, nil
}

// Analytics aggregates a tenant's attempts, with calendar days in loc (UTC when nil).
func (s *QuizService) Analytics(ctx context.Context, tenantID string, loc *time.Location) (analytics.Summary, error) {
	attempts, err := s.attempts.ListByTenant(ctx, tenantID)
	if err != nil {
		return analytics.Summary{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return analytics.Aggregate(attempts, s.now().In(loc)), nil
}

// StartSession loads a quiz and returns a controller in progress, with the quiz it serves.
func (s *QuizService) StartSession(ctx context.Context, quizID, tenantID string, opts ...session.Option) (*session.Controller, domain.Quiz, error) {
	quiz, err := s.GetQuiz(ctx, quizID, tenantID)
	if err != nil {
		return nil, domain.Quiz{}, err
	}
	if tenantID != "" {
		quiz.TenantID = tenantID
	}
	opts = append([]session.Option{session.WithClock(s.now)}, opts...)
	controller := session.NewController(s.newID(), s, opts...)
	if err := controller.Begin(quiz); err != nil {
		return nil, domain.Quiz{}, err
	}
	return controller, quiz, nil
}
