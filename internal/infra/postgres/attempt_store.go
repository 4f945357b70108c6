package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ai-quiz-service/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type attemptRow struct {
	bun.BaseModel `bun:"table:attempts"`

	ID               string                  `bun:"id,pk"`
	QuizID           string                  `bun:"quiz_id"`
	TenantID         string                  `bun:"tenant_id"`
	Topic            string                  `bun:"topic"`
	Difficulty       string                  `bun:"difficulty"`
	Score            int                     `bun:"score"`
	TotalQuestions   int                     `bun:"total_questions"`
	Percentage       int                     `bun:"percentage"`
	Grade            string                  `bun:"grade"`
	TimeTakenSeconds int                     `bun:"time_taken_seconds"`
	CompletedAt      time.Time               `bun:"completed_at"`
	Results          []domain.QuestionResult `bun:"results,type:jsonb"`
}

// AttemptStore persists scored attempts through bun.
type AttemptStore struct {
	db *bun.DB
}

func NewAttemptStore(db *bun.DB) *AttemptStore {
	return &AttemptStore{db: db}
}

// OpenBun opens a bun handle over pgdriver for dsn.
func OpenBun(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func (s *AttemptStore) Save(ctx context.Context, attempt domain.Attempt) error {
	if attempt.ID == "" {
		return fmt.Errorf("%w: attempt id is required", domain.ErrInvalidInput)
	}
	row := toRow(attempt)
	if _, err := s.db.NewInsert().Model(&row).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) Get(ctx context.Context, id string) (domain.Attempt, error) {
	var row attemptRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Attempt{}, fmt.Errorf("%w: %s", domain.ErrAttemptNotFound, id)
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("load attempt: %w", err)
	}
	return fromRow(row), nil
}

func (s *AttemptStore) ListByTenant(ctx context.Context, tenantID string) ([]domain.Attempt, error) {
	var rows []attemptRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("tenant_id = ?", tenantID).
		OrderExpr("completed_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	out := make([]domain.Attempt, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, nil
}

func toRow(a domain.Attempt) attemptRow {
	results := a.PerQuestion
	if results == nil {
		results = []domain.QuestionResult{}
	}
	return attemptRow{
		ID:               a.ID,
		QuizID:           a.QuizID,
		TenantID:         a.TenantID,
		Topic:            a.Topic,
		Difficulty:       string(a.Difficulty),
		Score:            a.Score,
		TotalQuestions:   a.TotalQuestions,
		Percentage:       a.Percentage,
		Grade:            string(a.Grade),
		TimeTakenSeconds: a.TimeTakenSeconds,
		CompletedAt:      a.CompletedAt,
		Results:          results,
	}
}

func fromRow(r attemptRow) domain.Attempt {
	return domain.Attempt{
		ScoredResult: domain.ScoredResult{
			ID:               r.ID,
			QuizID:           r.QuizID,
			TenantID:         r.TenantID,
			Score:            r.Score,
			TotalQuestions:   r.TotalQuestions,
			Percentage:       r.Percentage,
			Grade:            domain.Grade(r.Grade),
			TimeTakenSeconds: r.TimeTakenSeconds,
			CompletedAt:      r.CompletedAt.UTC(),
			PerQuestion:      r.Results,
		},
		Topic:      r.Topic,
		Difficulty: domain.Difficulty(r.Difficulty),
	}
}
