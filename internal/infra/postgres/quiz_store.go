package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ai-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizStore persists quizzes as JSONB in the quizzes table.
type QuizStore struct {
	pool *pgxpool.Pool
}

func NewQuizStore(pool *pgxpool.Pool) *QuizStore {
	return &QuizStore{pool: pool}
}

func (s *QuizStore) Put(ctx context.Context, id string, quiz domain.Quiz) error {
	if id == "" {
		return fmt.Errorf("%w: quiz id is required", domain.ErrInvalidInput)
	}
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO quizzes (id, tenant_id, data, created_at)
		VALUES ($1, $2, $3::jsonb, $4)
		ON CONFLICT (id) DO UPDATE SET tenant_id = EXCLUDED.tenant_id, data = EXCLUDED.data`,
		id, quiz.TenantID, string(data), quiz.CreatedAt)
	if err != nil {
		return fmt.Errorf("store quiz: %w", err)
	}
	return nil
}

func (s *QuizStore) Get(ctx context.Context, id string) (domain.Quiz, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, id)
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

func (s *QuizStore) List(ctx context.Context) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM quizzes ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	out := []domain.Quiz{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		var quiz domain.Quiz
		if err := json.Unmarshal(raw, &quiz); err != nil {
			return nil, fmt.Errorf("unmarshal quiz: %w", err)
		}
		out = append(out, quiz)
	}
	return out, rows.Err()
}

func (s *QuizStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM quizzes`); err != nil {
		return fmt.Errorf("clear quizzes: %w", err)
	}
	return nil
}
