package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ai-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// AttemptStore keeps attempts as JSON (SET attempt:{id}) and orders them per tenant in a
// sorted set scored by completion time in milliseconds.
type AttemptStore struct {
	client *redis.Client
}

func NewAttemptStore(client *redis.Client) *AttemptStore {
	return &AttemptStore{client: client}
}

func (s *AttemptStore) Save(ctx context.Context, attempt domain.Attempt) error {
	if attempt.ID == "" {
		return fmt.Errorf("%w: attempt id is required", domain.ErrInvalidInput)
	}
	raw, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshal attempt %s: %w", attempt.ID, err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, attemptKey(attempt.ID), raw, 0)
	pipe.ZAdd(ctx, tenantAttemptsKey(attempt.TenantID), redis.Z{
		Score:  float64(attempt.CompletedAt.UnixMilli()),
		Member: attempt.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save attempt %s: %w", attempt.ID, err)
	}
	return nil
}

func (s *AttemptStore) Get(ctx context.Context, id string) (domain.Attempt, error) {
	raw, err := s.client.Get(ctx, attemptKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Attempt{}, fmt.Errorf("%w: %s", domain.ErrAttemptNotFound, id)
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("get attempt %s: %w", id, err)
	}
	var attempt domain.Attempt
	if err := json.Unmarshal(raw, &attempt); err != nil {
		return domain.Attempt{}, fmt.Errorf("unmarshal attempt %s: %w", id, err)
	}
	return attempt, nil
}

func (s *AttemptStore) ListByTenant(ctx context.Context, tenantID string) ([]domain.Attempt, error) {
	ids, err := s.client.ZRange(ctx, tenantAttemptsKey(tenantID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list attempts for %s: %w", tenantID, err)
	}
	if len(ids) == 0 {
		return []domain.Attempt{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = attemptKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load attempts for %s: %w", tenantID, err)
	}

	out := make([]domain.Attempt, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var attempt domain.Attempt
		if err := json.Unmarshal([]byte(raw), &attempt); err != nil {
			return nil, fmt.Errorf("unmarshal attempt %s: %w", ids[i], err)
		}
		out = append(out, attempt)
	}
	return out, nil
}

func attemptKey(id string) string {
	return "attempt:" + id
}

func tenantAttemptsKey(tenantID string) string {
	return "attempts:tenant:" + tenantID
}
