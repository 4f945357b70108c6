package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"ai-quiz-service/internal/app"
	"ai-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const quizIndexKey = "quiz:index"

// QuizStore keeps quizzes in Redis as JSON (SET quiz:{id}) with an id index set.
// With a backing store (e.g. Postgres) it acts as a read-through cache: writes go to the
// backing store first, misses are loaded once per id and cached with a jittered TTL.
// Without one, Redis is the store of record and keys do not expire.
type QuizStore struct {
	client  *redis.Client
	backing app.QuizRepository
	ttl     time.Duration
	sf      singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuizStore(client *redis.Client, backing app.QuizRepository, ttl time.Duration) *QuizStore {
	return &QuizStore{
		client:  client,
		backing: backing,
		ttl:     ttl,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizStore) Put(ctx context.Context, id string, quiz domain.Quiz) error {
	if id == "" {
		return fmt.Errorf("%w: quiz id is required", domain.ErrInvalidInput)
	}
	if r.backing != nil {
		if err := r.backing.Put(ctx, id, quiz); err != nil {
			return err
		}
	}
	return r.cache(ctx, id, quiz)
}

func (r *QuizStore) Get(ctx context.Context, id string) (domain.Quiz, error) {
	if quiz, ok, err := r.lookup(ctx, id); err != nil || ok {
		return quiz, err
	}
	if r.backing == nil {
		return domain.Quiz{}, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, id)
	}

	result, err, _ := r.sf.Do(id, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok, err := r.lookup(ctx, id); err != nil || ok {
			return quiz, err
		}
		quiz, err := r.backing.Get(ctx, id)
		if err != nil {
			return domain.Quiz{}, err
		}
		if err := r.cache(ctx, id, quiz); err != nil {
			return domain.Quiz{}, err
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz).Clone(), nil
}

func (r *QuizStore) List(ctx context.Context) ([]domain.Quiz, error) {
	if r.backing != nil {
		return r.backing.List(ctx)
	}
	ids, err := r.client.SMembers(ctx, quizIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list quiz ids: %w", err)
	}
	if len(ids) == 0 {
		return []domain.Quiz{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = quizKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load quizzes: %w", err)
	}

	out := make([]domain.Quiz, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// expired or deleted behind our back
			_ = r.client.SRem(ctx, quizIndexKey, ids[i]).Err()
			continue
		}
		var quiz domain.Quiz
		if err := json.Unmarshal([]byte(raw), &quiz); err != nil {
			return nil, fmt.Errorf("unmarshal quiz %s: %w", ids[i], err)
		}
		out = append(out, quiz)
	}
	return out, nil
}

func (r *QuizStore) Clear(ctx context.Context) error {
	ids, err := r.client.SMembers(ctx, quizIndexKey).Result()
	if err != nil {
		return fmt.Errorf("list quiz ids: %w", err)
	}
	keys := []string{quizIndexKey}
	for _, id := range ids {
		keys = append(keys, quizKey(id))
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear quizzes: %w", err)
	}
	if r.backing != nil {
		return r.backing.Clear(ctx)
	}
	return nil
}

func (r *QuizStore) lookup(ctx context.Context, id string) (domain.Quiz, bool, error) {
	raw, err := r.client.Get(ctx, quizKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Quiz{}, false, nil
	}
	if err != nil {
		return domain.Quiz{}, false, fmt.Errorf("get quiz %s: %w", id, err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, false, fmt.Errorf("unmarshal quiz %s: %w", id, err)
	}
	return quiz, true, nil
}

func (r *QuizStore) cache(ctx context.Context, id string, quiz domain.Quiz) error {
	raw, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz %s: %w", id, err)
	}
	var ttl time.Duration
	if r.backing != nil {
		ttl = r.ttlWithJitter()
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, quizKey(id), raw, ttl)
	pipe.SAdd(ctx, quizIndexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache quiz %s: %w", id, err)
	}
	return nil
}

func quizKey(id string) string {
	return "quiz:" + id
}

func (r *QuizStore) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
