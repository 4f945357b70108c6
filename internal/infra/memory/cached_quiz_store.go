package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"ai-quiz-service/internal/app"
	"ai-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CachedQuizStore caches quizzes from a slower backing store (e.g. Postgres) with TTL.
// Writes go through to the backing store and refresh the cache.
type CachedQuizStore struct {
	backing app.QuizRepository
	ttl     time.Duration
	clock   func() time.Time
	sf      singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewCachedQuizStore(backing app.QuizRepository, ttl time.Duration) *CachedQuizStore {
	return &CachedQuizStore{
		backing: backing,
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:   make(map[string]cachedQuiz),
	}
}

func (r *CachedQuizStore) Put(ctx context.Context, id string, quiz domain.Quiz) error {
	if err := r.backing.Put(ctx, id, quiz); err != nil {
		return err
	}
	r.store(id, quiz, r.clock())
	return nil
}

func (r *CachedQuizStore) Get(ctx context.Context, id string) (domain.Quiz, error) {
	if quiz, ok := r.lookup(id, r.clock()); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(id, func() (interface{}, error) {
		now := r.clock()
		if quiz, ok := r.lookup(id, now); ok {
			return quiz, nil
		}
		quiz, err := r.backing.Get(ctx, id)
		if err != nil {
			return domain.Quiz{}, err
		}
		r.store(id, quiz, now)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz).Clone(), nil
}

// List always reads the backing store; the cache only serves lookups by id.
func (r *CachedQuizStore) List(ctx context.Context) ([]domain.Quiz, error) {
	return r.backing.List(ctx)
}

func (r *CachedQuizStore) Clear(ctx context.Context) error {
	r.mu.Lock()
	r.cache = make(map[string]cachedQuiz)
	r.mu.Unlock()
	return r.backing.Clear(ctx)
}

func (r *CachedQuizStore) lookup(id string, now time.Time) (domain.Quiz, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[id]; ok && entry.expiresAt.After(now) {
		return entry.quiz.Clone(), true
	}
	return domain.Quiz{}, false
}

func (r *CachedQuizStore) store(id string, quiz domain.Quiz, now time.Time) {
	expiresAt := now.Add(r.ttlWithJitter())
	r.mu.Lock()
	r.cache[id] = cachedQuiz{quiz: quiz.Clone(), expiresAt: expiresAt}
	r.mu.Unlock()
}

func (r *CachedQuizStore) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
