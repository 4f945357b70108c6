package redis

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"ai-quiz-service/internal/domain"
	"ai-quiz-service/internal/generator"
	"ai-quiz-service/internal/infra/memory"
	"ai-quiz-service/internal/session"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestQuizStoreRoundTripWithoutBacking(t *testing.T) {
	mr := runMiniredis(t)
	ctx := context.Background()
	store := NewQuizStore(newClient(mr), nil, time.Minute)
	quiz := sampleQuiz(t, "quiz-1")

	if err := store.Put(ctx, quiz.ID, quiz); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := store.Get(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(got, quiz) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, quiz)
	}
	if ttl := mr.TTL("quiz:quiz-1"); ttl != 0 {
		t.Fatalf("expected no expiry when redis is the store of record, got %s", ttl)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	_ = store.Put(ctx, "quiz-2", sampleQuiz(t, "quiz-2"))
	all, err := store.List(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 quizzes, got %d (%v)", len(all), err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if all, _ := store.List(ctx); len(all) != 0 {
		t.Fatalf("expected empty after clear, got %d", len(all))
	}
}

func TestQuizStoreReadThroughCachesInRedis(t *testing.T) {
	mr := runMiniredis(t)
	ctx := context.Background()

	backing := &countingStore{QuizStore: memory.NewQuizStore()}
	_ = backing.QuizStore.Put(ctx, "quiz-1", sampleQuiz(t, "quiz-1"))
	store := NewQuizStore(newClient(mr), backing, time.Minute)

	if _, err := store.Get(ctx, "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if backing.gets != 1 {
		t.Fatalf("expected backing store called once, got %d", backing.gets)
	}

	// Second call should hit cache, backing not incremented.
	_, _ = store.Get(ctx, "quiz-1")
	if backing.gets != 1 {
		t.Fatalf("expected cache hit, backing calls=%d", backing.gets)
	}
	ttl := mr.TTL("quiz:quiz-1")
	if ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("expected jittered ttl around 1m, got %s", ttl)
	}

	mr.FastForward(2 * time.Minute)
	_, _ = store.Get(ctx, "quiz-1")
	if backing.gets != 2 {
		t.Fatalf("expected reload after expiry, backing calls=%d", backing.gets)
	}
}

func TestQuizStorePutWritesThroughToBacking(t *testing.T) {
	mr := runMiniredis(t)
	ctx := context.Background()
	backing := &countingStore{QuizStore: memory.NewQuizStore()}
	store := NewQuizStore(newClient(mr), backing, time.Minute)

	if err := store.Put(ctx, "quiz-3", sampleQuiz(t, "quiz-3")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := backing.QuizStore.Get(ctx, "quiz-3"); err != nil {
		t.Fatalf("expected backing write, got %v", err)
	}
	if !mr.Exists("quiz:quiz-3") {
		t.Fatalf("expected cached copy in redis")
	}
}

func TestAttemptStoreOrdersByCompletion(t *testing.T) {
	mr := runMiniredis(t)
	ctx := context.Background()
	store := NewAttemptStore(newClient(mr))
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	for _, a := range []domain.Attempt{
		{ScoredResult: domain.ScoredResult{ID: "r2", TenantID: "t1", Percentage: 80, CompletedAt: base.Add(time.Hour)}, Topic: "Go"},
		{ScoredResult: domain.ScoredResult{ID: "r1", TenantID: "t1", Percentage: 40, CompletedAt: base}, Topic: "Go"},
		{ScoredResult: domain.ScoredResult{ID: "r3", TenantID: "t2", CompletedAt: base}},
	} {
		if err := store.Save(ctx, a); err != nil {
			t.Fatalf("save %s: %v", a.ID, err)
		}
	}

	list, err := store.ListByTenant(ctx, "t1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "r1" || list[1].ID != "r2" {
		t.Fatalf("expected r1, r2 got %+v", list)
	}
	got, err := store.Get(ctx, "r2")
	if err != nil || got.Percentage != 80 || got.Topic != "Go" {
		t.Fatalf("unexpected attempt %+v (%v)", got, err)
	}
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected attempt not found, got %v", err)
	}
	if empty, err := store.ListByTenant(ctx, "nobody"); err != nil || len(empty) != 0 {
		t.Fatalf("expected empty list, got %v (%v)", empty, err)
	}
}

func TestSessionRegistryLivenessKey(t *testing.T) {
	mr := runMiniredis(t)
	ctx := context.Background()
	registry := NewSessionRegistry(newClient(mr), time.Minute)
	controller := session.NewController("s1", nil)

	if err := registry.Register(ctx, controller); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !mr.Exists("quiz:session:s1") {
		t.Fatalf("expected liveness key")
	}
	snap, err := registry.Snapshot(ctx, "s1")
	if err != nil || snap.SessionID != "s1" || snap.State != session.StateLoading {
		t.Fatalf("unexpected snapshot %+v (%v)", snap, err)
	}
	if registry.Count() != 1 {
		t.Fatalf("expected one local session")
	}

	registry.Remove(ctx, "s1")
	if mr.Exists("quiz:session:s1") {
		t.Fatalf("expected liveness key removed")
	}
	if _, err := registry.Snapshot(ctx, "s1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
}

type countingStore struct {
	*memory.QuizStore
	gets int
}

func (s *countingStore) Get(ctx context.Context, id string) (domain.Quiz, error) {
	s.gets++
	return s.QuizStore.Get(ctx, id)
}

func sampleQuiz(t *testing.T, id string) domain.Quiz {
	t.Helper()
	questions, err := generator.TemplateGenerate(rand.New(rand.NewSource(3)), "Rivers", domain.DifficultyHard, 2)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return domain.Quiz{
		ID:              id,
		Title:           "Rivers Quiz",
		Topic:           "Rivers",
		Difficulty:      domain.DifficultyHard,
		DurationMinutes: 3,
		TenantID:        "t1",
		Questions:       questions,
		CreatedAt:       time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC),
	}
}

func runMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return mr
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}
