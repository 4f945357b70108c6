package app_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"ai-quiz-service/internal/app"
	"ai-quiz-service/internal/domain"
	"ai-quiz-service/internal/generator"
	"ai-quiz-service/internal/infra/memory"
	"ai-quiz-service/internal/session"
)

var fixedNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func newTestService(opts ...app.Option) (*app.QuizService, *memory.QuizStore, *memory.AttemptStore) {
	quizzes := memory.NewQuizStore()
	attempts := memory.NewAttemptStore()
	gen := generator.NewService(nil, rand.New(rand.NewSource(1)), 0)

	seq := 0
	base := []app.Option{
		app.WithClock(func() time.Time { return fixedNow }),
		app.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
	}
	return app.NewQuizService(quizzes, attempts, gen, append(base, opts...)...), quizzes, attempts
}

func TestCreateQuizStoresGeneratedQuiz(t *testing.T) {
	ctx := context.Background()
	service, store, _ := newTestService()

	quiz, err := service.CreateQuiz(ctx, app.CreateQuizRequest{
		Topic: "  Space Exploration ", Difficulty: "easy", NumQuestions: 3, TenantID: "t1",
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if quiz.Topic != "Space Exploration" || quiz.DurationMinutes != app.DefaultDurationMinutes || len(quiz.Questions) != 3 {
		t.Fatalf("unexpected quiz %+v", quiz)
	}

	stored, err := store.Get(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get stored quiz: %v", err)
	}
	if !reflect.DeepEqual(stored, quiz) {
		t.Fatalf("stored quiz differs from created quiz")
	}
}

func TestCreateQuizRejectsBadInput(t *testing.T) {
	service, _, _ := newTestService()
	cases := []app.CreateQuizRequest{
		{Topic: " ", Difficulty: "easy", NumQuestions: 3},
		{Topic: "Go", Difficulty: "impossible", NumQuestions: 3},
		{Topic: "Go", Difficulty: "easy", NumQuestions: 0},
		{Topic: "Go", Difficulty: "easy", NumQuestions: app.MaxQuestions + 1},
		{Topic: "Go", Difficulty: "easy", NumQuestions: 3, Duration: -1},
	}
	for _, req := range cases {
		if _, err := service.CreateQuiz(context.Background(), req); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("expected invalid input for %+v, got %v", req, err)
		}
	}
}

func TestGetQuizMissingWithoutSynthesis(t *testing.T) {
	service, _, _ := newTestService()
	if _, err := service.GetQuiz(context.Background(), "unknown", "t1"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

func TestGetQuizSynthesizesDeterministically(t *testing.T) {
	ctx := context.Background()
	first, _, _ := newTestService(app.WithSynthesizeMissing(true))
	second, _, _ := newTestService(app.WithSynthesizeMissing(true))

	a, err := first.GetQuiz(ctx, "shared-link", "t1")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	b, err := second.GetQuiz(ctx, "shared-link", "t1")
	if err != nil {
		t.Fatalf("synthesize again: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected identical quiz for the same id")
	}
	if a.ID != "shared-link" || a.Topic != "General Knowledge" || a.Difficulty != domain.DifficultyMedium || len(a.Questions) != 5 {
		t.Fatalf("unexpected synthesized quiz %+v", a)
	}

	// Once synthesized it is stored, so submission can find it.
	if _, err := first.SubmitQuiz(ctx, domain.Submission{QuizID: "shared-link", TenantID: "t1"}); err != nil {
		t.Fatalf("submit synthesized quiz: %v", err)
	}
}

func TestSpaceExplorationScenario(t *testing.T) {
	ctx := context.Background()
	service, _, attempts := newTestService()

	quiz, err := service.CreateQuiz(ctx, app.CreateQuizRequest{
		Topic: "Space Exploration", Difficulty: "easy", NumQuestions: 3, TenantID: "t1",
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	wrong := domain.OptionLabel("A")
	if quiz.Questions[1].CorrectOption == wrong {
		wrong = "B"
	}
	result, err := service.SubmitQuiz(ctx, domain.Submission{
		QuizID: quiz.ID,
		Answers: map[string]domain.OptionLabel{
			quiz.Questions[0].ID: quiz.Questions[0].CorrectOption,
			quiz.Questions[1].ID: wrong,
		},
		TimeTakenSeconds: 42,
		TenantID:         "t1",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 1 || result.TotalQuestions != 3 || result.Percentage != 33 || result.Grade != domain.GradeF {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.PerQuestion[2].IsCorrect || result.PerQuestion[2].UserAnswer != "" {
		t.Fatalf("expected unanswered third question, got %+v", result.PerQuestion[2])
	}
	if result.TimeTakenSeconds != 42 || !result.CompletedAt.Equal(fixedNow) {
		t.Fatalf("unexpected timing %+v", result)
	}

	saved, err := attempts.Get(ctx, result.ID)
	if err != nil {
		t.Fatalf("attempt not persisted: %v", err)
	}
	if saved.Topic != "Space Exploration" || saved.Difficulty != domain.DifficultyEasy {
		t.Fatalf("attempt missing quiz facts: %+v", saved)
	}

	got, err := service.GetResult(ctx, result.ID)
	if err != nil || got.Score != 1 {
		t.Fatalf("get result: %+v %v", got, err)
	}
}

func TestSubmitUnknownQuizIsSubmissionError(t *testing.T) {
	service, _, _ := newTestService()
	_, err := service.SubmitQuiz(context.Background(), domain.Submission{QuizID: "gone"})
	if !errors.Is(err, domain.ErrSubmission) || !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected submission error wrapping not found, got %v", err)
	}
}

func TestSubmitRejectsUnknownLabel(t *testing.T) {
	service, _, _ := newTestService()
	_, err := service.SubmitQuiz(context.Background(), domain.Submission{
		QuizID:  "q",
		Answers: map[string]domain.OptionLabel{"q_1": "E"},
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestHistoryAndAnalytics(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService()

	empty, err := service.Analytics(ctx, "t1", nil)
	if err != nil {
		t.Fatalf("analytics on empty history: %v", err)
	}
	if empty.TotalAttempts != 0 || empty.AveragePercentage != 0 || empty.BestPercentage != 0 || empty.CurrentStreak != 0 {
		t.Fatalf("expected zeroed analytics, got %+v", empty)
	}

	quiz, err := service.CreateQuiz(ctx, app.CreateQuizRequest{Topic: "Go", Difficulty: "medium", NumQuestions: 2, TenantID: "t1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	all := map[string]domain.OptionLabel{}
	for _, q := range quiz.Questions {
		all[q.ID] = q.CorrectOption
	}
	if _, err := service.SubmitQuiz(ctx, domain.Submission{QuizID: quiz.ID, TenantID: "t1"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := service.SubmitQuiz(ctx, domain.Submission{QuizID: quiz.ID, TenantID: "t1", Answers: all}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := service.SubmitQuiz(ctx, domain.Submission{QuizID: quiz.ID, TenantID: "t2", Answers: all}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	history, err := service.History(ctx, "t1", 1)
	if err != nil || len(history) != 1 {
		t.Fatalf("expected limited history, got %d (%v)", len(history), err)
	}

	summary, err := service.Analytics(ctx, "t1", time.UTC)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if summary.TotalAttempts != 2 || summary.BestPercentage != 100 || summary.AveragePercentage != 50 || summary.CurrentStreak != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(summary.Topics) != 1 || summary.Topics[0].Name != "Go" {
		t.Fatalf("unexpected topics %+v", summary.Topics)
	}
}

func TestListQuizzesByTenant(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newTestService()
	for _, tenant := range []string{"t1", "t2", "t1"} {
		if _, err := service.CreateQuiz(ctx, app.CreateQuizRequest{Topic: "Go", Difficulty: "hard", NumQuestions: 1, TenantID: tenant}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	t1, _ := service.ListQuizzes(ctx, "t1")
	all, _ := service.ListQuizzes(ctx, "")
	if len(t1) != 2 || len(all) != 3 {
		t.Fatalf("expected 2 for t1 and 3 overall, got %d and %d", len(t1), len(all))
	}
}

func TestStartSessionSubmitsThroughService(t *testing.T) {
	ctx := context.Background()
	service, _, attempts := newTestService()

	quiz, err := service.CreateQuiz(ctx, app.CreateQuizRequest{Topic: "Go", Difficulty: "easy", NumQuestions: 2, Duration: 1, TenantID: "t1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	controller, started, err := service.StartSession(ctx, quiz.ID, "t1")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if started.ID != quiz.ID || controller.State() != session.StateInProgress {
		t.Fatalf("expected in progress, got %s", controller.State())
	}
	if err := controller.SelectAnswer(quiz.Questions[0].ID, quiz.Questions[0].CorrectOption); err != nil {
		t.Fatalf("select: %v", err)
	}
	result, err := controller.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 1 || result.Percentage != 50 || result.Grade != domain.GradeF {
		t.Fatalf("unexpected result %+v", result)
	}
	if list, _ := attempts.ListByTenant(ctx, "t1"); len(list) != 1 {
		t.Fatalf("expected persisted attempt, got %d", len(list))
	}
}
