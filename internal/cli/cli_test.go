package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"ai-quiz-service/internal/config"
	"ai-quiz-service/internal/domain"
	"ai-quiz-service/internal/infra/memory"
	infraredis "ai-quiz-service/internal/infra/redis"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestGenerateCommandPrintsQuiz(t *testing.T) {
	cmd := NewGenerateCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--topic", "Volcanoes", "--difficulty", "hard", "--count", "4", "--seed", "9"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("generate: %v", err)
	}

	var quiz domain.Quiz
	if err := json.Unmarshal(out.Bytes(), &quiz); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if quiz.Topic != "Volcanoes" || quiz.Difficulty != domain.DifficultyHard || len(quiz.Questions) != 4 {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	if err := quiz.Validate(); err != nil {
		t.Fatalf("generated quiz invalid: %v", err)
	}
}

func TestGenerateCommandTrimsTopic(t *testing.T) {
	cmd := NewGenerateCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--topic", "  Go ", "--count", "1", "--seed", "2"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("generate: %v", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(out.Bytes(), &quiz); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if quiz.Topic != "Go" || quiz.Title != "Go Quiz" {
		t.Fatalf("expected trimmed topic, got topic %q title %q", quiz.Topic, quiz.Title)
	}
}

func TestGenerateCommandRejectsBadDifficulty(t *testing.T) {
	cmd := NewGenerateCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--topic", "Volcanoes", "--difficulty", "brutal"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for unknown difficulty")
	}
}

func TestBuildStoresDefaultsToMemory(t *testing.T) {
	st, err := buildStores(context.Background(), config.Config{})
	if err != nil {
		t.Fatalf("build stores: %v", err)
	}
	defer st.close()
	if _, ok := st.quizzes.(*memory.QuizStore); !ok {
		t.Fatalf("expected memory quiz store, got %T", st.quizzes)
	}
	if _, ok := st.attempts.(*memory.AttemptStore); !ok {
		t.Fatalf("expected memory attempt store, got %T", st.attempts)
	}
	if _, ok := st.sessions.(*memory.SessionRegistry); !ok {
		t.Fatalf("expected memory session registry, got %T", st.sessions)
	}
}

func TestBuildStoresUsesRedisWhenConfigured(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	cfg := config.Config{}
	cfg.Redis.Addr = mr.Addr()
	st, err := buildStores(context.Background(), cfg)
	if err != nil {
		t.Fatalf("build stores: %v", err)
	}
	defer st.close()
	if _, ok := st.quizzes.(*infraredis.QuizStore); !ok {
		t.Fatalf("expected redis quiz store, got %T", st.quizzes)
	}
	if _, ok := st.attempts.(*infraredis.AttemptStore); !ok {
		t.Fatalf("expected redis attempt store, got %T", st.attempts)
	}
	if _, ok := st.sessions.(*infraredis.SessionRegistry); !ok {
		t.Fatalf("expected redis session registry, got %T", st.sessions)
	}
}

func TestBuildGeneratorWithoutKeyIsTemplateOnly(t *testing.T) {
	cfg := config.Config{}
	cfg.Generator.Provider = "openai"
	cfg.Generator.Seed = 1
	gen := buildGenerator(cfg)
	questions, err := gen.Generate(context.Background(), "Tides", domain.DifficultyEasy, 2)
	if err != nil || len(questions) != 2 {
		t.Fatalf("expected template questions, got %d (%v)", len(questions), err)
	}
}
