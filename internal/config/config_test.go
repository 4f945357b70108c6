package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadReadsYAMLAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: "9000"
  request_timeout: 15s
redis:
  addr: localhost:6379
  ttl: 5m
quiz:
  synthesize_missing: true
  default_duration_minutes: 12
generator:
  provider: openai
  model: gpt-4o-mini
  seed: 42
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("OPENAI_MODEL", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9000" || cfg.Server.RequestTimeout != "15s" {
		t.Fatalf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Redis.Addr != "redis:6380" {
		t.Fatalf("expected env override for redis addr, got %q", cfg.Redis.Addr)
	}
	if cfg.Generator.Model != "gpt-4o-mini" || cfg.Generator.Seed != 42 {
		t.Fatalf("empty env must not clear file values, got %+v", cfg.Generator)
	}
	if !cfg.Quiz.SynthesizeMissing || cfg.Quiz.DefaultDurationMinutes != 12 {
		t.Fatalf("unexpected quiz config %+v", cfg.Quiz)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if cfg.Quiz.SynthesizeMissing {
		t.Fatalf("synthesis must be opt-in")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	_ = os.WriteFile(path, []byte("server: [unclosed"), 0o600)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadDotEnvDoesNotOverrideExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	_ = os.WriteFile(path, []byte("QUIZ_TEST_A=from-file\nQUIZ_TEST_B=from-file\n"), 0o600)
	t.Setenv("QUIZ_TEST_A", "from-env")
	t.Setenv("QUIZ_TEST_B", "")
	os.Unsetenv("QUIZ_TEST_B")

	if err := LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	if got := os.Getenv("QUIZ_TEST_A"); got != "from-env" {
		t.Fatalf("expected existing value kept, got %q", got)
	}
	if got := os.Getenv("QUIZ_TEST_B"); got != "from-file" {
		t.Fatalf("expected value from file, got %q", got)
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %s", got)
	}
	if got := TTLDuration("nonsense", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback on parse error, got %s", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %s", got)
	}
}
