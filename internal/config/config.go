package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           string `yaml:"port"`
		RequestTimeout string `yaml:"request_timeout"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL                    string `yaml:"ttl"`
		SynthesizeMissing      bool   `yaml:"synthesize_missing"`
		DefaultDurationMinutes int    `yaml:"default_duration_minutes"`
	} `yaml:"quiz"`
	Generator struct {
		Provider string `yaml:"provider"`
		BaseURL  string `yaml:"base_url"`
		APIKey   string `yaml:"api_key"`
		Model    string `yaml:"model"`
		Timeout  string `yaml:"timeout"`
		Seed     int64  `yaml:"seed"`
	} `yaml:"generator"`
	Session struct {
		SubmitTimeout string `yaml:"submit_timeout"`
	} `yaml:"session"`
}

// Load reads YAML config from path. A missing file yields defaults; environment
// variables (after .env is loaded) override file values.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files (default ".env") without overriding
// ones already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func applyEnv(cfg *Config) {
	overrides := []struct {
		env    string
		target *string
	}{
		{"PORT", &cfg.Server.Port},
		{"REDIS_ADDR", &cfg.Redis.Addr},
		{"POSTGRES_URL", &cfg.Postgres.URL},
		{"OPENAI_API_KEY", &cfg.Generator.APIKey},
		{"OPENAI_BASE_URL", &cfg.Generator.BaseURL},
		{"OPENAI_MODEL", &cfg.Generator.Model},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.env); ok && v != "" {
			*o.target = v
		}
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
