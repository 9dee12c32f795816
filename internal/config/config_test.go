package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if !cfg.Sources.APIs.NewsAPI.Enabled || cfg.Sources.APIs.NewsAPI.Country != "us" {
		t.Errorf("unexpected newsapi config: %+v", cfg.Sources.APIs.NewsAPI)
	}
	if cfg.Sources.APIs.WorldNews.Language != "pt" {
		t.Errorf("expected worldnews language 'pt', got %q", cfg.Sources.APIs.WorldNews.Language)
	}
	if cfg.Collection.Interval != 3*time.Hour {
		t.Errorf("expected 3h interval, got %v", cfg.Collection.Interval)
	}
	if cfg.Storage.Postgres.ConnectTimeout != 3*time.Second {
		t.Errorf("expected 3s connect timeout, got %v", cfg.Storage.Postgres.ConnectTimeout)
	}
	if cfg.Related.Threshold != 0.7 || cfg.Related.Limit != 3 || cfg.Related.Candidates != 50 {
		t.Errorf("unexpected related defaults: %+v", cfg.Related)
	}
	if cfg.Server.Port != 5010 {
		t.Errorf("expected port 5010, got %d", cfg.Server.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
related:
  threshold: 0.8
  fields: [title, description, content]
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Related.Threshold != 0.8 {
		t.Errorf("expected threshold 0.8, got %v", cfg.Related.Threshold)
	}
	if len(cfg.Related.Fields) != 3 {
		t.Errorf("expected 3 fields, got %v", cfg.Related.Fields)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Collection.Interval != 10800*time.Second {
		t.Errorf("expected default interval, got %v", cfg.Collection.Interval)
	}
	if cfg.Summarization.Model != "llama-3.3-70b-versatile" {
		t.Errorf("expected default model, got %q", cfg.Summarization.Model)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg, _ := parse(DefaultConfigYAML)
	env := map[string]string{
		"POSTGRES_HOST":     "db.internal",
		"POSTGRES_PORT":     "6543",
		"POSTGRES_DB":       "digest",
		"POSTGRES_USER":     "app",
		"POSTGRES_PASSWORD": "secret",
		"INTERVAL_UPDATE":   "60",
		"LOG_LEVEL":         "debug",
	}
	cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	pg := cfg.Storage.Postgres
	if pg.Host != "db.internal" || pg.Port != 6543 || pg.Database != "digest" || pg.User != "app" || pg.Password != "secret" {
		t.Errorf("postgres env not applied: %+v", pg)
	}
	if cfg.Collection.Interval != time.Minute {
		t.Errorf("expected 1m interval, got %v", cfg.Collection.Interval)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug level, got %q", cfg.Logging.Level)
	}
}

func TestApplyEnvIgnoresInvalidNumbers(t *testing.T) {
	cfg, _ := parse(DefaultConfigYAML)
	cfg.applyEnv(func(k string) (string, bool) {
		switch k {
		case "POSTGRES_PORT":
			return "abc", true
		case "INTERVAL_UPDATE":
			return "-5", true
		}
		return "", false
	})
	if cfg.Storage.Postgres.Port != 5432 {
		t.Errorf("expected port unchanged, got %d", cfg.Storage.Postgres.Port)
	}
	if cfg.Collection.Interval != 3*time.Hour {
		t.Errorf("expected interval unchanged, got %v", cfg.Collection.Interval)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"threshold above one", func(c *Config) { c.Related.Threshold = 1.5 }},
		{"zero limit", func(c *Config) { c.Related.Limit = 0 }},
		{"zero candidates", func(c *Config) { c.Related.Candidates = 0 }},
		{"no fields", func(c *Config) { c.Related.Fields = nil }},
		{"unknown field", func(c *Config) { c.Related.Fields = []string{"title", "author"} }},
		{"zero interval", func(c *Config) { c.Collection.Interval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _ := parse(DefaultConfigYAML)
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 7000\n"), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("expected port 7000, got %d", cfg.Server.Port)
	}
}

func TestLoadEmbeddedDefault(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("failed to load embedded default: %v", err)
	}
	if cfg.Related.DefaultLanguage != "pt" {
		t.Errorf("expected default language pt, got %q", cfg.Related.DefaultLanguage)
	}
}

func TestDatabaseConfigDefaultsSQLitePath(t *testing.T) {
	cfg, _ := parse(DefaultConfigYAML)
	cfg.Output.DataDir = "/custom/path"
	got := cfg.DatabaseConfig()
	if got.SQLite.Path != filepath.Join("/custom/path", "news.db") {
		t.Errorf("unexpected sqlite path %q", got.SQLite.Path)
	}
	if got.Postgres.Host != "" {
		t.Errorf("expected embedded mode by default, got host %q", got.Postgres.Host)
	}
}

func TestWorldNewsKeyFallback(t *testing.T) {
	t.Setenv("WORLDNEWS_API_KEY", "")
	t.Setenv("WORLDNEWS_KEY", "legacy")
	cfg, _ := parse(DefaultConfigYAML)
	if got := cfg.WorldNewsKey(); got != "legacy" {
		t.Errorf("expected fallback key, got %q", got)
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	if cfg.GetDataDir() == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
}
