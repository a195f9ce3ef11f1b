package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseMergesOverDefaults(t *testing.T) {
	t.Parallel()

	raw := []byte(`
server:
  addr: ":8080"
cache:
  searchTTL: 10m
archive:
  backend: sqlite
feeds:
  sources:
    - name: Example
      url: https://example.com/world
      kind: html
      options:
        item: div.story
    - name: Plain
      url: https://example.com/rss
generation:
  backoff: [1s, 3s]
`)
	cfg, err := Parse(raw, defaultConfig())
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}

	if cfg.Server.Addr != ":8080" || cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Cache.SearchTTL != 10*time.Minute || cfg.Cache.KeywordTTL != 12*time.Hour {
		t.Fatalf("unexpected cache ttls: %+v", cfg.Cache)
	}
	if cfg.Archive.Backend != BackendSQLite || cfg.Archive.RetentionDays != 60 {
		t.Fatalf("unexpected archive config: %+v", cfg.Archive)
	}
	if len(cfg.Feeds.Sources) != 2 || cfg.Feeds.Sources[0].Options["item"] != "div.story" {
		t.Fatalf("unexpected sources: %+v", cfg.Feeds.Sources)
	}
	if cfg.Feeds.Sources[1].Kind != "rss" {
		t.Fatalf("kind should default to rss, got %q", cfg.Feeds.Sources[1].Kind)
	}
	if len(cfg.Generation.Backoff) != 2 || cfg.Generation.Backoff[1] != 3*time.Second {
		t.Fatalf("unexpected backoff: %v", cfg.Generation.Backoff)
	}
	if len(cfg.Search.TrustedDomains) == 0 {
		t.Fatalf("absent lists must keep defaults")
	}
}

func TestParseRejectsBrokenYAML(t *testing.T) {
	t.Parallel()

	base := defaultConfig()
	cfg, err := Parse([]byte("server: [unclosed"), base)
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if cfg.Server.Addr != base.Server.Addr {
		t.Fatalf("base config should be returned on error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		portEnv:             "9000",
		searchAPIKeyEnv:     "brave-key",
		generationAPIKeyEnv: "gen-key",
		generationModelEnv:  "gpt-test",
		archiveBackendEnv:   "S3",
		s3BucketEnv:         "bucket",
		redisAddrEnv:        "redis:6379",
		telegramTokenEnv:    "tok",
		telegramChatIDEnv:   "chat",
	}
	cfg := defaultConfig()
	cfg.applyEnvOverrides(func(k string) string { return env[k] })

	if cfg.Server.Addr != ":9000" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if cfg.Search.APIKey != "brave-key" || cfg.Generation.APIKey != "gen-key" || cfg.Generation.Model != "gpt-test" {
		t.Fatalf("api settings not overridden: %+v %+v", cfg.Search, cfg.Generation)
	}
	if cfg.Archive.Backend != BackendS3 || cfg.Archive.Bucket != "bucket" {
		t.Fatalf("archive not overridden: %+v", cfg.Archive)
	}
	if cfg.Cache.Backend != CacheRedis || cfg.Cache.Redis.Addr != "redis:6379" {
		t.Fatalf("redis address should switch backend: %+v", cfg.Cache)
	}
	if cfg.Notifications.Telegram.BotToken != "tok" || cfg.Notifications.Telegram.ChatID != "chat" {
		t.Fatalf("telegram not overridden: %+v", cfg.Notifications)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newsdesk.yaml")
	if err := os.WriteFile(path, []byte("scheduler:\n  timezone: Europe/Berlin\nlogging:\n  level: debug\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)

	cfg := Load()
	if cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected level %q", cfg.Logging.Level)
	}
	if cfg.Scheduler.Location().String() != "Europe/Berlin" {
		t.Fatalf("unexpected location %s", cfg.Scheduler.Location())
	}
}

func TestUnknownTimezoneFallsBack(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Scheduler.Timezone = "Mars/Olympus"
	cfg.bindTimezone()
	if cfg.Scheduler.Location().String() != "UTC" {
		t.Fatalf("unexpected location %s", cfg.Scheduler.Location())
	}
}
