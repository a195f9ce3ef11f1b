package app

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"NewsDesk/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()

	cfg, err := config.Parse([]byte("scheduler:\n  enabled: false\n"), config.Load())
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Archive.Path = filepath.Join(t.TempDir(), "archive.json")
	cfg.Cache.Backend = config.CacheMemory
	return cfg
}

func TestNewWiresFileBackend(t *testing.T) {
	cfg := testConfig(t)

	a, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	if a.pipeline == nil || a.store == nil || a.server == nil {
		t.Fatalf("application graph incomplete")
	}
	if a.scheduler != nil {
		t.Fatalf("scheduler should be disabled")
	}
}

func TestNewWiresSQLiteBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Archive.Backend = config.BackendSQLite
	cfg.Archive.DSN = "file:" + filepath.Join(t.TempDir(), "archive.db")

	a, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	if len(a.closers) != 1 {
		t.Fatalf("sqlite handle should be registered for close, got %d closers", len(a.closers))
	}
	a.close()
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Archive.Backend = "floppy"

	if _, err := New(context.Background(), cfg, nil); err == nil || !strings.Contains(err.Error(), "floppy") {
		t.Fatalf("expected unknown backend error, got %v", err)
	}
}

func TestNewRequiresBucketForS3(t *testing.T) {
	cfg := testConfig(t)
	cfg.Archive.Backend = config.BackendS3
	cfg.Archive.Bucket = ""

	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected missing bucket error")
	}
}
