package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"recall/internal/platform/config"
)

func TestNewRequiresDataDirAndDerivesPaths(t *testing.T) {
	t.Parallel()
	if _, err := config.New(""); err == nil {
		t.Fatalf("empty data dir should fail")
	}
	cfg, err := config.New("/data")
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.DBPath != filepath.Join("/data", ".recall", "recall.db") {
		t.Fatalf("unexpected db path %s", cfg.DBPath)
	}
	if cfg.RefreshInterval != 30*time.Second {
		t.Fatalf("expected 30s refresh interval, got %s", cfg.RefreshInterval)
	}
	if !cfg.RemoteEnabled() {
		t.Fatalf("remote should default to the local shared db")
	}
}

func TestLoadLayersFileAndDotenv(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".recall"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	yamlCfg := "user_id: file-user\nrefresh_interval: 45s\ncache_size: 8\ntimezone: UTC\nnotify: true\n"
	if err := os.WriteFile(filepath.Join(dir, ".recall", "config.yaml"), []byte(yamlCfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("RECALL_USER=dotenv-user\nRECALL_REMOTE_DB=off\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.UserID != "dotenv-user" {
		t.Fatalf(".env should override file user, got %s", cfg.UserID)
	}
	if cfg.RefreshInterval != 45*time.Second || cfg.CacheSize != 8 || !cfg.Notify {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.RemoteEnabled() {
		t.Fatalf("remote should be disabled by .env")
	}
	if cfg.Location != time.UTC {
		t.Fatalf("expected UTC location, got %v", cfg.Location)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("RECALL_POLL_INTERVAL=soon\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	if _, err := config.Load(dir); err == nil {
		t.Fatalf("invalid duration should fail")
	}
}
