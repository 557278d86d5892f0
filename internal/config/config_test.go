package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("database:\n  dsn: engine.db\n")
	if errWrite := os.WriteFile(path, content, 0600); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.Server.Listen != ":8318" {
		t.Fatalf("expected default listen, got %q", cfg.Server.Listen)
	}
	if cfg.Cache.SimilarityThreshold != 0.92 {
		t.Fatalf("expected default similarity threshold, got %v", cfg.Cache.SimilarityThreshold)
	}
	if cfg.Cache.LocalMaxEntries != 1000 {
		t.Fatalf("expected default local max entries, got %d", cfg.Cache.LocalMaxEntries)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("expected default log level, got %q", cfg.Logging.Level)
	}
}

func TestLoadRequiresDSN(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if errWrite := os.WriteFile(path, []byte("server:\n  listen: :9000\n"), 0600); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}

	if _, errLoad := Load(path); errLoad == nil {
		t.Fatalf("expected error for missing dsn")
	}
}

func TestResolveConfigPathPrefersArgument(t *testing.T) {
	t.Setenv("ROUTING_ENGINE_CONFIG", "/env/config.yaml")
	if got := ResolveConfigPath("/flag/config.yaml"); got != "/flag/config.yaml" {
		t.Fatalf("expected flag path, got %q", got)
	}
	if got := ResolveConfigPath(""); got != "/env/config.yaml" {
		t.Fatalf("expected env path, got %q", got)
	}
}
