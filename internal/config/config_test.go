package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCompileConfig(t *testing.T) {
	t.Run("valid config loads", func(t *testing.T) {
		cfg, err := LoadCompileConfig(filepath.Join("testdata", "valid_config.yaml"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(cfg.Rules) != 2 {
			t.Fatalf("expected 2 rules dirs, got %d", len(cfg.Rules))
		}
		if !cfg.Strict {
			t.Fatalf("expected strict mode")
		}
		if cfg.Game.NormalizedMode() != "coop" {
			t.Fatalf("expected coop mode, got %q", cfg.Game.NormalizedMode())
		}
		if !cfg.Game.StyleVars["clean"] {
			t.Fatalf("expected clean style var set")
		}
	})

	t.Run("mode defaults to sp", func(t *testing.T) {
		path := writeTempConfig(t, "version: 1\nrules: [./rules]\n")
		cfg, err := LoadCompileConfig(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Game.NormalizedMode() != "sp" {
			t.Fatalf("expected sp, got %q", cfg.Game.NormalizedMode())
		}
	})

	t.Run("unsupported version", func(t *testing.T) {
		path := writeTempConfig(t, "version: 2\nrules: [./rules]\n")
		if _, err := LoadCompileConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("no rules directories", func(t *testing.T) {
		path := writeTempConfig(t, "version: 1\n")
		if _, err := LoadCompileConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("duplicate rules directories", func(t *testing.T) {
		path := writeTempConfig(t, "version: 1\nrules: [./rules, ./rules]\n")
		if _, err := LoadCompileConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("unknown game mode", func(t *testing.T) {
		path := writeTempConfig(t, "version: 1\nrules: [./rules]\ngame:\n  mode: deathmatch\n")
		if _, err := LoadCompileConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("file not found", func(t *testing.T) {
		if _, err := LoadCompileConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeTempConfig(t, "rules: [\n")
		if _, err := LoadCompileConfig(path); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}
