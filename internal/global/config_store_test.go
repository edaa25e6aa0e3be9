package global

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigStore_LoadOrInit_CreatesDefaultFile(t *testing.T) {
	dir := t.TempDir()
	store := NewConfigStore(dir)

	cfg, err := store.LoadOrInit()
	if err != nil {
		t.Fatalf("LoadOrInit failed: %v", err)
	}
	if cfg.CustomInstructions != "" {
		t.Fatalf("expected empty custom instructions, got %q", cfg.CustomInstructions)
	}

	path := filepath.Join(dir, "config.toml")
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected config.toml to exist: %v", err)
	}
	if !strings.Contains(string(b), "[agent]") {
		t.Fatalf("expected agent table in toml, got: %s", b)
	}
	if !cfg.Agent.SaveCompletedTasks {
		t.Fatalf("fresh config must offer saving completed tasks by default")
	}
}

func TestConfigStore_SaveAndReload(t *testing.T) {
	dir := t.TempDir()
	store := NewConfigStore(dir)

	cfg := GlobalConfig{
		CustomInstructions: "  use apt, never snap\nprefer python3  ",
		Agent:              AgentPrefs{DefaultModel: " llama3 ", SaveCompletedTasks: true},
	}
	if err := store.Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.LoadOrInit()
	if err != nil {
		t.Fatalf("LoadOrInit failed: %v", err)
	}
	if loaded.CustomInstructions != "use apt, never snap\nprefer python3" {
		t.Fatalf("custom instructions not normalized: %q", loaded.CustomInstructions)
	}
	if loaded.Agent.DefaultModel != "llama3" {
		t.Fatalf("default model not normalized: %q", loaded.Agent.DefaultModel)
	}
	if !loaded.Agent.SaveCompletedTasks {
		t.Fatalf("expected SaveCompletedTasks persisted")
	}
}

func TestConfigStore_AtomicWriteLeavesNoTmp(t *testing.T) {
	dir := t.TempDir()
	store := NewConfigStore(dir)
	if err := store.Save(GlobalConfig{CustomInstructions: "x"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.toml.tmp")); !os.IsNotExist(err) {
		t.Fatalf("tmp file left behind")
	}
}

func TestDefaultConfigDir_EnvOverride(t *testing.T) {
	t.Setenv("OLLATERM_CONFIG_DIR", "/tmp/ollaterm-test")
	dir, err := DefaultConfigDir()
	if err != nil {
		t.Fatalf("DefaultConfigDir failed: %v", err)
	}
	if dir != "/tmp/ollaterm-test" {
		t.Fatalf("expected override, got %q", dir)
	}
}

func TestDefaultConfigDir_Home(t *testing.T) {
	t.Setenv("OLLATERM_CONFIG_DIR", "")
	dir, err := DefaultConfigDir()
	if err != nil {
		t.Fatalf("DefaultConfigDir failed: %v", err)
	}
	if !strings.HasSuffix(dir, filepath.Join(".config", "ollaterm")) {
		t.Fatalf("unexpected config dir %q", dir)
	}
}
