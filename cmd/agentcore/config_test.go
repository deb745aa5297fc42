package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Sandbox.Level != "workspace" {
		t.Errorf("sandbox level = %q, want workspace", cfg.Sandbox.Level)
	}
	if cfg.Compaction.MaxTokens == 0 {
		t.Error("expected non-zero default max tokens")
	}
}

func TestLoadConfig_OverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agentcore.yaml")
	content := []byte("workspace: \"" + dir + "\"\nsandbox:\n  level: read_only\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Sandbox.Level != "read_only" {
		t.Errorf("sandbox level = %q, want read_only", cfg.Sandbox.Level)
	}
	if cfg.Workspace != dir {
		t.Errorf("workspace = %q, want %q", cfg.Workspace, dir)
	}
	if cfg.Compaction.MaxTokens == 0 {
		t.Error("expected default max tokens to survive a partial override")
	}
}

func TestLoadConfig_RejectsUnknownField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agentcore.yaml")
	if err := os.WriteFile(path, []byte("not_a_real_field: true\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}
