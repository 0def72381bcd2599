package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWithNoFile(t *testing.T) {
	t.Setenv("HUB_RESOURCES__WARNING_THRESHOLD", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Trust.DampingFactor != 0.8 || cfg.Resources.CriticalThreshold != 90 {
		t.Fatalf("Load(\"\") = %+v, want defaults", cfg)
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hub.yaml")
	contents := "hub:\n  role: secondary\n  hub_id: hub-b\ntrust:\n  max_depth: 4\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Hub.Role != RoleSecondary || cfg.Hub.HubID != "hub-b" {
		t.Fatalf("Load(%s).Hub = %+v, want secondary/hub-b", path, cfg.Hub)
	}
	if cfg.Trust.MaxDepth != 4 {
		t.Fatalf("Load(%s).Trust.MaxDepth = %d, want 4", path, cfg.Trust.MaxDepth)
	}
	// Fields not present in the file keep their defaults.
	if cfg.Resources.CriticalThreshold != 90 {
		t.Fatalf("Load(%s).Resources.CriticalThreshold = %v, want default 90", path, cfg.Resources.CriticalThreshold)
	}
}

func TestEnvOverrideWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hub.yaml")
	if err := os.WriteFile(path, []byte("resources:\n  warning_threshold: 50\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("HUB_RESOURCES__WARNING_THRESHOLD", "65")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Resources.WarningThreshold != 65 {
		t.Fatalf("Resources.WarningThreshold = %v, want env override 65", cfg.Resources.WarningThreshold)
	}
}

func TestUnknownEnvKeyIgnored(t *testing.T) {
	t.Setenv("HUB_NONEXISTENT__KEY", "1")
	if _, err := Load(""); err != nil {
		t.Fatalf("Load with unknown env key: %v", err)
	}
}
