package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "procdrive.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if len(cfg.ShellCmd) == 0 {
		t.Fatalf("expected default shell_cmd to be set")
	}
}

func TestLoadConfigAppliesPerChildDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "procdrive.yaml")
	body := `
children:
  echoer:
    shell: "echo hi"
`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	spec, ok := cfg.Children["echoer"]
	if !ok {
		t.Fatalf("expected child %q to be loaded", "echoer")
	}
	if spec.Label != "echoer" {
		t.Fatalf("expected label to default to map key, got %q", spec.Label)
	}
	if spec.ReadChunkSize != 4096 {
		t.Fatalf("expected default read chunk size 4096, got %d", spec.ReadChunkSize)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
