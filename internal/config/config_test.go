package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ListenAddr != ":8000" {
		t.Errorf("listen addr = %q", cfg.ListenAddr)
	}
	if !strings.HasSuffix(cfg.DataFile, filepath.Join(".mas", "data.json")) {
		t.Errorf("data file = %q", cfg.DataFile)
	}
	if cfg.Embedding.Model != "nomic-embed-text" {
		t.Errorf("embedding model = %q", cfg.Embedding.Model)
	}
	if cfg.Completion.APIKey != "" {
		t.Error("default config must not carry an API key")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("MAS_DATA_FILE", "/srv/mas/data.json")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("MAS_LISTEN_ADDR", ":9001")

	cfg := DefaultConfig()
	applyEnv(cfg)

	if cfg.DataFile != "/srv/mas/data.json" {
		t.Errorf("data file = %q", cfg.DataFile)
	}
	if cfg.Completion.APIKey != "sk-test" {
		t.Errorf("api key = %q", cfg.Completion.APIKey)
	}
	if cfg.ListenAddr != ":9001" {
		t.Errorf("listen addr = %q", cfg.ListenAddr)
	}
	// Untouched fields keep their defaults.
	if cfg.Embedding.Model != "nomic-embed-text" {
		t.Errorf("embedding model = %q", cfg.Embedding.Model)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mas.yaml")
	yaml := "listen_addr: \":7777\"\nembedding:\n  model: other-model\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	if err := loadFile(path, cfg); err != nil {
		t.Fatalf("loadFile: %v", err)
	}
	if cfg.ListenAddr != ":7777" {
		t.Errorf("listen addr = %q", cfg.ListenAddr)
	}
	if cfg.Embedding.Model != "other-model" {
		t.Errorf("embedding model = %q", cfg.Embedding.Model)
	}
	// Values absent from the file keep their defaults.
	if cfg.Embedding.URL != "http://localhost:11434/api/embed" {
		t.Errorf("embedding url = %q", cfg.Embedding.URL)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	cfg := DefaultConfig()
	if err := loadFile(filepath.Join(t.TempDir(), "nope.yaml"), cfg); err == nil {
		t.Error("expected error for missing file")
	}
}
