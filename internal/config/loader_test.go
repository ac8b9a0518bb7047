package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CREWDESK_CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Memory.ContextWindow != 10 {
		t.Fatalf("expected default context window 10, got %d", cfg.Memory.ContextWindow)
	}
	if cfg.Gateway.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Gateway.Port)
	}
	if cfg.Queue.ScrapeTopic != "scrape.jobs" || cfg.Queue.EmailTopic != "email.jobs" {
		t.Fatalf("unexpected default topics: %+v", cfg.Queue)
	}
	if cfg.Provider.CallTimeout != 60*time.Second {
		t.Fatalf("unexpected default call timeout: %s", cfg.Provider.CallTimeout)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"gateway": {"host": "0.0.0.0", "port": 9000},
		"queue": {"brokers": ["localhost:9092"]}
	}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CREWDESK_CONFIG", path)
	t.Setenv("CREWDESK_GATEWAY_PORT", "9100")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Gateway.Host != "0.0.0.0" {
		t.Fatalf("file value not applied: %s", cfg.Gateway.Host)
	}
	// Environment wins over the file.
	if cfg.Gateway.Port != 9100 {
		t.Fatalf("env override not applied: %d", cfg.Gateway.Port)
	}
	if len(cfg.Queue.Brokers) != 1 {
		t.Fatalf("unexpected brokers: %v", cfg.Queue.Brokers)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Memory.ContextWindow != 10 {
		t.Fatalf("default lost after file merge: %d", cfg.Memory.ContextWindow)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CREWDESK_CONFIG", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	got, err := ExpandPath("~/x/y.db")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(home, "x", "y.db") {
		t.Fatalf("unexpected expansion: %s", got)
	}
	got, err = ExpandPath("/abs/path.db")
	if err != nil || got != "/abs/path.db" {
		t.Fatalf("absolute path must pass through: %s %v", got, err)
	}
}
