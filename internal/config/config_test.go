package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// chdir changes the working directory for the duration of the test,
// mirroring testing.T.Chdir (Go 1.24+) on older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("restore cwd: %v", err)
		}
	})
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CONFIG_ENV", "dev")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "release" {
		t.Fatalf("mode = %q, want release", cfg.Mode)
	}
	if cfg.Port != 8080 {
		t.Fatalf("port = %d, want 8080", cfg.Port)
	}
	if cfg.ReadLimit != 32768 {
		t.Fatalf("read_limit = %d, want 32768", cfg.ReadLimit)
	}
	if cfg.PingPeriod != 54*time.Second {
		t.Fatalf("ping_period = %s, want 54s", cfg.PingPeriod)
	}
	if cfg.ChatBurst != 10 {
		t.Fatalf("chat_burst = %d, want 10", cfg.ChatBurst)
	}
}

func TestLoad_ReadsEnvSpecificFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	yaml := []byte("mode: debug\nport: 9999\nchat_burst: 3\nping_period: 10s\n")
	if err := os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), yaml, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	chdir(t, dir)
	t.Setenv("CONFIG_ENV", "test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "debug" {
		t.Fatalf("mode = %q, want debug", cfg.Mode)
	}
	if cfg.Port != 9999 {
		t.Fatalf("port = %d, want 9999", cfg.Port)
	}
	if cfg.ChatBurst != 3 {
		t.Fatalf("chat_burst = %d, want 3", cfg.ChatBurst)
	}
	if cfg.PingPeriod != 10*time.Second {
		t.Fatalf("ping_period = %s, want 10s", cfg.PingPeriod)
	}
	// Keys the file omits keep their defaults.
	if cfg.ReadLimit != 32768 {
		t.Fatalf("read_limit = %d, want default", cfg.ReadLimit)
	}
}

func TestLoad_MalformedFileIsAnError(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	bad := []byte("mode: [unterminated\n")
	if err := os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), bad, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	chdir(t, dir)
	t.Setenv("CONFIG_ENV", "test")

	if _, err := Load(); err == nil {
		t.Fatalf("a present but unparsable file must fail, not fall back to defaults")
	}
}

func TestLoad_MistypedValueIsAnError(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	bad := []byte("port:\n  - 8080\n  - 8081\n")
	if err := os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), bad, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	chdir(t, dir)
	t.Setenv("CONFIG_ENV", "test")

	if _, err := Load(); err == nil {
		t.Fatalf("a list where an int belongs must fail to unmarshal")
	}
}
