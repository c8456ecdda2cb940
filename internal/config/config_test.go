package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/salon-pos-go/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "BACKEND", "TIMEZONE", "AUTH_REQUIRED"} {
		t.Setenv(key, "")
	}

	cfg := config.Load()

	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.Backend != config.BackendSupabase {
		t.Errorf("expected supabase backend, got %s", cfg.Backend)
	}
	if cfg.Timezone != "Asia/Dubai" {
		t.Errorf("expected Asia/Dubai, got %s", cfg.Timezone)
	}
	if !cfg.AuthRequired {
		t.Error("expected auth to be required by default")
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("BACKEND", "sheets")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("AUTH_REQUIRED", "false")
	t.Setenv("MAX_RETRIES", "not-a-number")

	cfg := config.Load()

	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.Backend != config.BackendSheets {
		t.Errorf("expected sheets backend, got %s", cfg.Backend)
	}
	if cfg.HTTPTimeout != 3*time.Second {
		t.Errorf("expected 3s timeout, got %s", cfg.HTTPTimeout)
	}
	if cfg.AuthRequired {
		t.Error("expected auth to be disabled")
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("expected fallback of 3 retries, got %d", cfg.MaxRetries)
	}
}

func TestLoadDotEnv_DoesNotOverrideEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "SALON_TEST_FROM_FILE=file\nSALON_TEST_OVERRIDE=file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("SALON_TEST_OVERRIDE", "env")
	t.Cleanup(func() { os.Unsetenv("SALON_TEST_FROM_FILE") })

	if err := config.LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	if got := os.Getenv("SALON_TEST_FROM_FILE"); got != "file" {
		t.Errorf("expected value from file, got %q", got)
	}
	if got := os.Getenv("SALON_TEST_OVERRIDE"); got != "env" {
		t.Errorf("expected env to win, got %q", got)
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	if err := config.LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
