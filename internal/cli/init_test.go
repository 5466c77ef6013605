package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"fintrack/internal/config"
	applog "fintrack/internal/log"
)

func TestSetupLoggerHonoursConfig(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLoggerTo(&config.Config{LogLevel: "warn", LogFormat: "json"}, "server", &buf)

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected only the warning, got %q", buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if rec["msg"] != "shown" || rec["component"] != "server" || rec["key"] != "value" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("FINTRACK_TEST_KEY=from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FINTRACK_TEST_KEY", "")
	os.Unsetenv("FINTRACK_TEST_KEY")

	LoadEnvFile(path)
	if got := os.Getenv("FINTRACK_TEST_KEY"); got != "from-file" {
		t.Fatalf("expected value from .env, got %q", got)
	}

	// Missing files are ignored.
	LoadEnvFile(filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("PORT", "8081")
	if _, err := LoadConfig(); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	t.Setenv("PORT", "not-a-port")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestInitBackend(t *testing.T) {
	logger := applog.New(applog.Config{Component: "test", Output: &bytes.Buffer{}})
	cfg := &config.Config{
		DataBackend:  "sqlite",
		SQLiteDBPath: filepath.Join(t.TempDir(), "fintrack.db"),
	}
	res, err := InitBackend(context.Background(), logger, cfg)
	if err != nil {
		t.Fatalf("InitBackend: %v", err)
	}
	defer res.Cleanup()
	if res.Tracker == nil {
		t.Fatal("sqlite backend should track sync state")
	}

	if _, err := InitBackend(context.Background(), logger, &config.Config{DataBackend: "nope"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestGracefulShutdown(t *testing.T) {
	logger := applog.New(applog.Config{Component: "test", Output: &bytes.Buffer{}})
	cleaned := make(chan struct{})
	ctx, done := GracefulShutdown(logger, time.Second, func(context.Context) { close(cleaned) })

	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("send signal: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled")
	}
	WaitForShutdown(ctx, done)
	select {
	case <-cleaned:
	default:
		t.Fatal("cleanup did not run")
	}
}
