package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "SERVER_PORT", "DATABASE_URL", "DB_AUTO_MIGRATE", "JWT_SECRET_KEY",
		"AUTO_ASSIGN_ON_FINISH", "CORS_ALLOWED_ORIGINS", "LOG_LEVEL", "NATS_URL",
		"R2_ACCOUNT_ID", "R2_ACCESS_KEY_ID", "R2_SECRET_ACCESS_KEY", "R2_BUCKET_NAME", "R2_PUBLIC_BASE_URL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerPort != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.ServerPort)
	}
	if cfg.DatabaseURL != "" || cfg.AuthEnabled() {
		t.Fatalf("expected memory store and no auth by default: %+v", cfg)
	}
	if cfg.Realtime.PingPeriod != 54*time.Second || cfg.Realtime.SendBuffer != 256 {
		t.Fatalf("unexpected realtime defaults: %+v", cfg.Realtime)
	}
	if cfg.Scheduler.IdempotencyCacheSize != 256 || cfg.Scheduler.AutoAssignOnFinish {
		t.Fatalf("unexpected scheduler defaults: %+v", cfg.Scheduler)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://localhost/courts")
	t.Setenv("JWT_SECRET_KEY", "secret")
	t.Setenv("AUTO_ASSIGN_ON_FINISH", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("NATS_URL", "nats://localhost:4222")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerPort != 9090 || !cfg.AuthEnabled() || !cfg.Scheduler.AutoAssignOnFinish {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if diff := cmp.Diff([]string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins); diff != "" {
		t.Fatalf("origins mismatch (-want +got):\n%s", diff)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("expected debug level, got %s", cfg.LogLevel)
	}
	if cfg.NATS.URL != "nats://localhost:4222" || cfg.NATS.SubjectPrefix != "courts" {
		t.Fatalf("unexpected nats config: %+v", cfg.NATS)
	}
}

func TestLoadFileOverlayThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server_port: 7000
realtime:
  send_buffer: 32
  ping_period: 20s
  pong_wait: 30s
scheduler:
  auto_assign_on_finish: true
  idempotency_cache_size: 16
nats:
  subject_prefix: club
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SERVER_PORT", "7100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerPort != 7100 {
		t.Fatalf("env must win over file, got port %d", cfg.ServerPort)
	}
	want := RealtimeConfig{
		SendBuffer:     32,
		MaxMessageSize: 4096,
		WriteWait:      10 * time.Second,
		PongWait:       30 * time.Second,
		PingPeriod:     20 * time.Second,
		CommandTimeout: 10 * time.Second,
	}
	if diff := cmp.Diff(want, cfg.Realtime); diff != "" {
		t.Fatalf("realtime mismatch (-want +got):\n%s", diff)
	}
	if !cfg.Scheduler.AutoAssignOnFinish || cfg.Scheduler.IdempotencyCacheSize != 16 {
		t.Fatalf("scheduler overlay not applied: %+v", cfg.Scheduler)
	}
	if cfg.NATS.SubjectPrefix != "club" {
		t.Fatalf("expected subject prefix from file, got %q", cfg.NATS.SubjectPrefix)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
	}{
		{name: "port not a number", key: "SERVER_PORT", val: "eighty"},
		{name: "port out of range", key: "SERVER_PORT", val: "70000"},
		{name: "bad bool", key: "AUTO_ASSIGN_ON_FINISH", val: "sometimes"},
		{name: "bad level", key: "LOG_LEVEL", val: "loud"},
		{name: "missing file", key: "CONFIG_FILE", val: "/nonexistent/courts.yaml"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected an error for %s=%q", tc.key, tc.val)
			}
		})
	}
}

func TestValidatePingPeriod(t *testing.T) {
	cfg := defaults()
	cfg.Realtime.PingPeriod = cfg.Realtime.PongWait
	if err := cfg.validate(); err == nil {
		t.Fatal("ping period equal to pong wait must be rejected")
	}
}
