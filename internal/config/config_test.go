package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"STORE_DRIVER", "DATABASE_DSN", "POSTGRES_HOST", "STORAGE_ENDPOINT", "MINIO_ENDPOINT", "STALE_AFTER_SECONDS", "PRUNE_INTERVAL_MINUTES"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.StoreDriver != StoreMemory {
		t.Fatalf("expected memory store by default, got %q", cfg.StoreDriver)
	}
	if cfg.Reconcile.StaleAfter != 5*time.Minute || cfg.Reconcile.WelcomeStaleAfter != time.Minute {
		t.Fatalf("unexpected stale thresholds %+v", cfg.Reconcile)
	}
	if cfg.Reconcile.PruneInterval != time.Hour {
		t.Fatalf("unexpected prune interval %s", cfg.Reconcile.PruneInterval)
	}
}

func TestLoadPostgresFromParts(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PORT", "")
	t.Setenv("POSTGRES_USER", "clan")
	t.Setenv("POSTGRES_PASSWORD", "s3cret")
	t.Setenv("POSTGRES_DB", "notifier")
	t.Setenv("POSTGRES_SSLMODE", "")

	cfg := Load()
	if cfg.StoreDriver != StorePostgres {
		t.Fatalf("expected postgres store, got %q", cfg.StoreDriver)
	}
	want := "postgres://clan:s3cret@db:5432/notifier?sslmode=disable"
	if cfg.DatabaseDSN != want {
		t.Fatalf("dsn = %q, want %q", cfg.DatabaseDSN, want)
	}
}

func TestGetDuration(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{raw: "", want: time.Minute},
		{raw: "90", want: 90 * time.Second},
		{raw: "-3", want: time.Minute},
		{raw: "soon", want: time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.raw)
			if got := getDuration("TEST_DURATION", time.Second, time.Minute); got != tt.want {
				t.Fatalf("getDuration(%q) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}
