package config

import (
	"testing"
	"time"
)

func TestLoadAPIFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/durance")
	t.Setenv("PORT", "9090")

	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("addr = %q, want :9090", cfg.Addr)
	}
}

func TestLoadAPIFromEnvRequiresDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadAPIFromEnv(); err == nil {
		t.Fatalf("expected missing DATABASE_URL to fail")
	}
}

func TestLoadWorkerFromEnvDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/durance")

	cfg, err := LoadWorkerFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.IncomeEvery != time.Hour {
		t.Fatalf("income interval = %s, want 1h", cfg.IncomeEvery)
	}
	if cfg.RepriceEvery != 4*time.Hour {
		t.Fatalf("reprice interval = %s, want 4h", cfg.RepriceEvery)
	}
	if cfg.CleanupEvery != 7*24*time.Hour {
		t.Fatalf("cleanup interval = %s, want 168h", cfg.CleanupEvery)
	}
	if cfg.RunOnce {
		t.Fatalf("run-once should default to false")
	}
}

func TestLoadWorkerFromEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/durance")
	t.Setenv("DURANCE_INCOME_EVERY", "30m")
	t.Setenv("DURANCE_WORKER_RUN_ONCE", "true")
	t.Setenv("DURANCE_FLUCTUATE_EVERY", "garbage")

	cfg, err := LoadWorkerFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.IncomeEvery != 30*time.Minute {
		t.Fatalf("income interval = %s, want 30m", cfg.IncomeEvery)
	}
	if !cfg.RunOnce {
		t.Fatalf("run-once should be true")
	}
	if cfg.FluctuateEvery != 6*time.Hour {
		t.Fatalf("bad duration should fall back to 6h, got %s", cfg.FluctuateEvery)
	}
}
