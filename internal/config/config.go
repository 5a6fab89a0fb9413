package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type APIConfig struct {
	Addr        string
	DatabaseURL string
}

type WorkerConfig struct {
	DatabaseURL     string
	IncomeEvery     time.Duration
	RepriceEvery    time.Duration
	FluctuateEvery  time.Duration
	StatsEvery      time.Duration
	CleanupEvery    time.Duration
	RunOnce         bool
	BootstrapSchema bool
}

type CLIConfig struct {
	APIBaseURL string
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("DURANCE_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:        addr,
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	cfg := WorkerConfig{
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		IncomeEvery:     envDurationDefault("DURANCE_INCOME_EVERY", time.Hour),
		RepriceEvery:    envDurationDefault("DURANCE_REPRICE_EVERY", 4*time.Hour),
		FluctuateEvery:  envDurationDefault("DURANCE_FLUCTUATE_EVERY", 6*time.Hour),
		StatsEvery:      envDurationDefault("DURANCE_STATS_EVERY", 24*time.Hour),
		CleanupEvery:    envDurationDefault("DURANCE_CLEANUP_EVERY", 7*24*time.Hour),
		RunOnce:         envBoolDefault("DURANCE_WORKER_RUN_ONCE", false),
		BootstrapSchema: envBoolDefault("DURANCE_BOOTSTRAP_SCHEMA", true),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("DUR_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
