// Package config loads engine configuration from the environment.
package config

import (
	"os"
	"strconv"

	"github.com/shiftworks/shift-engine/reconcile"
)

type Config struct {
	// Store selects the backend: "sqlite" or "postgres".
	Store       string
	SQLitePath  string
	DatabaseURL string
	ServerPort  string

	// SchedulerEnabled turns the background reconciliation sweep on.
	SchedulerEnabled bool

	Rules reconcile.Rules
}

func Load() *Config {
	rules := reconcile.DefaultRules()
	if p := getEnv("HOURS_PRECISION", ""); p != "" {
		if v, err := strconv.Atoi(p); err == nil && (v == 1 || v == 2) {
			rules.HoursPrecision = int32(v)
		}
	}

	return &Config{
		Store:            getEnv("STORE", "sqlite"),
		SQLitePath:       getEnv("SQLITE_PATH", "./shifts.db"),
		DatabaseURL:      getEnv("DATABASE_URL", "postgresql://postgres@localhost:5432/shifts"),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		SchedulerEnabled: getEnv("SCHEDULER_ENABLED", "true") == "true",
		Rules:            rules,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
