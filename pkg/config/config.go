package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the reconciliation engine.
type Config struct {
	// Storage
	DBPath  string
	SeedDir string // JSON seed files imported on startup; empty disables seeding

	// Rule catalogs
	EquityRulesPath string
	ForexRulesPath  string

	// Engine
	Workers int // 0 means runtime.NumCPU()

	// Periodic reconciliation
	ReconInterval time.Duration
	ReconKinds    []string

	// Verdict persistence
	BatchSize     int
	FlushInterval time.Duration

	// Alerting: failure ratio of a batch above which an alert is raised
	AlertThreshold float64

	// Localization
	Language string // "en" or "zh"
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		DBPath:          getEnv("DB_PATH", "./data/recon.db"),
		SeedDir:         getEnv("SEED_DIR", ""),
		EquityRulesPath: getEnv("EQUITY_RULES_PATH", "./configs/rules_equity.yaml"),
		ForexRulesPath:  getEnv("FOREX_RULES_PATH", "./configs/rules_forex.yaml"),
		Workers:         getEnvInt("WORKERS", 0),
		ReconInterval:   getEnvDuration("RECON_INTERVAL", 5*time.Minute),
		ReconKinds:      splitAndTrim(getEnv("RECON_KINDS", "EQ-FO-FO,EQ-FO-BO,FX-FO-FO,FX-FO-BO")),
		BatchSize:       getEnvInt("BATCH_SIZE", 50),
		FlushInterval:   getEnvDuration("FLUSH_INTERVAL", 500*time.Millisecond),
		AlertThreshold:  getEnvFloat("ALERT_THRESHOLD", 0.2),
		Language:        strings.ToLower(getEnv("LANGUAGE", "en")),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// getEnvDuration accepts Go durations ("90s", "5m") or a bare number of seconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if s, err := strconv.Atoi(v); err == nil && s > 0 {
		return time.Duration(s) * time.Second
	}
	return def
}
