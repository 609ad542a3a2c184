package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DB_PATH", "SEED_DIR", "EQUITY_RULES_PATH", "FOREX_RULES_PATH",
		"WORKERS", "RECON_INTERVAL", "RECON_KINDS", "BATCH_SIZE", "FLUSH_INTERVAL", "ALERT_THRESHOLD", "LANGUAGE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "./data/recon.db", cfg.DBPath)
	assert.Equal(t, "./configs/rules_equity.yaml", cfg.EquityRulesPath)
	assert.Equal(t, "./configs/rules_forex.yaml", cfg.ForexRulesPath)
	assert.Zero(t, cfg.Workers)
	assert.Equal(t, 5*time.Minute, cfg.ReconInterval)
	assert.Equal(t, []string{"EQ-FO-FO", "EQ-FO-BO", "FX-FO-FO", "FX-FO-BO"}, cfg.ReconKinds)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.FlushInterval)
	assert.Equal(t, 0.2, cfg.AlertThreshold)
	assert.Equal(t, "en", cfg.Language)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_PATH", "/tmp/recon.db")
	t.Setenv("WORKERS", "4")
	t.Setenv("RECON_INTERVAL", "90")
	t.Setenv("RECON_KINDS", " FX-FO-BO , ,EQ-FO-FO")
	t.Setenv("BATCH_SIZE", "not-a-number")
	t.Setenv("FLUSH_INTERVAL", "2s")
	t.Setenv("LANGUAGE", "ZH")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/recon.db", cfg.DBPath)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 90*time.Second, cfg.ReconInterval)
	assert.Equal(t, []string{"FX-FO-BO", "EQ-FO-FO"}, cfg.ReconKinds)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.FlushInterval)
	assert.Equal(t, "zh", cfg.Language)
}

func TestGetEnvDuration(t *testing.T) {
	cases := []struct {
		value string
		want  time.Duration
	}{
		{"", time.Minute},
		{"30s", 30 * time.Second},
		{"15", 15 * time.Second},
		{"-5s", time.Minute},
		{"0", time.Minute},
		{"soon", time.Minute},
	}
	for _, tc := range cases {
		t.Run(tc.value, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tc.value)
			assert.Equal(t, tc.want, getEnvDuration("TEST_DURATION", time.Minute))
		})
	}
}
