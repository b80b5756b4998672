package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "treasury_wallet: \"11111111111111111111111111111111\"\n"))
	require.NoError(t, err)

	assert.Equal(t, uint32(DefaultMaxCombinedFeeBps), cfg.MaxCombinedFeeBps)
	assert.Equal(t, DefaultMarketCapThreshold, cfg.MarketCapThreshold)
	assert.Equal(t, DefaultSustainWindowHours, cfg.SustainWindowHours)
	assert.Equal(t, DefaultMilestoneDeadlineHours, cfg.MilestoneDeadlineHours)
	assert.Equal(t, DefaultPremiumClaimIntervalDays, cfg.PremiumClaimIntervalDays)
	assert.Equal(t, DefaultPollIntervalSeconds, cfg.PollIntervalSeconds)
	assert.Equal(t, DefaultEventBufferSize, cfg.EventBufferSize)
	assert.Empty(t, cfg.PostgresURL)
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
treasury_wallet: "11111111111111111111111111111111"
postgres_url: "postgres://localhost:5432/engine"
max_combined_fee_bps: 1500
sustain_window_hours: 24
debug_logging: true
`))
	require.NoError(t, err)
	assert.Equal(t, uint32(1500), cfg.MaxCombinedFeeBps)
	assert.Equal(t, 24, cfg.SustainWindowHours)
	assert.True(t, cfg.DebugLogging)
	assert.Equal(t, "postgres://localhost:5432/engine", cfg.PostgresURL)
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing treasury", "log_file: x.log\n", "missing treasury_wallet"},
		{"bad treasury", "treasury_wallet: \"nope\"\n", "invalid treasury_wallet"},
		{
			"bad fee cap",
			"treasury_wallet: \"11111111111111111111111111111111\"\nmax_combined_fee_bps: 20000\n",
			"invalid max_combined_fee_bps",
		},
		{
			"bad sustain window",
			"treasury_wallet: \"11111111111111111111111111111111\"\nsustain_window_hours: -1\n",
			"invalid sustain_window_hours",
		},
		{
			"bad poll interval",
			"treasury_wallet: \"11111111111111111111111111111111\"\npoll_interval_seconds: 0\n",
			"invalid poll_interval_seconds",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.content))
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestLoadConfigEnvironmentOverride(t *testing.T) {
	t.Setenv("WYBE_ENGINE_POSTGRES_URL", "postgres://env-host:5432/engine")
	cfg, err := LoadConfig(writeConfig(t, "treasury_wallet: \"11111111111111111111111111111111\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://env-host:5432/engine", cfg.PostgresURL)
}
