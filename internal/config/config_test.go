package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("SLA_HIGH_TARGET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, 8*time.Hour, cfg.SLA.HighTarget)
	assert.InDelta(t, 0.75, cfg.SLA.AtRiskRatio, 1e-9)
	assert.True(t, cfg.Realtime.RelayEnabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("SLA_CRITICAL_TARGET", "30m")
	t.Setenv("SLA_LOW_TARGET", "not-a-duration")
	t.Setenv("REALTIME_RELAY_ENABLED", "false")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
	assert.Equal(t, 30*time.Minute, cfg.SLA.CriticalTarget)
	assert.Equal(t, 48*time.Hour, cfg.SLA.LowTarget)
	assert.False(t, cfg.Realtime.RelayEnabled)
	assert.Zero(t, cfg.App.RequestTimeout())
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "one")

	_, err := Load()
	assert.ErrorContains(t, err, "REDIS_DB")
}
