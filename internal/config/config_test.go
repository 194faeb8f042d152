package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("COFFER_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, 90, cfg.RunRetentionDays)
	assert.Equal(t, 0, cfg.OptimizerWorkers)
	assert.True(t, filepath.IsAbs(cfg.DataDir))
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("COFFER_DATA_DIR", t.TempDir())
	t.Setenv("PORT", "9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("RUN_RETENTION_DAYS", "7")
	t.Setenv("OPTIMIZER_WORKERS", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 7, cfg.RunRetentionDays)
	assert.Equal(t, 4, cfg.OptimizerWorkers)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("COFFER_DATA_DIR", t.TempDir())
	t.Setenv("PORT", "not-a-number")
	t.Setenv("DEV_MODE", "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Port)
	assert.False(t, cfg.DevMode)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	testCases := []struct {
		name string
		cfg  Config
	}{
		{"port too low", Config{Port: 0, RunRetentionDays: 1}},
		{"port too high", Config{Port: 70000, RunRetentionDays: 1}},
		{"negative retention", Config{Port: 8090, RunRetentionDays: -1}},
		{"negative workers", Config{Port: 8090, RunRetentionDays: 1, OptimizerWorkers: -2}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.cfg.Validate())
		})
	}
}
