package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// Run from an empty directory so no config.yaml is picked up.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "underwrite.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 20.0, cfg.Server.RatePerSecond)
	assert.Equal(t, 40, cfg.Server.RateBurst)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 5, cfg.Batch.MaxConcurrentRecords)

	assert.Equal(t, 0.50, cfg.Engine.LTVWeight)
	assert.Equal(t, 0.35, cfg.Engine.DSCRWeight)
	assert.Equal(t, 0.15, cfg.Engine.FlagsWeight)
	assert.Equal(t, 0.70, cfg.Engine.HighThreshold)
	assert.Equal(t, 0.40, cfg.Engine.MediumThreshold)
	assert.Equal(t, 0.30, cfg.Engine.NOIIncomeProxyRatio)
	assert.Equal(t, 12, cfg.Engine.PreviewRows)
	assert.True(t, cfg.Engine.DerivePolicyFlags)
}

func TestLoadEnvOverride(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("UNDERWRITE_STORE_DRIVER", "postgres")
	t.Setenv("UNDERWRITE_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadConfigFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	yml := `
store:
  driver: postgres
  database_url: postgres://localhost/underwrite
engine:
  high_threshold: 0.8
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/underwrite", cfg.Store.DatabaseURL)
	assert.Equal(t, 0.8, cfg.Engine.HighThreshold)
	// Untouched values keep their defaults.
	assert.Equal(t, 0.40, cfg.Engine.MediumThreshold)
}

func TestApplyRiskModelFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "risk.yaml")
	yml := `
risk_model:
  ltv_weight: 0.6
  high_threshold: 0.75
  preview_rows: 6
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	base := EngineConfig{
		LTVWeight:       0.50,
		DSCRWeight:      0.35,
		FlagsWeight:     0.15,
		HighThreshold:   0.70,
		MediumThreshold: 0.40,
		PreviewRows:     12,
	}

	cfg, err := ApplyRiskModelFile(base, path)
	require.NoError(t, err)

	assert.Equal(t, 0.6, cfg.LTVWeight)
	assert.Equal(t, 0.75, cfg.HighThreshold)
	assert.Equal(t, 6, cfg.PreviewRows)
	// Absent fields keep their current values.
	assert.Equal(t, 0.35, cfg.DSCRWeight)
	assert.Equal(t, 0.40, cfg.MediumThreshold)
}

func TestApplyRiskModelFileMissing(t *testing.T) {
	base := EngineConfig{LTVWeight: 0.50}
	cfg, err := ApplyRiskModelFile(base, filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	assert.Equal(t, base, cfg)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
}
