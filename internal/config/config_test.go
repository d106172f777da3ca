package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.census.gov/data", cfg.Census.BaseURL)
	assert.Equal(t, 2023, cfg.Census.ACSYear)
	assert.Equal(t, 2020, cfg.Census.DecennialYear)
	assert.Equal(t, "21076", cfg.Census.ZCTA)
	assert.Equal(t, 30, cfg.Census.TimeoutSecs)
	assert.InDelta(t, 2.0, cfg.Census.RateLimit, 0.001)
	assert.Equal(t, "data", cfg.Data.Root)
	assert.Equal(t, []string{filepath.Join("analysis", "data", "raw")}, cfg.Data.LegacyRawDirs)
	assert.InDelta(t, 0.30, cfg.Affordability.IncomeShare, 1e-9)
	assert.InDelta(t, 0.006, cfg.Affordability.OwnershipRate, 1e-9)
	assert.InDelta(t, 300000, cfg.Affordability.TopBracketIncome, 1e-9)
	assert.Equal(t, "sqlite", cfg.RunLog.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
census:
  zcta: "21044"
  acs_year: 2022
data:
  root: out
runlog:
  driver: postgres
  database_url: postgres://localhost/hanover
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "21044", cfg.Census.ZCTA)
	assert.Equal(t, 2022, cfg.Census.ACSYear)
	assert.Equal(t, "out", cfg.Data.Root)
	assert.Equal(t, "postgres", cfg.RunLog.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 30, cfg.Census.TimeoutSecs)
	assert.InDelta(t, 0.006, cfg.Affordability.OwnershipRate, 1e-9)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
census:
  zcta: "21044"
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("HANOVER_CENSUS_ZCTA", "21076")
	t.Setenv("HANOVER_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "21076", cfg.Census.ZCTA)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadBareCensusKeyEnv(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("CENSUS_API_KEY", "abc123")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "abc123", cfg.Census.APIKey)
}

func TestValidateRejectsBadShare(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("HANOVER_AFFORDABILITY_INCOME_SHARE", "1.5")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("HANOVER_RUNLOG_DRIVER", "mysql")

	_, err := Load()
	assert.Error(t, err)
}

func TestDataPaths(t *testing.T) {
	d := DataConfig{Root: "data"}
	assert.Equal(t, filepath.Join("data", "raw", "census"), d.RawCensusDir())
	assert.Equal(t, filepath.Join("data", "metrics", "baseline.json"), d.BaselineDocPath())
	assert.Equal(t, filepath.Join("data", "metrics", "income_employment.json"), d.IncomeDocPath())
	assert.Equal(t, filepath.Join("data", "provenance_audit_report.md"), d.AuditReportPath())
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
