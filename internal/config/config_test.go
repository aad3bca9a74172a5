package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no config.yaml present

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.Data.Dir)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "https://www.gov.uk", cfg.GovUK.BaseURL)
	assert.Equal(t, 3, cfg.GovUK.MaxRetries)
	assert.Equal(t, 150*time.Millisecond, cfg.GovUK.RequestDelay)
	assert.Equal(t, 500, cfg.GovUK.BatchSize)
	assert.Equal(t, 4, cfg.Enrich.Concurrency)
	assert.Equal(t, 100, cfg.Enrich.CheckpointInterval)
	assert.Equal(t, 2, cfg.Enrich.MaxPasses)
	assert.False(t, cfg.Enrich.Force)
	assert.Equal(t, "native", cfg.OCR.Provider)
	assert.Equal(t, 100, cfg.OCR.MinTextChars)
	assert.Equal(t, 2012, cfg.Wales.FirstYear)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TRIBUNAL_ENRICH_CONCURRENCY", "8")
	t.Setenv("TRIBUNAL_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Enrich.Concurrency)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	require.Error(t, err)
}
