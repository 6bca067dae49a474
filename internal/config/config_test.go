package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iaros/pricing_pipeline/internal/config"
)

func TestDefaultsMatchSpec(t *testing.T) {
	cfg := config.Defaults()
	assert.Equal(t, 0.10, cfg.MinMargin)
	assert.Equal(t, 0.50, cfg.MaxMargin)
	assert.Equal(t, 1.5, cfg.ElasticityFactor)
	assert.Equal(t, 1000, cfg.BatchSize)
	assert.Equal(t, 4, cfg.WorkerThreads)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("MIN_MARGIN", "0.2")
	t.Setenv("WORKER_THREADS", "8")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.2, cfg.MinMargin)
	assert.Equal(t, 8, cfg.WorkerThreads)
}

func TestLoadAppliesYAMLOverride(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	require.NoError(t, err)
	_, err = f.WriteString("batch_size: 250\nredis_url: \"redis://cache:6379\"\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	cfg, err := config.Load(f.Name())
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.BatchSize)
	assert.Equal(t, "redis://cache:6379", cfg.RedisURL)
}

func TestLoadRejectsInvertedMargins(t *testing.T) {
	t.Setenv("MIN_MARGIN", "0.6")
	t.Setenv("MAX_MARGIN", "0.5")

	_, err := config.Load("")
	assert.Error(t, err)
}

func TestEnvOverridesYAML(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	require.NoError(t, err)
	_, err = f.WriteString("batch_size: 250\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	t.Setenv("BATCH_SIZE", "777")

	cfg, err := config.Load(f.Name())
	require.NoError(t, err)
	assert.Equal(t, 777, cfg.BatchSize)
}
