package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, uint16(8080), cfg.Port)
	assert.False(t, cfg.HTTPS)
	assert.Equal(t, uint64(60), cfg.GracefulShutdownTimeout)
	assert.Equal(t, "%url-%offset-%size", cfg.ChunkCacheKey)
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]string{"--port", "9090", "--use-chunk-cache", "--chunk-cache-path", "/tmp/cache"})
	require.NoError(t, err)
	assert.Equal(t, uint16(9090), cfg.Port)
	assert.True(t, cfg.UseChunkCache)
	assert.Equal(t, "/tmp/cache", cfg.ChunkCachePath)
}

func TestValidateRequiresCachePathWhenEnabled(t *testing.T) {
	_, err := Parse([]string{"--use-chunk-cache"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk-cache-path")
}

func TestEnvFallback(t *testing.T) {
	t.Setenv("S3_ACTIVE_STORAGE_PORT", "9999")
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, uint16(9999), cfg.Port)
}
