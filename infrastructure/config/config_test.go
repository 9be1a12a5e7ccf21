package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.False(t, cfg.AuthRequired)
	assert.Equal(t, 10, cfg.HubThresholdH)
	assert.Equal(t, 100000, cfg.JournalRetentionEvents)
	assert.Equal(t, 1024, cfg.SubscriberQueueCapacity)
	assert.Equal(t, 300, cfg.BatchDeadlineSeconds)
	assert.Equal(t, 100, cfg.ProgressRateLimitMs)
	assert.Equal(t, "memory", cfg.JournalBackend)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HUB_THRESHOLD_H", "5")
	t.Setenv("AUTH_REQUIRED", "true")
	t.Setenv("IGNORE_PATTERNS", "a/**, b/**")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.HubThresholdH)
	assert.True(t, cfg.AuthRequired)
	assert.Equal(t, []string{"a/**", "b/**"}, cfg.IgnorePatterns)
}

func TestLoad_YAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hubThresholdH: 9\njournalBackend: badger\n"), 0o644))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.HubThresholdH)
	assert.Equal(t, "badger", cfg.JournalBackend)
}

func TestIsIgnored(t *testing.T) {
	patterns := []string{".git/**", "vendor/**"}
	assert.True(t, isIgnored(".git/objects/ab", patterns))
	assert.True(t, isIgnored("vendor/foo/bar.go", patterns))
	assert.False(t, isIgnored("main.go", patterns))
}
