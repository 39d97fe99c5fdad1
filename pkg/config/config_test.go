package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":5000", cfg.Listen)
	assert.True(t, cfg.Perf.Enabled)
	assert.True(t, cfg.Perf.BaselineUsesPayload)
	assert.Equal(t, DefaultPerfEvents, cfg.Perf.Events)
	assert.Equal(t, 300*time.Second, cfg.Manager.IdleTimeout.Std())
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":8080"
perf_log_dir: /tmp/perf
perf:
  enabled: false
  attach_delay: 100ms
manager:
  min_idle_containers: 2
  idle_timeout: 60s
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "/tmp/perf", cfg.PerfLogDir)
	assert.False(t, cfg.Perf.Enabled)
	assert.Equal(t, 100*time.Millisecond, cfg.Perf.AttachDelay.Std())
	assert.Equal(t, 2, cfg.Manager.MinIdleContainers)
	assert.Equal(t, 60*time.Second, cfg.Manager.IdleTimeout.Std())

	// Untouched fields keep their defaults
	assert.Equal(t, DefaultPerfEvents, cfg.Perf.Events)
	assert.Equal(t, 5000, cfg.Manager.ContainerPort)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
