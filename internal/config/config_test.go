package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadWithFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
listen_address: "127.0.0.1:7001"
log_level: "debug"
max_message_size: 1024
shutdown_grace_period: "3s"
`), 0o644))

	t.Setenv("CHATAPP_LISTEN_ADDRESS", ":6000")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	require.Equal(t, ":6000", cfg.ListenAddress, "env must override the file")
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 1024, cfg.MaxMessageSize)
	require.Equal(t, 3*time.Second, cfg.ShutdownGracePeriod)
	require.Equal(t, defaultHTTPAddress, cfg.HTTPAddress)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("shutdown_grace_period: \"soon\"\n"), 0o644))

	_, err := Load(configPath)
	require.ErrorContains(t, err, "shutdown_grace_period")
}

func TestLoadSanitizesNonPositiveSizes(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
event_buffer: 0
client_buffer: -1
max_message_size: 0
`), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)
	require.Equal(t, defaultEventBuffer, cfg.EventBuffer)
	require.Equal(t, defaultClientBuffer, cfg.ClientBuffer)
	require.Equal(t, defaultMaxMessageSize, cfg.MaxMessageSize)
}
