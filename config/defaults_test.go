package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- DefaultConfig aggregate ---

func TestDefaultConfig_ContainsAllSubConfigs(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.NotEqual(t, ServerConfig{}, cfg.Server)
	assert.NotEqual(t, AssetsConfig{}, cfg.Assets)
	assert.NotEqual(t, NetworkConfig{}, cfg.Network)
	assert.NotEqual(t, LogConfig{}, cfg.Log)
	assert.NotEqual(t, TelemetryConfig{}, cfg.Telemetry)
	assert.NoError(t, cfg.Validate())
}

// --- Individual Default*Config functions ---

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 10, cfg.MaxBindAttempts)
	assert.Equal(t, "127.0.0.1", cfg.ControlHost)
	assert.Equal(t, 9091, cfg.ControlPort)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 0, cfg.RateLimitRPS)
}

func TestDefaultAssetsConfig(t *testing.T) {
	cfg := DefaultAssetsConfig()
	assert.Empty(t, cfg.BundleDir)
	assert.Equal(t, "asset_manifest.txt", cfg.ManifestPath)
	assert.Equal(t, "index.html", cfg.EntryFile)
	assert.Equal(t, 8, cfg.CopyConcurrency)
	assert.Contains(t, cfg.FallbackFiles, "index.html")
}

func TestDefaultAssetsConfig_FallbackIsCopied(t *testing.T) {
	cfg := DefaultAssetsConfig()
	cfg.FallbackFiles[0] = "changed.html"

	assert.Equal(t, "index.html", DefaultFallbackFiles[0])
}

func TestDefaultNetworkConfig(t *testing.T) {
	cfg := DefaultNetworkConfig()
	assert.Contains(t, cfg.WiFiPatterns, "wlan")
	assert.Contains(t, cfg.WiFiPatterns, "wifi")
}

func TestDefaultLogConfig(t *testing.T) {
	cfg := DefaultLogConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, []string{"stdout"}, cfg.OutputPaths)
}

func TestDefaultTelemetryConfig(t *testing.T) {
	cfg := DefaultTelemetryConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "lanmirror", cfg.ServiceName)
	assert.InDelta(t, 0.1, cfg.SampleRate, 0.0001)
}
