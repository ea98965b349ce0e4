// =============================================================================
// 📦 LanMirror 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultFallbackFiles 清单不可读时兜底暂存的文件
var DefaultFallbackFiles = []string{
	"index.html",
	"main.js",
	"styles.css",
	"manifest.json",
	"favicon.png",
	"assets/app.js",
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Assets:    DefaultAssetsConfig(),
		Network:   DefaultNetworkConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:            8080,
		MaxBindAttempts: 10,
		ControlHost:     "127.0.0.1",
		ControlPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		RateLimitRPS:    0,
		RateLimitBurst:  50,
	}
}

// DefaultAssetsConfig 返回默认资源暂存配置
func DefaultAssetsConfig() AssetsConfig {
	fallback := make([]string, len(DefaultFallbackFiles))
	copy(fallback, DefaultFallbackFiles)
	return AssetsConfig{
		BundleDir:       "",
		ManifestPath:    "asset_manifest.txt",
		EntryFile:       "index.html",
		StagingDir:      "",
		CopyConcurrency: 8,
		FallbackFiles:   fallback,
	}
}

// DefaultNetworkConfig 返回默认网络配置
func DefaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		WiFiPatterns: []string{"wlan", "wifi", "wi-fi", "wlp", "wireless", "airport", "en0"},
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: true,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "lanmirror",
		SampleRate:   0.1,
	}
}
