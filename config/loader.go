// =============================================================================
// 📦 LanMirror 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("lanmirror.yaml").
//	    WithEnvPrefix("LANMIRROR").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"path"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 LanMirror 的完整配置结构
type Config struct {
	// Server 服务器配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Assets 资源暂存配置
	Assets AssetsConfig `yaml:"assets" env:"ASSETS"`

	// Network 网络地址发现配置
	Network NetworkConfig `yaml:"network" env:"NETWORK"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// 镜像服务端口（被占用时自动递增）
	Port int `yaml:"port" env:"PORT"`
	// 最大绑定尝试次数
	MaxBindAttempts int `yaml:"max_bind_attempts" env:"MAX_BIND_ATTEMPTS"`
	// 控制服务监听地址（仅本机）
	ControlHost string `yaml:"control_host" env:"CONTROL_HOST"`
	// 控制服务端口，0 表示禁用
	ControlPort int `yaml:"control_port" env:"CONTROL_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 空闲超时
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	// 控制服务优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 每个客户端 IP 的限流（0 表示不限流）
	RateLimitRPS int `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// 限流突发容量
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	// 控制 API 允许的跨域来源
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
}

// AssetsConfig 资源暂存配置
type AssetsConfig struct {
	// 打包产物目录，空表示使用内嵌资源包
	BundleDir string `yaml:"bundle_dir" env:"BUNDLE_DIR"`
	// 资源包内清单文件路径
	ManifestPath string `yaml:"manifest_path" env:"MANIFEST_PATH"`
	// 入口文件
	EntryFile string `yaml:"entry_file" env:"ENTRY_FILE"`
	// 暂存根目录，空表示系统临时目录下的 lanmirror
	StagingDir string `yaml:"staging_dir" env:"STAGING_DIR"`
	// 并发复制数
	CopyConcurrency int `yaml:"copy_concurrency" env:"COPY_CONCURRENCY"`
	// 清单不可读时的兜底文件列表
	FallbackFiles []string `yaml:"fallback_files" env:"FALLBACK_FILES"`
}

// NetworkConfig 网络配置
type NetworkConfig struct {
	// WiFi 接口名匹配模式（不区分大小写的子串）
	WiFiPatterns []string `yaml:"wifi_patterns" env:"WIFI_PATTERNS"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "LANMIRROR",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	// 端口 0 表示由系统分配
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, "invalid server port")
	}
	if c.Server.ControlPort < 0 || c.Server.ControlPort > 65535 {
		errs = append(errs, "invalid control port")
	}
	if c.Server.MaxBindAttempts <= 0 {
		errs = append(errs, "max_bind_attempts must be positive")
	}
	if c.Server.RateLimitRPS < 0 {
		errs = append(errs, "rate_limit_rps must not be negative")
	}
	if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst <= 0 {
		errs = append(errs, "rate_limit_burst must be positive when rate limiting is enabled")
	}

	if c.Assets.EntryFile == "" {
		errs = append(errs, "entry_file is required")
	} else if !isCleanRelative(c.Assets.EntryFile) {
		errs = append(errs, "entry_file must be a relative path inside the bundle")
	}
	if c.Assets.ManifestPath == "" {
		errs = append(errs, "manifest_path is required")
	}
	if c.Assets.CopyConcurrency <= 0 {
		errs = append(errs, "copy_concurrency must be positive")
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("unsupported log format %q", c.Log.Format))
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "sample_rate must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ControlAddress 返回控制服务监听地址，端口为 0 时返回空字符串
func (c *Config) ControlAddress() string {
	if c.Server.ControlPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.ControlHost, c.Server.ControlPort)
}

func isCleanRelative(p string) bool {
	if strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return false
	}
	clean := path.Clean(p)
	return clean == p && clean != "." && clean != ".." && !strings.HasPrefix(clean, "../")
}
