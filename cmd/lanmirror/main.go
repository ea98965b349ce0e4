// =============================================================================
// LanMirror 主入口
// =============================================================================
// 把打包好的 Web 应用通过局域网共享给同一网络中的其他设备
//
// 使用方法:
//
//	lanmirror serve                       # 启动镜像服务与本机控制面
//	lanmirror serve --config lanmirror.yaml --port 9000
//	lanmirror stage                       # 只暂存资源并输出目录
//	lanmirror addr                        # 显示将要使用的局域网地址
//	lanmirror health                      # 探测控制面健康状态
//	lanmirror version                     # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/lanmirror/config"
	"github.com/BaSui01/lanmirror/internal/telemetry"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(os.Args[2:])
	case "stage":
		err = runStage(os.Args[2:])
	case "addr":
		err = runAddr(os.Args[2:])
	case "health":
		err = runHealthCheck(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// commonFlags serve 与 stage 共用的参数
type commonFlags struct {
	configPath string
	bundleDir  string
	port       int
}

func parseCommon(name string, args []string, withPort bool) (commonFlags, error) {
	var f commonFlags
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "", "Path to config file (YAML)")
	fs.StringVar(&f.bundleDir, "bundle", "", "Serve a web build directory instead of the embedded bundle")
	if withPort {
		fs.IntVar(&f.port, "port", -1, "Preferred mirror port (next ports are tried when busy)")
	}
	err := fs.Parse(args)
	return f, err
}

// loadConfig 默认值 → YAML → 环境变量 → 命令行
func loadConfig(f commonFlags) (*config.Config, error) {
	loader := config.NewLoader()
	if f.configPath != "" {
		loader = loader.WithConfigPath(f.configPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if f.bundleDir != "" {
		cfg.Assets.BundleDir = f.bundleDir
	}
	if f.port >= 0 {
		cfg.Server.Port = f.port
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func runServe(args []string) error {
	flags, err := parseCommon("serve", args, true)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	info := telemetry.ReadBuildInfo()
	logger.Info("starting LanMirror",
		zap.String("version", info.Version),
		zap.String("revision", info.Revision),
		zap.String("platform", info.Platform),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.Init(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	srv, err := NewServer(cfg, logger, providers)
	if err != nil {
		return err
	}

	if err := srv.Start(ctx); err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return err
	}

	srv.Wait(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("LanMirror stopped")
	return nil
}

// =============================================================================
// 📦 stage 命令
// =============================================================================

func runStage(args []string) error {
	flags, err := parseCommon("stage", args, false)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	// stdout 只输出暂存目录
	cfg.Log.OutputPaths = []string{"stderr"}
	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	bundle, err := openBundle(cfg.Assets.BundleDir)
	if err != nil {
		return err
	}

	stager := newStager(cfg, bundle, logger)
	dir, err := stager.Prepare(context.Background())
	if err != nil {
		return err
	}

	report := stager.LastReport()
	fmt.Println(dir)
	fmt.Fprintf(os.Stderr, "staged %d files", report.Copied)
	if len(report.Failed) > 0 {
		fmt.Fprintf(os.Stderr, ", skipped %d: %v", len(report.Failed), report.Failed)
	}
	fmt.Fprintln(os.Stderr)
	return nil
}

// =============================================================================
// 🌐 addr 命令
// =============================================================================

func runAddr(args []string) error {
	fs := flag.NewFlagSet("addr", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file (YAML)")
	asJSON := fs.Bool("json", false, "Print candidates as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(commonFlags{configPath: *configPath, port: -1})
	if err != nil {
		return err
	}

	resolver := newResolver(cfg, zap.NewNop())
	ctx := context.Background()

	candidates, err := resolver.Candidates(ctx)
	if err != nil {
		return err
	}
	ip, err := resolver.Resolve(ctx)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"selected": ip, "candidates": candidates})
	}

	fmt.Println(ip)
	for _, c := range candidates {
		marker := " "
		if c.IP == ip {
			marker = "*"
		}
		kind := "wired"
		if c.WiFi {
			kind = "wifi"
		}
		fmt.Fprintf(os.Stderr, "%s %-16s %-12s %s\n", marker, c.IP, c.Interface, kind)
	}
	return nil
}

// =============================================================================
// 🏥 健康检查命令
// =============================================================================

func runHealthCheck(args []string) error {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	addr := fs.String("addr", "http://127.0.0.1:9091", "Control server address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(*addr + "/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: status %d", resp.StatusCode)
	}

	fmt.Println("OK")
	return nil
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	info := telemetry.ReadBuildInfo()
	fmt.Printf("LanMirror %s\n", info.Version)
	if info.Revision != "" {
		fmt.Printf("  Revision:   %s\n", info.Revision)
	}
	if info.BuildTime != "" {
		fmt.Printf("  Build Time: %s\n", info.BuildTime)
	}
	fmt.Printf("  Go:         %s (%s)\n", info.GoVersion, info.Platform)
}

func printUsage() {
	fmt.Println(`LanMirror - share a bundled web app on the local network

Usage:
  lanmirror <command> [options]

Commands:
  serve     Start the mirror server and the local control API
  stage     Stage the web assets and print the staged directory
  addr      Show the LAN address the mirror would advertise
  health    Check control server health
  version   Show version information
  help      Show this help message

Options for 'serve':
  --config <path>   Path to configuration file (YAML)
  --port <n>        Preferred port (0 picks any free port)
  --bundle <dir>    Serve a web build directory instead of the embedded bundle

Options for 'stage':
  --config <path>   Path to configuration file (YAML)
  --bundle <dir>    Stage a web build directory instead of the embedded bundle

Options for 'addr':
  --config <path>   Path to configuration file (YAML)
  --json            Print all candidates as JSON

Examples:
  lanmirror serve
  lanmirror serve --port 9000 --bundle ./build/web
  LANMIRROR_LOG_LEVEL=debug lanmirror serve
  lanmirror health --addr http://127.0.0.1:9091`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Format == "console",
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	logger, err := zapConfig.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}

	return logger
}
