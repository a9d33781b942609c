// =============================================================================
// HierFlow 主入口
// =============================================================================
// 层级控制面演示入口，构建一棵示例层级并输出快照与树形视图
//
// 使用方法:
//
//	hierflow demo                         # 运行演示层级
//	hierflow demo --config config.yaml    # 指定配置文件
//	hierflow version                      # 显示版本信息
// =============================================================================
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/hierflow/config"
	"github.com/BaSui01/hierflow/internal/metrics"
	"github.com/BaSui01/hierflow/plane"
	"github.com/BaSui01/hierflow/types"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "demo":
		runDemo(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// 🖥️ demo 命令
// =============================================================================

func runDemo(args []string) {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("Starting HierFlow",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	cp := plane.New(plane.Options{
		MaxDepth:          cfg.Hierarchy.MaxDepth,
		DefaultAutonomy:   types.AutonomyLevel(cfg.Autonomy.DefaultLevel),
		EscalationTimeout: cfg.Supervision.EscalationTimeout,
		Metrics:           metrics.NewCollector("hierflow", logger),
		Logger:            logger,
	})

	// 示例层级：一个 master、两个 supervisor、三个 worker
	tech := cp.Clusters().CreateCluster("Tech", types.ClusterTechnical, cfg.Cluster.MaxMembers)

	master := cp.SetupAgent("master", types.AuthorityMaster, types.AutonomyFull, "", "", nil)
	sup1 := cp.SetupAgent("sup-build", types.AuthoritySupervisor, types.AutonomyHigh, master.ID, tech.ID, nil)
	sup2 := cp.SetupAgent("sup-ops", types.AuthoritySupervisor, types.AutonomyHigh, master.ID, tech.ID, nil)
	cp.SetupAgent("coder", types.AuthorityWorker, types.AutonomyMedium, sup1.ID, tech.ID, []string{"code", "test"})
	cp.SetupAgent("tester", types.AuthorityWorker, types.AutonomyMedium, sup1.ID, tech.ID, []string{"test"})
	cp.SetupAgent("deployer", types.AuthorityWorker, types.AutonomyLow, sup2.ID, tech.ID, []string{"deploy"})

	result := cp.DelegateTask(sup1.ID, "build-release", []string{"code"}, 7, 0)
	logger.Info("demo delegation",
		zap.Bool("success", result.Success),
		zap.String("to", result.ToName))

	printJSON("tree", cp.TreeView(""))
	printJSON("snapshot", cp.Snapshot())

	logger.Info("HierFlow demo finished")
}

func printJSON(label string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode %s: %v\n", label, err)
		return
	}
	fmt.Printf("%s:\n%s\n", label, data)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoding = "console"
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		logger, _ = zap.NewProduction()
	}

	return logger
}

// =============================================================================
// ℹ️ 帮助与版本
// =============================================================================

func printUsage() {
	fmt.Println(`HierFlow - hierarchical agent control plane

Usage:
  hierflow <command> [options]

Commands:
  demo       Run a demo hierarchy and print its tree and snapshot
  version    Show version information
  help       Show this help message

Options for demo:
  --config   Path to YAML config file`)
}

func printVersion() {
	fmt.Printf("HierFlow %s (built %s, commit %s)\n", Version, BuildTime, GitCommit)
}
