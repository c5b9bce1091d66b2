package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/app"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/config"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/log"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/store"
)

func main() {
	var (
		configPath string
		task       string
	)
	flag.StringVar(&configPath, "config", "", "配置文件路径，默认使用 configs/config.yaml")
	flag.StringVar(&task, "task", "", "只执行指定任务后退出（create-triggers/track-fills/auto-sell/sweep/watch），留空则常驻运行")
	flag.Parse()

	// .env 不存在时忽略，凭证也可以直接来自环境变量。
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	if !cfg.OKX.HasCredentials() {
		logger.Warn("未配置 API 凭证，仅公共接口可用")
	}

	sqliteStore, err := store.NewSQLite(cfg.Database)
	if err != nil {
		logger.Error("初始化数据库失败", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		if closeErr := sqliteStore.Close(); closeErr != nil {
			logger.Warn("关闭数据库失败", zap.Error(closeErr))
		}
	}()

	guardApp := app.New(cfg, logger, sqliteStore)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if task != "" {
		if err := guardApp.RunOnce(ctx, task); err != nil {
			logger.Error("任务执行失败", zap.String("task", task), zap.Error(err))
			os.Exit(1)
		}
		logger.Info("任务执行完成", zap.String("task", task))
		return
	}

	if err := guardApp.Run(ctx); err != nil {
		logger.Error("系统运行异常", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("系统已安全退出")
}
