package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/config"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/store"
)

// App 聚合核心依赖并驱动系统生命周期。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
}

// New 创建 App 实例。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
}

// RunOnce 执行单个任务后退出，供 cron 等外部调度使用。
func (a *App) RunOnce(ctx context.Context, task string) error {
	registry := prometheus.NewRegistry()
	orch, err := newOrchestrator(a.cfg, a.logger, a.store, registry)
	if err != nil {
		return err
	}
	return orch.RunTask(ctx, task)
}

// Run 以常驻模式运行：各任务按各自节奏循环，直到收到退出信号。
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("下架防护系统已初始化",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("baseUrl", a.cfg.OKX.BaseURL),
		zap.Bool("simulated", a.cfg.OKX.Simulated),
		zap.Strings("currencies", a.cfg.Protection.Currencies),
	)

	registry := prometheus.NewRegistry()
	orch, err := newOrchestrator(a.cfg, a.logger, a.store, registry)
	if err != nil {
		return err
	}

	if a.cfg.Status.Enabled {
		if err := startStatusServer(ctx, orch.monitor, registry, a.cfg.Status.Port, a.logger); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(a.loop(ctx, orch, TaskWatch, a.cfg.Scheduler.MonitorInterval))
	g.Go(a.loop(ctx, orch, TaskCreateTriggers, a.cfg.Scheduler.TriggersInterval))
	g.Go(a.loop(ctx, orch, TaskTrackFills, a.cfg.Scheduler.FillsInterval))
	g.Go(a.loop(ctx, orch, TaskAutoSell, a.cfg.Scheduler.SellInterval))
	g.Go(a.loop(ctx, orch, TaskSweep, a.cfg.Scheduler.SweepInterval))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("系统异常退出: %w", err)
	}
	a.logger.Info("系统收到退出信号，正在停止")
	return nil
}

// loop 先立即执行一次任务，之后按固定间隔循环。
// 单轮失败只记日志，不中止循环。
func (a *App) loop(ctx context.Context, orch *orchestrator, task string, interval time.Duration) func() error {
	return func() error {
		if err := orch.RunTask(ctx, task); err != nil && ctx.Err() == nil {
			a.logger.Error("任务执行失败",
				zap.String("task", task),
				zap.Error(err),
			)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := orch.RunTask(ctx, task); err != nil && ctx.Err() == nil {
					a.logger.Error("任务执行失败",
						zap.String("task", task),
						zap.Error(err),
					)
				}
			}
		}
	}
}
