package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/config"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/delist"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/lifecycle"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/monitor"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/okx"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/placement"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/precision"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/retry"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/store"
)

// 可独立调度的任务名，供 -task 参数与常驻循环共用。
const (
	TaskCreateTriggers = "create-triggers"
	TaskTrackFills     = "track-fills"
	TaskAutoSell       = "auto-sell"
	TaskSweep          = "sweep"
	TaskWatch          = "watch"
)

// orchestrator 装配全部业务组件并按任务名分发执行。
// 所有任务共用 mu 互斥，常驻模式下多条循环并发触达时
// 任意时刻至多一个任务在调用交易所。
type orchestrator struct {
	mu sync.Mutex

	creator *placement.TriggerCreator
	tracker *lifecycle.Tracker
	seller  *lifecycle.Seller
	sweeper *lifecycle.Sweeper
	watcher *delist.Watcher

	store   *store.Store
	monitor *monitor.Service
	logger  *zap.Logger
}

func newOrchestrator(cfg *config.Config, logger *zap.Logger, st *store.Store, registry *prometheus.Registry) (*orchestrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := okx.NewClient(cfg.OKX, logger)
	retrier := retry.New(retry.FromConfig(cfg.Retry), okx.IsRetryable, logger)

	rulesCache := placement.NewRulesCache(func(ctx context.Context, instID string) (precision.Rules, error) {
		var inst okx.Instrument
		err := retrier.Do(ctx, "get_instrument", func() error {
			var qErr error
			inst, qErr = client.GetInstrument(ctx, instID)
			return qErr
		})
		if err != nil {
			return precision.Rules{}, err
		}
		return precision.ParseRules(inst.InstID, inst.TickSz, inst.LotSz, inst.MinSz)
	}, cfg.Order.RulesCacheTTL, logger)

	engine := placement.NewEngine(client, rulesCache, retrier, logger)
	creator := placement.NewTriggerCreator(engine, client, retrier, cfg.Order.NotionalUSD, cfg.Order.InterCallDelay, logger)

	tracker := lifecycle.NewTracker(client, st, retrier, cfg.Order.TriggerSellMarkup, cfg.Order.HoldingWindow, cfg.Order.InterCallDelay, logger)
	seller := lifecycle.NewSeller(client, st, retrier, cfg.Order.InterCallDelay, logger)
	sweeper := lifecycle.NewSweeper(client, retrier, cfg.Order.MinKeepUSD, cfg.Order.InterCallDelay, logger)

	matcher := delist.NewMatcher(cfg.Protection.Currencies, cfg.Protection.QuoteCcy)
	protector := delist.NewProtector(client, st, retrier, cfg.Protection.CancelBatchSize, cfg.Order.InterCallDelay, logger)
	watcher := delist.NewWatcher(client, st, matcher, protector, retrier, logger)

	metrics := monitor.NewMetrics(registry)
	monitorSvc, err := monitor.NewService(st, metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化监控服务失败: %w", err)
	}

	engine.OnPlaced = func(result placement.Result) {
		monitorSvc.RecordOrderPlaced(context.Background(), result)
	}
	watcher.OnProtection = func(report delist.ProtectionReport) {
		monitorSvc.RecordProtection(context.Background(), report)
	}
	seller.OnSold = func(rec store.FilledOrderRecord, sellOrdID string) {
		monitorSvc.RecordAutoSell(context.Background(), monitor.AutoSellPayload{
			InstID:    rec.InstID,
			OrdID:     rec.OrdID,
			Sz:        rec.FillSz,
			SellOrdID: sellOrdID,
		})
	}

	return &orchestrator{
		creator: creator,
		tracker: tracker,
		seller:  seller,
		sweeper: sweeper,
		watcher: watcher,
		store:   st,
		monitor: monitorSvc,
		logger:  logger,
	}, nil
}

// RunTask 按任务名执行一轮，任务之间串行执行。未知任务名返回错误。
func (o *orchestrator) RunTask(ctx context.Context, task string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch task {
	case TaskCreateTriggers:
		return o.createTriggers(ctx)
	case TaskTrackFills:
		return o.trackFills(ctx)
	case TaskAutoSell:
		return o.autoSell(ctx)
	case TaskSweep:
		return o.sweep(ctx)
	case TaskWatch:
		return o.watch(ctx)
	default:
		return fmt.Errorf("未知任务: %q", task)
	}
}

func (o *orchestrator) createTriggers(ctx context.Context) error {
	rows, err := o.store.Limits(ctx)
	if err != nil {
		o.monitor.RecordError(ctx, "读取抄底配置失败", err, nil)
		return err
	}
	if len(rows) == 0 {
		o.logger.Info("抄底配置为空，跳过创建触发单")
		return nil
	}

	limits := make([]placement.Limit, 0, len(rows))
	for _, row := range rows {
		limits = append(limits, placement.Limit{InstID: row.InstID, Coefficient: row.Coefficient})
	}

	blacklist, err := o.store.BlacklistSet(ctx)
	if err != nil {
		o.monitor.RecordError(ctx, "读取黑名单失败", err, nil)
		return err
	}

	tally, err := o.creator.CreateAll(ctx, limits, func(instID string) bool {
		return blacklist[instID]
	})
	o.monitor.RecordBatchRun(ctx, tally)
	if err != nil {
		return err
	}
	return tally.Err()
}

func (o *orchestrator) trackFills(ctx context.Context) error {
	if err := o.tracker.SyncFills(ctx); err != nil {
		o.monitor.RecordError(ctx, "成交同步失败", err, nil)
		return err
	}
	return nil
}

func (o *orchestrator) autoSell(ctx context.Context) error {
	if err := o.seller.SellDue(ctx); err != nil {
		o.monitor.RecordError(ctx, "到期卖出失败", err, nil)
		return err
	}
	return nil
}

func (o *orchestrator) sweep(ctx context.Context) error {
	if err := o.sweeper.Sweep(ctx); err != nil {
		o.monitor.RecordError(ctx, "触发单清理失败", err, nil)
		return err
	}
	return nil
}

func (o *orchestrator) watch(ctx context.Context) error {
	if err := o.watcher.Poll(ctx); err != nil {
		o.monitor.RecordError(ctx, "公告检查失败", err, nil)
		return err
	}
	return nil
}
