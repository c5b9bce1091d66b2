// Package lifecycle 管理买单成交后的持仓生命周期：
// 同步成交、挂出止盈触发卖单、到期市价卖出、清理残值过低的触发单。
package lifecycle

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/okx"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/retry"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/store"
)

// fillsLookback 为每轮成交同步回看的时间窗口。
const fillsLookback = time.Hour

// TrackerExchange 是成交跟踪所需的交易所能力子集。
type TrackerExchange interface {
	FilledBuyOrders(ctx context.Context, begin, end time.Time, limit int) ([]okx.FilledOrder, error)
	PlaceTriggerOrder(ctx context.Context, req okx.TriggerOrderRequest) (string, error)
}

// Tracker 同步近期买单成交：落库、设定卖出期限，
// 并为新成交挂出按买价加成的止盈触发卖单。
type Tracker struct {
	exchange TrackerExchange
	store    *store.Store
	retrier  *retry.Controller
	logger   *zap.Logger

	markup        decimal.Decimal
	holdingWindow time.Duration
	delay         time.Duration
	now           func() time.Time
}

// NewTracker 创建成交跟踪器。markup 为止盈倍数（1.20 = +20%）。
func NewTracker(exchange TrackerExchange, st *store.Store, retrier *retry.Controller, markup float64, holdingWindow, delay time.Duration, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		exchange:      exchange,
		store:         st,
		retrier:       retrier,
		logger:        logger,
		markup:        decimal.NewFromFloat(markup),
		holdingWindow: holdingWindow,
		delay:         delay,
		now:           time.Now,
	}
}

// SyncFills 拉取回看窗口内的成交并逐笔处理。
// 单笔失败记日志后继续，不影响其余成交。
func (t *Tracker) SyncFills(ctx context.Context) error {
	now := t.now()

	var fills []okx.FilledOrder
	err := t.retrier.Do(ctx, "filled_orders", func() error {
		var qErr error
		fills, qErr = t.exchange.FilledBuyOrders(ctx, now.Add(-fillsLookback), now, 100)
		return qErr
	})
	if err != nil {
		return fmt.Errorf("拉取成交失败: %w", err)
	}

	var failed int
	for i, fill := range fills {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.trackOne(ctx, fill); err != nil {
			failed++
			t.logger.Error("处理成交失败",
				zap.String("ordId", fill.OrdID),
				zap.String("instId", fill.InstID),
				zap.Error(err),
			)
		}
		if i < len(fills)-1 {
			if err := retry.Wait(ctx, t.delay); err != nil {
				return err
			}
		}
	}

	t.logger.Info("成交同步完成",
		zap.Int("total", len(fills)),
		zap.Int("failed", failed),
	)
	if failed > 0 {
		return fmt.Errorf("成交同步有 %d 笔失败", failed)
	}
	return nil
}

func (t *Tracker) trackOne(ctx context.Context, fill okx.FilledOrder) error {
	fillTime, err := parseMillis(fill.Timestamp())
	if err != nil {
		return fmt.Errorf("成交时间非法: %w", err)
	}

	existing, err := t.store.GetFilledOrder(ctx, fill.OrdID)
	if err != nil {
		return err
	}

	px := fill.AvgPx
	if px == "" {
		px = fill.FillPx
	}
	sz := fill.AccFillSz
	if sz == "" {
		sz = fill.FillSz
	}

	rec := store.FilledOrderRecord{
		OrdID:    fill.OrdID,
		InstID:   fill.InstID,
		FillPx:   px,
		FillSz:   sz,
		FillTime: fillTime,
		SellTime: fillTime.Add(t.holdingWindow),
	}
	if err := t.store.UpsertFilledOrder(ctx, rec); err != nil {
		return err
	}

	// 已见过的成交不重复挂止盈单。
	if existing != nil {
		return nil
	}
	return t.placeTakeProfit(ctx, rec)
}

// placeTakeProfit 按买价加成挂触发卖单，触发后按市价执行。
func (t *Tracker) placeTakeProfit(ctx context.Context, rec store.FilledOrderRecord) error {
	buyPx, err := decimal.NewFromString(rec.FillPx)
	if err != nil || !buyPx.IsPositive() {
		return fmt.Errorf("买入均价非法 %q", rec.FillPx)
	}

	triggerPx := buyPx.Mul(t.markup)
	req := okx.TriggerOrderRequest{
		InstID:    rec.InstID,
		Side:      okx.SideSell,
		Sz:        rec.FillSz,
		TriggerPx: triggerPx.String(),
		OrderPx:   "-1",
	}

	var algoID string
	err = t.retrier.Do(ctx, "place_trigger_order", func() error {
		var placeErr error
		algoID, placeErr = t.exchange.PlaceTriggerOrder(ctx, req)
		return placeErr
	})
	if err != nil {
		return fmt.Errorf("挂止盈触发单失败: %w", err)
	}

	t.logger.Info("止盈触发单已挂出",
		zap.String("instId", rec.InstID),
		zap.String("ordId", rec.OrdID),
		zap.String("triggerPx", req.TriggerPx),
		zap.String("sz", req.Sz),
		zap.String("algoId", algoID),
	)
	return nil
}

func parseMillis(ms string) (time.Time, error) {
	n, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("毫秒时间戳 %q: %w", ms, err)
	}
	return time.UnixMilli(n).UTC(), nil
}
