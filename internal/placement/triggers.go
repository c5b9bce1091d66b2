package placement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/okx"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/retry"
)

// Limit 为单个交易对的抄底参数：目标价 = 当日开盘价 × Coefficient / 100。
type Limit struct {
	InstID      string
	Coefficient float64
}

// Tally 汇总一轮批量创建的结果。黑名单跳过不计入失败。
type Tally struct {
	Placed  int
	Skipped int
	Failed  int
	Errors  []error
}

// Err 将逐项失败折叠为单个错误，无失败时返回 nil。
func (t Tally) Err() error {
	if t.Failed == 0 {
		return nil
	}
	return fmt.Errorf("批量创建触发单有 %d 项失败: %w", t.Failed, errors.Join(t.Errors...))
}

// TriggerCreator 按限价表批量创建触发买单。
// 交易所调用串行执行，调用间保持固定间隔以避开限速。
type TriggerCreator struct {
	engine      *Engine
	exchange    Exchange
	retrier     *retry.Controller
	logger      *zap.Logger
	notionalUSD decimal.Decimal
	delay       time.Duration
}

// NewTriggerCreator 创建批量触发单任务。
func NewTriggerCreator(engine *Engine, exchange Exchange, retrier *retry.Controller, notionalUSD float64, delay time.Duration, logger *zap.Logger) *TriggerCreator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TriggerCreator{
		engine:      engine,
		exchange:    exchange,
		retrier:     retrier,
		logger:      logger,
		notionalUSD: decimal.NewFromFloat(notionalUSD),
		delay:       delay,
	}
}

// CreateAll 逐个交易对创建触发买单。单项失败记入 Tally 后继续，
// 不会中断其余交易对。
func (c *TriggerCreator) CreateAll(ctx context.Context, limits []Limit, blacklisted func(instID string) bool) (Tally, error) {
	var tally Tally

	for i, limit := range limits {
		if err := ctx.Err(); err != nil {
			return tally, err
		}

		if blacklisted != nil && blacklisted(limit.InstID) {
			c.logger.Info("跳过黑名单交易对", zap.String("instId", limit.InstID))
			tally.Skipped++
			continue
		}

		if err := c.createOne(ctx, limit); err != nil {
			tally.Failed++
			tally.Errors = append(tally.Errors, fmt.Errorf("%s: %w", limit.InstID, err))
			c.logger.Error("创建触发单失败",
				zap.String("instId", limit.InstID),
				zap.Error(err),
			)
		} else {
			tally.Placed++
		}

		if i < len(limits)-1 {
			if err := retry.Wait(ctx, c.delay); err != nil {
				return tally, err
			}
		}
	}

	c.logger.Info("批量创建触发单完成",
		zap.Int("placed", tally.Placed),
		zap.Int("skipped", tally.Skipped),
		zap.Int("failed", tally.Failed),
	)
	return tally, nil
}

func (c *TriggerCreator) createOne(ctx context.Context, limit Limit) error {
	if limit.Coefficient <= 0 {
		return fmt.Errorf("系数非法: %v", limit.Coefficient)
	}

	var rawOpen string
	err := c.retrier.Do(ctx, "get_daily_open", func() error {
		var qErr error
		rawOpen, qErr = c.exchange.GetDailyOpenPrice(ctx, limit.InstID)
		return qErr
	})
	if err != nil {
		return fmt.Errorf("取日开盘价: %w", err)
	}

	open, err := decimal.NewFromString(rawOpen)
	if err != nil || !open.IsPositive() {
		return fmt.Errorf("日开盘价非法 %q", rawOpen)
	}

	target := open.Mul(decimal.NewFromFloat(limit.Coefficient)).Div(decimal.NewFromInt(100))

	_, err = c.engine.Place(ctx, Intent{
		InstID:    limit.InstID,
		Side:      okx.SideBuy,
		TargetPx:  target,
		BudgetUSD: c.notionalUSD,
	})
	return err
}
