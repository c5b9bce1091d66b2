package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/okx"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/retry"
)

// SweeperExchange 是触发单清理所需的交易所能力子集。
type SweeperExchange interface {
	PendingAlgoOrders(ctx context.Context, side string) ([]okx.AlgoOrder, error)
	Balances(ctx context.Context, ccy string) ([]okx.Balance, error)
	CancelAlgoOrders(ctx context.Context, refs []okx.AlgoRef) ([]okx.CancelResult, error)
}

// Sweeper 清理余额美元价值过低的触发卖单。
// 持仓被止盈或到期卖出后，残留的触发卖单已无意义且占用委托额度。
type Sweeper struct {
	exchange   SweeperExchange
	retrier    *retry.Controller
	logger     *zap.Logger
	minKeepUSD decimal.Decimal
	delay      time.Duration
}

// NewSweeper 创建触发单清理任务。
func NewSweeper(exchange SweeperExchange, retrier *retry.Controller, minKeepUSD float64, delay time.Duration, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		exchange:   exchange,
		retrier:    retrier,
		logger:     logger,
		minKeepUSD: decimal.NewFromFloat(minKeepUSD),
		delay:      delay,
	}
}

// Sweep 遍历挂起的触发卖单，撤销底仓价值低于阈值的委托。
func (s *Sweeper) Sweep(ctx context.Context) error {
	var pending []okx.AlgoOrder
	err := s.retrier.Do(ctx, "pending_algo_orders", func() error {
		var qErr error
		pending, qErr = s.exchange.PendingAlgoOrders(ctx, okx.SideSell)
		return qErr
	})
	if err != nil {
		return fmt.Errorf("拉取触发卖单失败: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	var cancelled, failed int
	for i, order := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		ok, sweepErr := s.sweepOne(ctx, order)
		switch {
		case sweepErr != nil:
			failed++
			s.logger.Error("清理触发单失败",
				zap.String("instId", order.InstID),
				zap.String("algoId", order.AlgoID),
				zap.Error(sweepErr),
			)
		case ok:
			cancelled++
		}

		if i < len(pending)-1 {
			if err := retry.Wait(ctx, s.delay); err != nil {
				return err
			}
		}
	}

	s.logger.Info("触发单清理完成",
		zap.Int("pending", len(pending)),
		zap.Int("cancelled", cancelled),
		zap.Int("failed", failed),
	)
	if failed > 0 {
		return fmt.Errorf("触发单清理有 %d 项失败", failed)
	}
	return nil
}

// sweepOne 判断并撤销单张触发卖单，返回是否实际撤销。
func (s *Sweeper) sweepOne(ctx context.Context, order okx.AlgoOrder) (bool, error) {
	ccy := baseCurrency(order.InstID)
	if ccy == "" {
		return false, fmt.Errorf("instId 非法: %s", order.InstID)
	}

	var balances []okx.Balance
	err := s.retrier.Do(ctx, "account_balances", func() error {
		var qErr error
		balances, qErr = s.exchange.Balances(ctx, ccy)
		return qErr
	})
	if err != nil {
		return false, err
	}

	eqUSD := decimal.Zero
	for _, b := range balances {
		if b.Ccy != ccy || b.EqUsd == "" {
			continue
		}
		v, parseErr := decimal.NewFromString(b.EqUsd)
		if parseErr != nil {
			return false, fmt.Errorf("余额价值非法 %q: %w", b.EqUsd, parseErr)
		}
		eqUSD = v
	}
	if eqUSD.GreaterThanOrEqual(s.minKeepUSD) {
		return false, nil
	}

	refs := []okx.AlgoRef{{InstID: order.InstID, AlgoID: order.AlgoID}}
	var results []okx.CancelResult
	err = s.retrier.Do(ctx, "cancel_algo_orders", func() error {
		var cErr error
		results, cErr = s.exchange.CancelAlgoOrders(ctx, refs)
		return cErr
	})
	if err != nil {
		return false, err
	}
	if len(results) == 0 || !results[0].OK {
		reason := "响应为空"
		if len(results) > 0 {
			reason = results[0].Reason
		}
		return false, fmt.Errorf("撤销被拒: %s", reason)
	}

	s.logger.Info("已清理残值触发单",
		zap.String("instId", order.InstID),
		zap.String("algoId", order.AlgoID),
		zap.String("eqUsd", eqUSD.String()),
	)
	return true, nil
}

// baseCurrency 从 instId（如 OKB-USDT）提取基础币种。
func baseCurrency(instID string) string {
	base, _, found := strings.Cut(instID, "-")
	if !found {
		return ""
	}
	return base
}
