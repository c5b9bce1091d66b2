package delist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/okx"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/retry"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/store"
)

// ProtectExchange 是防护流程所需的交易所能力子集。
type ProtectExchange interface {
	PendingAlgoOrders(ctx context.Context, side string) ([]okx.AlgoOrder, error)
	CancelAlgoOrders(ctx context.Context, refs []okx.AlgoRef) ([]okx.CancelResult, error)
	PendingLimitOrders(ctx context.Context, side string) ([]okx.PendingOrder, error)
	CancelOrder(ctx context.Context, instID, ordID string) error
	Balances(ctx context.Context, ccy string) ([]okx.Balance, error)
	PlaceMarketSell(ctx context.Context, instID, sz string) (string, error)
}

// CancelFailure 记录一张未能撤销的委托。
type CancelFailure struct {
	InstID string
	ID     string
	Reason string
}

// ProtectionReport 汇总防护流程各步骤的结果。
type ProtectionReport struct {
	InstID          string
	AlgosCancelled  int
	AlgoFailures    []CancelFailure
	LimitsCancelled int
	LimitFailures   []CancelFailure
	SoldSz          string
	SellOrdID       string
	Blacklisted     bool
	LimitRemoved    bool
}

// Protector 执行单个交易对的下架防护。
type Protector struct {
	exchange  ProtectExchange
	store     *store.Store
	retrier   *retry.Controller
	logger    *zap.Logger
	batchSize int
	delay     time.Duration
}

// NewProtector 创建防护执行器。batchSize 不得超过交易所批量撤单上限。
func NewProtector(exchange ProtectExchange, st *store.Store, retrier *retry.Controller, batchSize int, delay time.Duration, logger *zap.Logger) *Protector {
	if batchSize <= 0 || batchSize > okx.MaxCancelBatch {
		batchSize = okx.MaxCancelBatch
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Protector{
		exchange:  exchange,
		store:     st,
		retrier:   retrier,
		logger:    logger,
		batchSize: batchSize,
		delay:     delay,
	}
}

// Protect 对受下架影响的交易对执行完整防护流程。
// 各步骤独立推进：前一步失败不阻止后续步骤，所有失败在返回值中汇总。
func (p *Protector) Protect(ctx context.Context, instID, reason string) (ProtectionReport, error) {
	report := ProtectionReport{InstID: instID}
	var errs []error

	p.logger.Warn("开始下架防护",
		zap.String("instId", instID),
		zap.String("reason", reason),
	)

	if err := p.cancelAlgos(ctx, instID, &report); err != nil {
		errs = append(errs, fmt.Errorf("撤触发单: %w", err))
	}
	if err := retry.Wait(ctx, p.delay); err != nil {
		return report, err
	}

	if err := p.cancelLimitBuys(ctx, instID, &report); err != nil {
		errs = append(errs, fmt.Errorf("撤限价买单: %w", err))
	}
	if err := retry.Wait(ctx, p.delay); err != nil {
		return report, err
	}

	if err := p.sellHoldings(ctx, instID, &report); err != nil {
		errs = append(errs, fmt.Errorf("清仓: %w", err))
	}

	if err := p.store.AddToBlacklist(ctx, instID, reason); err != nil {
		errs = append(errs, fmt.Errorf("拉黑: %w", err))
	} else {
		report.Blacklisted = true
	}

	if err := p.store.RemoveLimit(ctx, instID); err != nil {
		errs = append(errs, fmt.Errorf("移出抄底配置: %w", err))
	} else {
		report.LimitRemoved = true
	}

	p.logger.Info("下架防护完成",
		zap.String("instId", instID),
		zap.Int("algosCancelled", report.AlgosCancelled),
		zap.Int("algoFailures", len(report.AlgoFailures)),
		zap.Int("limitsCancelled", report.LimitsCancelled),
		zap.Int("limitFailures", len(report.LimitFailures)),
		zap.String("soldSz", report.SoldSz),
		zap.Bool("blacklisted", report.Blacklisted),
	)
	return report, errors.Join(errs...)
}

// cancelAlgos 分批撤销该交易对的全部挂起触发单。
// 某一批失败时记入失败列表并继续处理其余批次。
func (p *Protector) cancelAlgos(ctx context.Context, instID string, report *ProtectionReport) error {
	var pending []okx.AlgoOrder
	err := p.retrier.Do(ctx, "pending_algo_orders", func() error {
		var qErr error
		pending, qErr = p.exchange.PendingAlgoOrders(ctx, "")
		return qErr
	})
	if err != nil {
		return err
	}

	var refs []okx.AlgoRef
	for _, o := range pending {
		if o.InstID == instID {
			refs = append(refs, okx.AlgoRef{InstID: o.InstID, AlgoID: o.AlgoID})
		}
	}
	if len(refs) == 0 {
		return nil
	}

	for start := 0; start < len(refs); start += p.batchSize {
		end := start + p.batchSize
		if end > len(refs) {
			end = len(refs)
		}
		chunk := refs[start:end]

		var results []okx.CancelResult
		err := p.retrier.Do(ctx, "cancel_algo_orders", func() error {
			var cErr error
			results, cErr = p.exchange.CancelAlgoOrders(ctx, chunk)
			return cErr
		})
		if err != nil {
			for _, ref := range chunk {
				report.AlgoFailures = append(report.AlgoFailures, CancelFailure{
					InstID: ref.InstID, ID: ref.AlgoID, Reason: err.Error(),
				})
			}
			continue
		}
		for _, res := range results {
			if res.OK {
				report.AlgosCancelled++
			} else {
				report.AlgoFailures = append(report.AlgoFailures, CancelFailure{
					InstID: res.Ref.InstID, ID: res.Ref.AlgoID, Reason: res.Reason,
				})
			}
		}

		if end < len(refs) {
			if err := retry.Wait(ctx, p.delay); err != nil {
				return err
			}
		}
	}

	if len(report.AlgoFailures) > 0 {
		return fmt.Errorf("%d 张触发单未能撤销", len(report.AlgoFailures))
	}
	return nil
}

// cancelLimitBuys 逐张撤销该交易对的挂起限价买单。
func (p *Protector) cancelLimitBuys(ctx context.Context, instID string, report *ProtectionReport) error {
	var pending []okx.PendingOrder
	err := p.retrier.Do(ctx, "pending_limit_orders", func() error {
		var qErr error
		pending, qErr = p.exchange.PendingLimitOrders(ctx, okx.SideBuy)
		return qErr
	})
	if err != nil {
		return err
	}

	for _, o := range pending {
		if o.InstID != instID {
			continue
		}
		ordID := o.OrdID
		cErr := p.retrier.Do(ctx, "cancel_order", func() error {
			return p.exchange.CancelOrder(ctx, instID, ordID)
		})
		if cErr != nil {
			report.LimitFailures = append(report.LimitFailures, CancelFailure{
				InstID: instID, ID: ordID, Reason: cErr.Error(),
			})
		} else {
			report.LimitsCancelled++
		}
		if err := retry.Wait(ctx, p.delay); err != nil {
			return err
		}
	}

	if len(report.LimitFailures) > 0 {
		return fmt.Errorf("%d 张限价买单未能撤销", len(report.LimitFailures))
	}
	return nil
}

// sellHoldings 市价卖出该交易对基础币种的全部可用余额。
func (p *Protector) sellHoldings(ctx context.Context, instID string, report *ProtectionReport) error {
	ccy, _, found := strings.Cut(instID, "-")
	if !found {
		return fmt.Errorf("instId 非法: %s", instID)
	}

	var balances []okx.Balance
	err := p.retrier.Do(ctx, "account_balances", func() error {
		var qErr error
		balances, qErr = p.exchange.Balances(ctx, ccy)
		return qErr
	})
	if err != nil {
		return err
	}

	avail := decimal.Zero
	for _, b := range balances {
		if b.Ccy != ccy || b.AvailBal == "" {
			continue
		}
		v, parseErr := decimal.NewFromString(b.AvailBal)
		if parseErr != nil {
			return fmt.Errorf("可用余额非法 %q: %w", b.AvailBal, parseErr)
		}
		avail = v
	}
	if !avail.IsPositive() {
		return nil
	}

	sz := avail.String()
	err = p.retrier.Do(ctx, "place_market_sell", func() error {
		var sellErr error
		report.SellOrdID, sellErr = p.exchange.PlaceMarketSell(ctx, instID, sz)
		return sellErr
	})
	if err != nil {
		return err
	}
	report.SoldSz = sz
	return nil
}
