// Package placement 实现下单决策与执行：根据当前价与目标价选择
// 立即限价或条件触发两种入场方式，并负责批量创建护盘触发单。
package placement

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/okx"
)

// Decision 表示下单路径。
type Decision string

const (
	// DecisionImmediate 立即挂出限价单（仅买入且现价严格低于目标价时）。
	DecisionImmediate Decision = "immediate"
	// DecisionConditional 挂出触发委托，等待价格到达目标。
	DecisionConditional Decision = "conditional"
)

// Intent 描述一次下单意图。买入按 BudgetUSD 折算数量，卖出直接给 Sz。
type Intent struct {
	InstID    string
	Side      string
	TargetPx  decimal.Decimal
	BudgetUSD decimal.Decimal
	Sz        decimal.Decimal
}

// Result 为一次下单的结果。
type Result struct {
	InstID   string
	Decision Decision
	OrderID  string
	Px       string
	Sz       string
}

// Exchange 是下单引擎依赖的交易所能力子集。
type Exchange interface {
	GetInstrument(ctx context.Context, instID string) (okx.Instrument, error)
	GetLastPrice(ctx context.Context, instID string) (string, error)
	GetDailyOpenPrice(ctx context.Context, instID string) (string, error)
	PlaceLimitOrder(ctx context.Context, instID, side, px, sz string) (string, error)
	PlaceTriggerOrder(ctx context.Context, req okx.TriggerOrderRequest) (string, error)
}

var (
	// ErrInvalidIntent 表示下单意图缺少必要字段。
	ErrInvalidIntent = errors.New("invalid order intent")
	// ErrPriceUnavailable 表示现价不可得，此时宁可不下单。
	ErrPriceUnavailable = errors.New("last price unavailable")
)

func (i Intent) validate() error {
	if i.InstID == "" {
		return errors.Join(ErrInvalidIntent, errors.New("instId 为空"))
	}
	if i.Side != okx.SideBuy && i.Side != okx.SideSell {
		return errors.Join(ErrInvalidIntent, errors.New("side 非法: "+i.Side))
	}
	if !i.TargetPx.IsPositive() {
		return errors.Join(ErrInvalidIntent, errors.New("目标价必须为正"))
	}
	if i.Side == okx.SideBuy && !i.BudgetUSD.IsPositive() {
		return errors.Join(ErrInvalidIntent, errors.New("买入预算必须为正"))
	}
	if i.Side == okx.SideSell && !i.Sz.IsPositive() {
		return errors.Join(ErrInvalidIntent, errors.New("卖出数量必须为正"))
	}
	return nil
}

// quantity 计算待归一化的原始数量。
func (i Intent) quantity() decimal.Decimal {
	if i.Side == okx.SideBuy {
		return i.BudgetUSD.Div(i.TargetPx)
	}
	return i.Sz
}
