package placement

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/okx"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/precision"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/retry"
)

// Engine 是下单引擎：校验意图、取规则与现价、归一化、选择下单路径并执行。
type Engine struct {
	exchange Exchange
	rules    *RulesCache
	retrier  *retry.Controller
	logger   *zap.Logger

	// OnPlaced 在每次下单成功后回调，用于监控埋点。
	OnPlaced func(Result)
}

// NewEngine 创建下单引擎。
func NewEngine(exchange Exchange, rules *RulesCache, retrier *retry.Controller, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		exchange: exchange,
		rules:    rules,
		retrier:  retrier,
		logger:   logger,
	}
}

// Place 执行一次下单意图。
//
// 路径选择：仅当买入且现价严格低于目标价时立即挂限价单，
// 其余情况（含现价等于目标价）一律挂触发委托。现价查询失败时
// 不做任何猜测，直接返回错误。
func (e *Engine) Place(ctx context.Context, intent Intent) (Result, error) {
	if err := intent.validate(); err != nil {
		return Result{}, err
	}

	rules := e.lookupRules(ctx, intent.InstID)

	lastPx, err := e.lastPrice(ctx, intent.InstID)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrPriceUnavailable, intent.InstID, err)
	}

	normalized, err := precision.Normalize(intent.TargetPx, intent.quantity(), rules)
	if err != nil {
		return Result{}, fmt.Errorf("%s 归一化失败: %w", intent.InstID, err)
	}

	decision := DecisionConditional
	if intent.Side == okx.SideBuy && lastPx.LessThan(normalized.Px) {
		decision = DecisionImmediate
	}

	result := Result{
		InstID:   intent.InstID,
		Decision: decision,
		Px:       normalized.PxString(),
		Sz:       normalized.SzString(),
	}

	switch decision {
	case DecisionImmediate:
		err = e.retrier.Do(ctx, "place_limit_order", func() error {
			var placeErr error
			result.OrderID, placeErr = e.exchange.PlaceLimitOrder(ctx, intent.InstID, intent.Side, result.Px, result.Sz)
			return placeErr
		})
	case DecisionConditional:
		req := okx.TriggerOrderRequest{
			InstID:    intent.InstID,
			Side:      intent.Side,
			Sz:        result.Sz,
			TriggerPx: result.Px,
			OrderPx:   result.Px,
		}
		err = e.retrier.Do(ctx, "place_trigger_order", func() error {
			var placeErr error
			result.OrderID, placeErr = e.exchange.PlaceTriggerOrder(ctx, req)
			return placeErr
		})
	}
	if err != nil {
		return Result{}, err
	}

	e.logger.Info("下单成功",
		zap.String("instId", intent.InstID),
		zap.String("side", intent.Side),
		zap.String("decision", string(decision)),
		zap.String("px", result.Px),
		zap.String("sz", result.Sz),
		zap.String("orderId", result.OrderID),
	)
	if e.OnPlaced != nil {
		e.OnPlaced(result)
	}
	return result, nil
}

// lookupRules 取交易规则；取不到时退回量级启发式而不是放弃下单。
func (e *Engine) lookupRules(ctx context.Context, instID string) *precision.Rules {
	rules, err := e.rules.Get(ctx, instID)
	if err != nil {
		e.logger.Warn("交易规则不可得，按量级启发式归一化",
			zap.String("instId", instID),
			zap.Error(err),
		)
		return nil
	}
	return &rules
}

func (e *Engine) lastPrice(ctx context.Context, instID string) (decimal.Decimal, error) {
	var raw string
	err := e.retrier.Do(ctx, "get_last_price", func() error {
		var qErr error
		raw, qErr = e.exchange.GetLastPrice(ctx, instID)
		return qErr
	})
	if err != nil {
		return decimal.Zero, err
	}
	px, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("现价解析失败 %q: %w", raw, err)
	}
	if !px.IsPositive() {
		return decimal.Zero, fmt.Errorf("现价非正: %s", raw)
	}
	return px, nil
}
