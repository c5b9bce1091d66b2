// Package precision 将目标价格与数量换算为交易所合法的报价增量。
//
// 方向性约定：价格按四舍五入（半数远离零）对齐 tickSz，数量只向下截断
// 对齐 lotSz——宁可少买也不超出名义预算。该不对称是有意为之，不要统一。
package precision

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidPrice 表示按 tickSz 对齐后价格不再为正。
	ErrInvalidPrice = errors.New("invalid adjusted price after tick rounding")
	// ErrSizeBelowMin 表示按 lotSz 截断后数量低于最小下单量。
	ErrSizeBelowMin = errors.New("size too small after lot rounding")
	// ErrInvalidInput 表示入参本身非正。
	ErrInvalidInput = errors.New("price and quantity must be positive")
	// ErrInvalidRules 表示交易规则自身不合法。
	ErrInvalidRules = errors.New("invalid instrument rules")
)

// Rules 为单个交易对的下单规则。
type Rules struct {
	InstID string
	TickSz decimal.Decimal
	LotSz  decimal.Decimal
	MinSz  decimal.Decimal
}

// ParseRules 从十进制字符串构造规则并校验。
// tickSz 与 lotSz 必须严格为正，minSz 不得小于 lotSz。
func ParseRules(instID, tickSz, lotSz, minSz string) (Rules, error) {
	tick, err := decimal.NewFromString(tickSz)
	if err != nil {
		return Rules{}, fmt.Errorf("%w: tickSz %q: %v", ErrInvalidRules, tickSz, err)
	}
	lot, err := decimal.NewFromString(lotSz)
	if err != nil {
		return Rules{}, fmt.Errorf("%w: lotSz %q: %v", ErrInvalidRules, lotSz, err)
	}
	min, err := decimal.NewFromString(minSz)
	if err != nil {
		return Rules{}, fmt.Errorf("%w: minSz %q: %v", ErrInvalidRules, minSz, err)
	}

	if !tick.IsPositive() || !lot.IsPositive() {
		return Rules{}, fmt.Errorf("%w: tickSz=%s lotSz=%s 必须为正", ErrInvalidRules, tick, lot)
	}
	if min.LessThan(lot) {
		return Rules{}, fmt.Errorf("%w: minSz=%s 小于 lotSz=%s", ErrInvalidRules, min, lot)
	}

	return Rules{InstID: instID, TickSz: tick, LotSz: lot, MinSz: min}, nil
}

// NormalizedOrder 为对齐增量后的价格与数量。
type NormalizedOrder struct {
	InstID string
	Px     decimal.Decimal
	Sz     decimal.Decimal
}

// PxString 返回价格的十进制字符串（无指数记法、无多余零）。
func (o NormalizedOrder) PxString() string { return o.Px.String() }

// SzString 返回数量的十进制字符串。
func (o NormalizedOrder) SzString() string { return o.Sz.String() }

// Normalize 按规则对齐价格与数量。rules 为 nil 时退回量级启发式。
// 纯函数，不做任何 I/O。
func Normalize(targetPx, rawSz decimal.Decimal, rules *Rules) (NormalizedOrder, error) {
	if !targetPx.IsPositive() || !rawSz.IsPositive() {
		return NormalizedOrder{}, fmt.Errorf("%w: px=%s sz=%s", ErrInvalidInput, targetPx, rawSz)
	}

	if rules == nil {
		return normalizeFallback(targetPx, rawSz)
	}

	// 价格：取最接近的 tickSz 整数倍，半数远离零。
	px := targetPx.Div(rules.TickSz).Round(0).Mul(rules.TickSz)
	if !px.IsPositive() {
		return NormalizedOrder{}, fmt.Errorf("%w: %s 对齐 tickSz=%s 后为 %s",
			ErrInvalidPrice, targetPx, rules.TickSz, px)
	}

	// 数量：只向下截断到 lotSz 整数倍，绝不向上凑整。
	sz := rawSz.Div(rules.LotSz).Floor().Mul(rules.LotSz)
	if sz.LessThan(rules.MinSz) {
		return NormalizedOrder{}, fmt.Errorf("%w: 截断后数量 %s 低于最小下单量 %s",
			ErrSizeBelowMin, sz, rules.MinSz)
	}

	return NormalizedOrder{InstID: rules.InstID, Px: px, Sz: sz}, nil
}

// normalizeFallback 在规则不可得时按价格量级选取小数位数。
func normalizeFallback(targetPx, rawSz decimal.Decimal) (NormalizedOrder, error) {
	px := targetPx.Round(priceDecimals(targetPx))
	if !px.IsPositive() {
		return NormalizedOrder{}, fmt.Errorf("%w: %s 按量级取整后为 %s", ErrInvalidPrice, targetPx, px)
	}

	sz := rawSz.RoundDown(sizeDecimals(rawSz))
	if !sz.IsPositive() {
		return NormalizedOrder{}, fmt.Errorf("%w: 截断后数量 %s 不为正", ErrSizeBelowMin, sz)
	}

	return NormalizedOrder{Px: px, Sz: sz}, nil
}

func priceDecimals(px decimal.Decimal) int32 {
	switch {
	case px.LessThan(decimal.NewFromFloat(0.00001)):
		return 9
	case px.LessThan(decimal.NewFromFloat(0.01)):
		return 6
	default:
		return 4
	}
}

func sizeDecimals(sz decimal.Decimal) int32 {
	switch {
	case sz.LessThan(decimal.NewFromFloat(0.0001)):
		return 8
	case sz.LessThan(decimal.NewFromFloat(0.01)):
		return 6
	default:
		return 4
	}
}
