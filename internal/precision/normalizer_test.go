package precision

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func mustRules(t *testing.T, tick, lot, min string) *Rules {
	t.Helper()
	r, err := ParseRules("TEST-USDT", tick, lot, min)
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	return &r
}

func TestNormalizeWithRules(t *testing.T) {
	cases := []struct {
		name   string
		tick   string
		lot    string
		min    string
		px     string
		sz     string
		wantPx string
		wantSz string
	}{
		{"整数倍不变", "0.5", "1", "1", "100", "12", "100", "12"},
		{"价格四舍五入到tick", "0.5", "1", "1", "100.3", "12", "100.5", "12"},
		{"价格半数向上", "0.5", "1", "1", "100.25", "12", "100.5", "12"},
		{"数量向下截断", "0.5", "1", "1", "100", "12.37", "100", "12"},
		{"小数lot截断", "0.0001", "0.01", "0.01", "1.23456", "3.456789", "1.2346", "3.45"},
		{"极小tick", "0.000001", "1", "1", "0.0000015", "100", "0.000002", "100"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rules := mustRules(t, tc.tick, tc.lot, tc.min)
			got, err := Normalize(decimal.RequireFromString(tc.px), decimal.RequireFromString(tc.sz), rules)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if got.PxString() != tc.wantPx {
				t.Errorf("px = %s, want %s", got.PxString(), tc.wantPx)
			}
			if got.SzString() != tc.wantSz {
				t.Errorf("sz = %s, want %s", got.SzString(), tc.wantSz)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	rules := mustRules(t, "0.05", "0.1", "0.1")

	first, err := Normalize(decimal.RequireFromString("3.1337"), decimal.RequireFromString("7.777"), rules)
	if err != nil {
		t.Fatalf("第一次归一化: %v", err)
	}
	second, err := Normalize(first.Px, first.Sz, rules)
	if err != nil {
		t.Fatalf("第二次归一化: %v", err)
	}

	if !second.Px.Equal(first.Px) || !second.Sz.Equal(first.Sz) {
		t.Errorf("归一化不幂等: (%s,%s) -> (%s,%s)", first.Px, first.Sz, second.Px, second.Sz)
	}
}

func TestNormalizeNeverRoundsSizeUp(t *testing.T) {
	rules := mustRules(t, "0.01", "0.001", "0.001")
	raw := decimal.RequireFromString("0.999999")

	got, err := Normalize(decimal.RequireFromString("1"), raw, rules)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got.Sz.GreaterThan(raw) {
		t.Errorf("数量被向上凑整: %s > %s", got.Sz, raw)
	}
}

func TestNormalizeRejections(t *testing.T) {
	t.Run("数量低于最小下单量", func(t *testing.T) {
		rules := mustRules(t, "0.01", "1", "5")
		_, err := Normalize(decimal.RequireFromString("10"), decimal.RequireFromString("4.9"), rules)
		if !errors.Is(err, ErrSizeBelowMin) {
			t.Fatalf("err = %v, want ErrSizeBelowMin", err)
		}
	})

	t.Run("粗tick导致价格归零", func(t *testing.T) {
		rules := mustRules(t, "1", "1", "1")
		_, err := Normalize(decimal.RequireFromString("0.3"), decimal.RequireFromString("10"), rules)
		if !errors.Is(err, ErrInvalidPrice) {
			t.Fatalf("err = %v, want ErrInvalidPrice", err)
		}
	})

	t.Run("非正入参", func(t *testing.T) {
		rules := mustRules(t, "0.01", "1", "1")
		_, err := Normalize(decimal.Zero, decimal.RequireFromString("1"), rules)
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("err = %v, want ErrInvalidInput", err)
		}
	})
}

func TestNormalizeFallback(t *testing.T) {
	cases := []struct {
		name   string
		px     string
		sz     string
		wantPx string
		wantSz string
	}{
		{"常规价格4位", "12.345678", "3.456789", "12.3457", "3.4567"},
		{"低价6位", "0.00123456789", "0.00234567", "0.001235", "0.002345"},
		{"极低价9位", "0.0000012345678", "0.0000123456789", "0.000001235", "0.00001234"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(decimal.RequireFromString(tc.px), decimal.RequireFromString(tc.sz), nil)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if got.PxString() != tc.wantPx {
				t.Errorf("px = %s, want %s", got.PxString(), tc.wantPx)
			}
			if got.SzString() != tc.wantSz {
				t.Errorf("sz = %s, want %s", got.SzString(), tc.wantSz)
			}
		})
	}
}

func TestParseRulesValidation(t *testing.T) {
	if _, err := ParseRules("X-USDT", "0", "1", "1"); !errors.Is(err, ErrInvalidRules) {
		t.Errorf("tickSz=0 应被拒绝, err = %v", err)
	}
	if _, err := ParseRules("X-USDT", "0.1", "1", "0.5"); !errors.Is(err, ErrInvalidRules) {
		t.Errorf("minSz<lotSz 应被拒绝, err = %v", err)
	}
	if _, err := ParseRules("X-USDT", "abc", "1", "1"); !errors.Is(err, ErrInvalidRules) {
		t.Errorf("非法tickSz 应被拒绝, err = %v", err)
	}
}
