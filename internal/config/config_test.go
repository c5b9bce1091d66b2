package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入配置文件: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "app:\n  environment: test\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Order.NotionalUSD != 170.0 {
		t.Errorf("notional_usd = %v, want 170", cfg.Order.NotionalUSD)
	}
	if cfg.Order.HoldingWindow != 20*time.Hour {
		t.Errorf("holding_window = %v, want 20h", cfg.Order.HoldingWindow)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.MinWait != 4*time.Second {
		t.Errorf("retry = %+v", cfg.Retry)
	}
	if cfg.Protection.CancelBatchSize != 10 || cfg.Protection.QuoteCcy != "USDT" {
		t.Errorf("protection = %+v", cfg.Protection)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := writeConfig(t, `
app:
  environment: production
order:
  notional_usd: 50
  holding_window: 6h
protection:
  cancel_batch_size: 5
  currencies:
    - OKB
    - BTC
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Order.NotionalUSD != 50 || cfg.Order.HoldingWindow != 6*time.Hour {
		t.Errorf("order = %+v", cfg.Order)
	}
	if len(cfg.Protection.Currencies) != 2 {
		t.Errorf("currencies = %v", cfg.Protection.Currencies)
	}
}

func TestLoadCredentialsFromEnv(t *testing.T) {
	t.Setenv("OKX_API_KEY", "env-key")
	t.Setenv("OKX_SECRET_KEY", "env-secret")
	t.Setenv("OKX_PASSPHRASE", "env-pass")

	path := writeConfig(t, "app:\n  environment: test\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.OKX.HasCredentials() {
		t.Error("应从环境变量读取凭证")
	}
	if cfg.OKX.APIKey != "env-key" {
		t.Errorf("api_key = %s", cfg.OKX.APIKey)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"批量上限越界", "protection:\n  cancel_batch_size: 11\n"},
		{"止盈倍数过低", "order:\n  trigger_sell_markup: 0.9\n"},
		{"重试区间颠倒", "retry:\n  min_wait: 30s\n  max_wait: 10s\n"},
		{"重试次数非正", "retry:\n  max_attempts: 0\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.content)
			if _, err := Load(path); err == nil {
				t.Fatal("非法配置应被拒绝")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("缺失配置文件应报错")
	}
}
