package config

import (
	"errors"
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "guard"
)

// Load 读取配置文件并结合环境变量返回 Config。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	// 凭证沿用 OKX SDK 的环境变量命名，便于与 .env 共用。
	_ = v.BindEnv("okx.api_key", "OKX_API_KEY")
	_ = v.BindEnv("okx.secret_key", "OKX_SECRET_KEY")
	_ = v.BindEnv("okx.passphrase", "OKX_PASSPHRASE")
	_ = v.BindEnv("okx.simulated", "OKX_TESTNET")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")

	v.SetDefault("okx.base_url", "https://www.okx.com")
	v.SetDefault("okx.simulated", false)
	v.SetDefault("okx.timeout", "10s")

	v.SetDefault("order.notional_usd", 170.0)
	v.SetDefault("order.trigger_sell_markup", 1.20)
	v.SetDefault("order.holding_window", "20h")
	v.SetDefault("order.min_keep_usd", 1.0)
	v.SetDefault("order.inter_call_delay", "500ms")
	v.SetDefault("order.rules_cache_ttl", "0s")

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.min_wait", "4s")
	v.SetDefault("retry.max_wait", "10s")
	v.SetDefault("retry.multiplier", 2.0)

	v.SetDefault("protection.cancel_batch_size", 10)
	v.SetDefault("protection.currencies", []string{})
	v.SetDefault("protection.quote_ccy", "USDT")

	v.SetDefault("database.path", "data/guard.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})
	v.SetDefault("logging.file_path", "logs/guard.log")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 28)
	v.SetDefault("logging.compress", false)

	v.SetDefault("scheduler.monitor_interval", "10m")
	v.SetDefault("scheduler.fills_interval", "15m")
	v.SetDefault("scheduler.sell_interval", "15m")
	v.SetDefault("scheduler.sweep_interval", "5m")
	v.SetDefault("scheduler.triggers_interval", "24h")

	v.SetDefault("status.enabled", true)
	v.SetDefault("status.port", 8871)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
