package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了系统运行所需的全部配置项。
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	OKX        OKXConfig        `mapstructure:"okx"`
	Order      OrderConfig      `mapstructure:"order"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Protection ProtectionConfig `mapstructure:"protection"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Status     StatusConfig     `mapstructure:"status"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// OKXConfig 描述 OKX 连接信息。凭证从环境变量读取（OKX_API_KEY 等）。
type OKXConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	SecretKey  string        `mapstructure:"secret_key"`
	Passphrase string        `mapstructure:"passphrase"`
	Simulated  bool          `mapstructure:"simulated"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// OrderConfig 控制下单行为。
type OrderConfig struct {
	// NotionalUSD 为每笔触发买单分配的固定 USDT 预算。
	NotionalUSD float64 `mapstructure:"notional_usd"`
	// TriggerSellMarkup 为成交后挂出的触发卖单相对买价的倍数（如 1.20 = +20%）。
	TriggerSellMarkup float64 `mapstructure:"trigger_sell_markup"`
	// HoldingWindow 为买单成交后延迟市价卖出的持仓时间。
	HoldingWindow time.Duration `mapstructure:"holding_window"`
	// MinKeepUSD 低于该美元价值的触发卖单会被清理。
	MinKeepUSD float64 `mapstructure:"min_keep_usd"`
	// InterCallDelay 为连续交易所调用之间的固定间隔（限速用）。
	InterCallDelay time.Duration `mapstructure:"inter_call_delay"`
	// RulesCacheTTL 控制交易规则缓存的失效时间，0 表示进程生命周期内不过期。
	RulesCacheTTL time.Duration `mapstructure:"rules_cache_ttl"`
}

// RetryConfig 统一控制重试机制。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinWait     time.Duration `mapstructure:"min_wait"`
	MaxWait     time.Duration `mapstructure:"max_wait"`
	Multiplier  float64       `mapstructure:"multiplier"`
}

// ProtectionConfig 控制下架防护流程。
type ProtectionConfig struct {
	// CancelBatchSize 为批量撤销触发单时每批的最大数量。
	CancelBatchSize int `mapstructure:"cancel_batch_size"`
	// Currencies 为公告匹配保护的基础币种列表。
	Currencies []string `mapstructure:"currencies"`
	// QuoteCcy 为交易对的计价币种。
	QuoteCcy string `mapstructure:"quote_ccy"`
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`

	// 文件滚动输出，FilePath 留空表示关闭。
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// SchedulerConfig 控制各任务在常驻模式下的执行节奏。
type SchedulerConfig struct {
	MonitorInterval  time.Duration `mapstructure:"monitor_interval"`
	FillsInterval    time.Duration `mapstructure:"fills_interval"`
	SellInterval     time.Duration `mapstructure:"sell_interval"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
	TriggersInterval time.Duration `mapstructure:"triggers_interval"`
}

// StatusConfig 控制状态接口。
type StatusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.OKX.BaseURL == "" {
		err = multierr.Append(err, errors.New("okx.base_url 不能为空"))
	}
	if c.OKX.Timeout <= 0 {
		err = multierr.Append(err, errors.New("okx.timeout 必须大于0"))
	}
	if c.Order.NotionalUSD <= 0 {
		err = multierr.Append(err, errors.New("order.notional_usd 必须大于0"))
	}
	if c.Order.TriggerSellMarkup <= 1 {
		err = multierr.Append(err, errors.New("order.trigger_sell_markup 必须大于1"))
	}
	if c.Order.HoldingWindow <= 0 {
		err = multierr.Append(err, errors.New("order.holding_window 必须大于0"))
	}
	if c.Order.MinKeepUSD < 0 {
		err = multierr.Append(err, errors.New("order.min_keep_usd 不能为负"))
	}
	if c.Order.InterCallDelay < 0 {
		err = multierr.Append(err, errors.New("order.inter_call_delay 不能为负"))
	}
	if c.Order.RulesCacheTTL < 0 {
		err = multierr.Append(err, errors.New("order.rules_cache_ttl 不能为负"))
	}
	if c.Retry.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("retry.max_attempts 必须大于0"))
	}
	if c.Retry.MinWait <= 0 || c.Retry.MaxWait <= 0 {
		err = multierr.Append(err, errors.New("retry.wait 必须为正"))
	}
	if c.Retry.MinWait > c.Retry.MaxWait {
		err = multierr.Append(err, errors.New("retry.min_wait 不能大于 max_wait"))
	}
	if c.Retry.Multiplier < 1 {
		err = multierr.Append(err, errors.New("retry.multiplier 不能小于1"))
	}
	if c.Protection.CancelBatchSize <= 0 || c.Protection.CancelBatchSize > 10 {
		err = multierr.Append(err, errors.New("protection.cancel_batch_size 必须位于[1,10]"))
	}
	if c.Protection.QuoteCcy == "" {
		err = multierr.Append(err, errors.New("protection.quote_ccy 不能为空"))
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if c.Logging.FilePath != "" && c.Logging.MaxSizeMB <= 0 {
		err = multierr.Append(err, errors.New("logging.max_size_mb 必须大于0"))
	}
	if c.Scheduler.MonitorInterval <= 0 {
		err = multierr.Append(err, errors.New("scheduler.monitor_interval 必须大于0"))
	}
	if c.Scheduler.FillsInterval <= 0 {
		err = multierr.Append(err, errors.New("scheduler.fills_interval 必须大于0"))
	}
	if c.Scheduler.SellInterval <= 0 {
		err = multierr.Append(err, errors.New("scheduler.sell_interval 必须大于0"))
	}
	if c.Scheduler.SweepInterval <= 0 {
		err = multierr.Append(err, errors.New("scheduler.sweep_interval 必须大于0"))
	}
	if c.Scheduler.TriggersInterval <= 0 {
		err = multierr.Append(err, errors.New("scheduler.triggers_interval 必须大于0"))
	}
	if c.Status.Enabled && (c.Status.Port <= 0 || c.Status.Port > 65535) {
		err = multierr.Append(err, errors.New("status.port 必须为合法端口"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}

// HasCredentials 判断 API 凭证是否齐全。
func (c *OKXConfig) HasCredentials() bool {
	return c.APIKey != "" && c.SecretKey != "" && c.Passphrase != ""
}
