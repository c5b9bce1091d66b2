package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/config"
)

// Policy 控制指数退避：第 n 次失败后等待 min(MaxWait, MinWait*Multiplier^(n-1))。
type Policy struct {
	MaxAttempts int
	MinWait     time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// FromConfig 由配置构造 Policy。
func FromConfig(cfg config.RetryConfig) Policy {
	return Policy{
		MaxAttempts: cfg.MaxAttempts,
		MinWait:     cfg.MinWait,
		MaxWait:     cfg.MaxWait,
		Multiplier:  cfg.Multiplier,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.MinWait <= 0 {
		p.MinWait = 500 * time.Millisecond
	}
	if p.MaxWait <= 0 {
		p.MaxWait = 10 * time.Second
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2
	}
	return p
}

// Delay 返回第 attempt 次失败后的等待时长（attempt 从 1 开始）。
func (p Policy) Delay(attempt int) time.Duration {
	p = p.normalized()
	wait := float64(p.MinWait)
	for i := 1; i < attempt; i++ {
		wait *= p.Multiplier
		if wait >= float64(p.MaxWait) {
			return p.MaxWait
		}
	}
	if wait > float64(p.MaxWait) {
		return p.MaxWait
	}
	return time.Duration(wait)
}

// TerminalError 表示耗尽全部重试次数后的最终失败。
// 与单次确定性失败可区分，便于调用方记录尝试次数。
type TerminalError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("%s: 重试 %d 次后仍失败: %v", e.Op, e.Attempts, e.Err)
}

func (e *TerminalError) Unwrap() error {
	return e.Err
}

// Controller 以统一策略包装交易所调用。
type Controller struct {
	policy    Policy
	retryable func(error) bool
	logger    *zap.Logger
}

// New 创建重试控制器。retryable 判定错误是否值得重试；
// 确定性拒绝（参数错误、余额不足等）会立即返回而不消耗重试额度。
func New(policy Policy, retryable func(error) bool, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retryable == nil {
		retryable = func(error) bool { return false }
	}
	return &Controller{
		policy:    policy.normalized(),
		retryable: retryable,
		logger:    logger,
	}
}

// Do 执行 fn，瞬时失败按策略退避重试。
func (c *Controller) Do(ctx context.Context, operation string, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		err := fn()
		if err == nil {
			if attempt > 1 {
				c.logger.Info("重试后成功",
					zap.String("operation", operation),
					zap.Int("attempts", attempt),
					zap.Duration("latency", time.Since(start)),
				)
			}
			return nil
		}

		if !c.retryable(err) {
			c.logger.Error("调用被确定性拒绝",
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}

		lastErr = err
		if attempt == c.policy.MaxAttempts {
			break
		}

		wait := c.policy.Delay(attempt)
		c.logger.Warn("调用失败，等待重试",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		if err := Wait(ctx, wait); err != nil {
			return err
		}
	}

	terminal := &TerminalError{Op: operation, Attempts: c.policy.MaxAttempts, Err: lastErr}
	c.logger.Error("重试额度耗尽",
		zap.String("operation", operation),
		zap.Int("attempts", terminal.Attempts),
		zap.Error(lastErr),
	)
	return terminal
}

// Wait 可被 ctx 打断的休眠，也用于调用间的固定限速间隔。
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
