package placement

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/precision"
)

// instrumentFetcher 拉取交易规则，通常由重试控制器包装。
type instrumentFetcher func(ctx context.Context, instID string) (precision.Rules, error)

type cacheEntry struct {
	rules     precision.Rules
	fetchedAt time.Time
}

// RulesCache 按交易对缓存下单规则，避免每笔委托都打一次接口。
// ttl 为 0 表示进程生命周期内不过期。
type RulesCache struct {
	fetch  instrumentFetcher
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewRulesCache 创建规则缓存。
func NewRulesCache(fetch instrumentFetcher, ttl time.Duration, logger *zap.Logger) *RulesCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RulesCache{
		fetch:   fetch,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
		entries: make(map[string]cacheEntry),
	}
}

// Get 返回交易对规则，缓存未命中或过期时触发拉取。
func (c *RulesCache) Get(ctx context.Context, instID string) (precision.Rules, error) {
	c.mu.Lock()
	entry, ok := c.entries[instID]
	c.mu.Unlock()

	if ok && !c.expired(entry) {
		return entry.rules, nil
	}

	rules, err := c.fetch(ctx, instID)
	if err != nil {
		// 过期的旧值好过没有值。
		if ok {
			c.logger.Warn("规则刷新失败，沿用过期缓存",
				zap.String("instId", instID),
				zap.Error(err),
			)
			return entry.rules, nil
		}
		return precision.Rules{}, err
	}

	c.mu.Lock()
	c.entries[instID] = cacheEntry{rules: rules, fetchedAt: c.now()}
	c.mu.Unlock()

	return rules, nil
}

// Invalidate 删除单个交易对的缓存。
func (c *RulesCache) Invalidate(instID string) {
	c.mu.Lock()
	delete(c.entries, instID)
	c.mu.Unlock()
}

func (c *RulesCache) expired(e cacheEntry) bool {
	if c.ttl <= 0 {
		return false
	}
	return c.now().Sub(e.fetchedAt) > c.ttl
}
