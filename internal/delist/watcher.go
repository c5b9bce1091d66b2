package delist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/okx"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/retry"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/store"
)

// AnnouncementSource 提供下架公告。
type AnnouncementSource interface {
	DelistAnnouncements(ctx context.Context, page int) ([]okx.Announcement, error)
}

// Watcher 轮询下架公告，对命中的交易对触发防护流程。
type Watcher struct {
	source    AnnouncementSource
	store     *store.Store
	matcher   *Matcher
	protector *Protector
	retrier   *retry.Controller
	logger    *zap.Logger
	now       func() time.Time

	// OnProtection 在每次防护执行后回调（无论成败），用于监控埋点。
	OnProtection func(ProtectionReport)
}

// NewWatcher 创建公告监控。
func NewWatcher(source AnnouncementSource, st *store.Store, matcher *Matcher, protector *Protector, retrier *retry.Controller, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		source:    source,
		store:     st,
		matcher:   matcher,
		protector: protector,
		retrier:   retrier,
		logger:    logger,
		now:       time.Now,
	}
}

// Poll 执行一轮公告检查。
// 已处理过的公告与已拉黑的交易对直接跳过，二者都不算失败。
func (w *Watcher) Poll(ctx context.Context) error {
	var anns []okx.Announcement
	err := w.retrier.Do(ctx, "delist_announcements", func() error {
		var qErr error
		anns, qErr = w.source.DelistAnnouncements(ctx, 1)
		return qErr
	})
	if err != nil {
		return fmt.Errorf("拉取下架公告失败: %w", err)
	}

	var errs []error
	for _, ann := range anns {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.handleOne(ctx, ann); err != nil {
			errs = append(errs, fmt.Errorf("%q: %w", ann.Title, err))
		}
	}
	return errors.Join(errs...)
}

func (w *Watcher) handleOne(ctx context.Context, ann okx.Announcement) error {
	instIDs := w.matcher.Match(ann, w.now())
	if len(instIDs) == 0 {
		return nil
	}

	processed, err := w.store.AnnouncementProcessed(ctx, ann.URL)
	if err != nil {
		return err
	}
	if processed {
		return nil
	}

	w.logger.Warn("发现下架公告",
		zap.String("title", ann.Title),
		zap.String("url", ann.URL),
		zap.Strings("instIds", instIDs),
	)

	var errs []error
	for _, instID := range instIDs {
		blacklisted, err := w.store.IsBlacklisted(ctx, instID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if blacklisted {
			w.logger.Info("交易对已在黑名单，跳过防护", zap.String("instId", instID))
			continue
		}

		report, err := w.protector.Protect(ctx, instID, ann.Title)
		if w.OnProtection != nil {
			w.OnProtection(report)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", instID, err))
		}
	}

	// 防护有失败时不标记已处理，下一轮重试。
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return w.store.MarkAnnouncementProcessed(ctx, ann.URL, ann.Title)
}
