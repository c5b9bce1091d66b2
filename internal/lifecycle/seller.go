package lifecycle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/retry"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/store"
)

// SellerExchange 是到期卖出所需的交易所能力子集。
type SellerExchange interface {
	PlaceMarketSell(ctx context.Context, instID, sz string) (string, error)
}

// Seller 对持仓超过期限仍未止盈的成交执行市价卖出。
type Seller struct {
	exchange SellerExchange
	store    *store.Store
	retrier  *retry.Controller
	logger   *zap.Logger
	delay    time.Duration
	now      func() time.Time

	// OnSold 在每笔到期卖出成功后回调，用于监控埋点。
	OnSold func(rec store.FilledOrderRecord, sellOrdID string)
}

// NewSeller 创建到期卖出任务。
func NewSeller(exchange SellerExchange, st *store.Store, retrier *retry.Controller, delay time.Duration, logger *zap.Logger) *Seller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seller{
		exchange: exchange,
		store:    st,
		retrier:  retrier,
		logger:   logger,
		delay:    delay,
		now:      time.Now,
	}
}

// SellDue 卖出全部到期持仓。单笔失败不影响其余记录。
func (s *Seller) SellDue(ctx context.Context) error {
	due, err := s.store.OrdersReadyToSell(ctx, s.now())
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	var failed int
	for i, rec := range due {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.sellOne(ctx, rec); err != nil {
			failed++
			s.logger.Error("到期卖出失败",
				zap.String("ordId", rec.OrdID),
				zap.String("instId", rec.InstID),
				zap.Error(err),
			)
		}
		if i < len(due)-1 {
			if err := retry.Wait(ctx, s.delay); err != nil {
				return err
			}
		}
	}

	s.logger.Info("到期卖出完成",
		zap.Int("total", len(due)),
		zap.Int("failed", failed),
	)
	if failed > 0 {
		return fmt.Errorf("到期卖出有 %d 笔失败", failed)
	}
	return nil
}

func (s *Seller) sellOne(ctx context.Context, rec store.FilledOrderRecord) error {
	var ordID string
	err := s.retrier.Do(ctx, "place_market_sell", func() error {
		var sellErr error
		ordID, sellErr = s.exchange.PlaceMarketSell(ctx, rec.InstID, rec.FillSz)
		return sellErr
	})
	if err != nil {
		return err
	}

	if err := s.store.MarkSold(ctx, rec.OrdID); err != nil {
		// 卖出已成但状态未落库，下一轮会重复卖出，必须显式暴露。
		return fmt.Errorf("卖出成功但更新状态失败 (sellOrdId=%s): %w", ordID, err)
	}

	s.logger.Info("到期持仓已市价卖出",
		zap.String("instId", rec.InstID),
		zap.String("ordId", rec.OrdID),
		zap.String("sz", rec.FillSz),
		zap.String("sellOrdId", ordID),
	)
	if s.OnSold != nil {
		s.OnSold(rec, ordID)
	}
	return nil
}
