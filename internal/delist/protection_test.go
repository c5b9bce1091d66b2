package delist

import (
	"context"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/config"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/okx"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/retry"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewSQLite(config.DatabaseConfig{
		InMemory:     true,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestRetrier() *retry.Controller {
	return retry.New(retry.Policy{MaxAttempts: 1, MinWait: time.Millisecond, MaxWait: time.Millisecond, Multiplier: 2}, okx.IsRetryable, zap.NewNop())
}

type fakeProtectExchange struct {
	algos        []okx.AlgoOrder
	limits       []okx.PendingOrder
	avail        string
	rejectAlgoID string
	failBatch    int

	cancelBatches [][]okx.AlgoRef
	cancelledOrds []string
	soldSz        string
}

func (f *fakeProtectExchange) PendingAlgoOrders(ctx context.Context, side string) ([]okx.AlgoOrder, error) {
	return f.algos, nil
}

func (f *fakeProtectExchange) CancelAlgoOrders(ctx context.Context, refs []okx.AlgoRef) ([]okx.CancelResult, error) {
	f.cancelBatches = append(f.cancelBatches, refs)
	if f.failBatch == len(f.cancelBatches) {
		return nil, &okx.HTTPError{Op: "cancel_algo_orders", Status: 503}
	}
	results := make([]okx.CancelResult, 0, len(refs))
	for _, ref := range refs {
		if ref.AlgoID == f.rejectAlgoID {
			results = append(results, okx.CancelResult{Ref: ref, OK: false, Reason: "sCode=51400"})
			continue
		}
		results = append(results, okx.CancelResult{Ref: ref, OK: true})
	}
	return results, nil
}

func (f *fakeProtectExchange) PendingLimitOrders(ctx context.Context, side string) ([]okx.PendingOrder, error) {
	return f.limits, nil
}

func (f *fakeProtectExchange) CancelOrder(ctx context.Context, instID, ordID string) error {
	f.cancelledOrds = append(f.cancelledOrds, ordID)
	return nil
}

func (f *fakeProtectExchange) Balances(ctx context.Context, ccy string) ([]okx.Balance, error) {
	if f.avail == "" {
		return nil, nil
	}
	return []okx.Balance{{Ccy: ccy, AvailBal: f.avail, EqUsd: "100"}}, nil
}

func (f *fakeProtectExchange) PlaceMarketSell(ctx context.Context, instID, sz string) (string, error) {
	f.soldSz = sz
	return "sell-1", nil
}

func TestProtectChunksAndContinuesOnPartialFailure(t *testing.T) {
	ex := &fakeProtectExchange{avail: "42.5", rejectAlgoID: "algo-7"}
	for i := 0; i < 23; i++ {
		ex.algos = append(ex.algos, okx.AlgoOrder{InstID: "AAA-USDT", AlgoID: "algo-" + strconv.Itoa(i)})
	}
	// 其它交易对的委托不得被撤。
	ex.algos = append(ex.algos, okx.AlgoOrder{InstID: "BBB-USDT", AlgoID: "other"})
	ex.limits = []okx.PendingOrder{
		{InstID: "AAA-USDT", OrdID: "lim-1", Side: okx.SideBuy},
		{InstID: "BBB-USDT", OrdID: "lim-2", Side: okx.SideBuy},
	}

	st := newTestStore(t)
	ctx := context.Background()
	if err := st.UpsertLimit(ctx, store.LimitRow{InstID: "AAA-USDT", Coefficient: 70}); err != nil {
		t.Fatalf("UpsertLimit: %v", err)
	}

	p := NewProtector(ex, st, newTestRetrier(), 10, 0, zap.NewNop())
	report, err := p.Protect(ctx, "AAA-USDT", "delisting notice")
	if err == nil {
		t.Fatal("存在未撤销委托时应返回错误")
	}

	// 23 张按上限 10 分为 3 批。
	if len(ex.cancelBatches) != 3 {
		t.Fatalf("batches = %d, want 3", len(ex.cancelBatches))
	}
	if n := len(ex.cancelBatches[0]); n != 10 {
		t.Errorf("第一批 = %d, want 10", n)
	}
	if n := len(ex.cancelBatches[2]); n != 3 {
		t.Errorf("第三批 = %d, want 3", n)
	}

	if report.AlgosCancelled != 22 {
		t.Errorf("algosCancelled = %d, want 22", report.AlgosCancelled)
	}
	if len(report.AlgoFailures) != 1 || report.AlgoFailures[0].ID != "algo-7" {
		t.Errorf("algoFailures = %+v, want 仅 algo-7", report.AlgoFailures)
	}

	if len(ex.cancelledOrds) != 1 || ex.cancelledOrds[0] != "lim-1" {
		t.Errorf("cancelledOrds = %v, want 仅 lim-1", ex.cancelledOrds)
	}
	if ex.soldSz != "42.5" {
		t.Errorf("soldSz = %s, want 42.5", ex.soldSz)
	}
	if !report.Blacklisted || !report.LimitRemoved {
		t.Errorf("report = %+v, 拉黑与移出配置都应成功", report)
	}

	blacklisted, err := st.IsBlacklisted(ctx, "AAA-USDT")
	if err != nil || !blacklisted {
		t.Errorf("黑名单未写入: ok=%v err=%v", blacklisted, err)
	}
	limits, err := st.Limits(ctx)
	if err != nil || len(limits) != 0 {
		t.Errorf("抄底配置未清空: %v err=%v", limits, err)
	}
}

func TestProtectChunkTransportFailureLeavesOthersIntact(t *testing.T) {
	// 第二批传输失败，其余两批照常撤销并保留逐单结果。
	ex := &fakeProtectExchange{failBatch: 2}
	for i := 0; i < 23; i++ {
		ex.algos = append(ex.algos, okx.AlgoOrder{InstID: "AAA-USDT", AlgoID: "algo-" + strconv.Itoa(i)})
	}

	p := NewProtector(ex, newTestStore(t), newTestRetrier(), 10, 0, zap.NewNop())
	report, err := p.Protect(context.Background(), "AAA-USDT", "delisting notice")
	if err == nil {
		t.Fatal("整批失败应计入错误")
	}

	if len(ex.cancelBatches) != 3 {
		t.Fatalf("batches = %d, want 3", len(ex.cancelBatches))
	}
	if report.AlgosCancelled != 13 {
		t.Errorf("algosCancelled = %d, want 13", report.AlgosCancelled)
	}
	if len(report.AlgoFailures) != 10 {
		t.Errorf("algoFailures = %d, want 整批10张", len(report.AlgoFailures))
	}
}

type fakeSource struct {
	anns  []okx.Announcement
	calls int
}

func (f *fakeSource) DelistAnnouncements(ctx context.Context, page int) ([]okx.Announcement, error) {
	f.calls++
	return f.anns, nil
}

func TestWatcherSkipsProcessedAndBlacklisted(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ann := okx.Announcement{
		Title: "OKX to delist AAA spot trading pairs",
		URL:   "https://www.okx.com/help/notice-aaa",
		PTime: strconv.FormatInt(now.UnixMilli(), 10),
	}

	st := newTestStore(t)
	ctx := context.Background()
	ex := &fakeProtectExchange{avail: "1"}
	source := &fakeSource{anns: []okx.Announcement{ann}}
	matcher := NewMatcher([]string{"AAA"}, "USDT")
	protector := NewProtector(ex, st, newTestRetrier(), 10, 0, zap.NewNop())
	watcher := NewWatcher(source, st, matcher, protector, newTestRetrier(), zap.NewNop())
	watcher.now = func() time.Time { return now }

	if err := watcher.Poll(ctx); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if ex.soldSz != "1" {
		t.Fatalf("首轮应执行防护清仓, soldSz=%q", ex.soldSz)
	}

	// 第二轮：公告已处理，不再触发防护。
	ex.soldSz = ""
	if err := watcher.Poll(ctx); err != nil {
		t.Fatalf("二轮 Poll: %v", err)
	}
	if ex.soldSz != "" {
		t.Fatal("已处理公告不应重复防护")
	}
}
