package store

import (
	"context"
	"testing"
	"time"

	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewSQLite(config.DatabaseConfig{
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

func TestUpsertFilledOrderPreservesSellFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fillTime := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	rec := FilledOrderRecord{
		OrdID:    "ord-1",
		InstID:   "OKB-USDT",
		FillPx:   "10.5",
		FillSz:   "16",
		FillTime: fillTime,
		SellTime: fillTime.Add(20 * time.Hour),
	}
	if err := s.UpsertFilledOrder(ctx, rec); err != nil {
		t.Fatalf("首次写入: %v", err)
	}
	if err := s.MarkSold(ctx, "ord-1"); err != nil {
		t.Fatalf("MarkSold: %v", err)
	}

	// 重复同步带来不同的 sell_time，不得覆盖已有状态。
	rec.FillPx = "10.6"
	rec.SellTime = fillTime.Add(40 * time.Hour)
	if err := s.UpsertFilledOrder(ctx, rec); err != nil {
		t.Fatalf("二次写入: %v", err)
	}

	got, err := s.GetFilledOrder(ctx, "ord-1")
	if err != nil {
		t.Fatalf("GetFilledOrder: %v", err)
	}
	if got == nil {
		t.Fatal("记录不存在")
	}
	if got.FillPx != "10.6" {
		t.Errorf("fill_px = %s, 成交明细应被刷新", got.FillPx)
	}
	if got.SoldStatus != SoldStatusSold {
		t.Errorf("sold_status = %q, 不应被重置", got.SoldStatus)
	}
	if !got.SellTime.Equal(fillTime.Add(20 * time.Hour)) {
		t.Errorf("sell_time = %v, 不应被推迟", got.SellTime)
	}
}

func TestOrdersReadyToSell(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	due := FilledOrderRecord{
		OrdID: "due", InstID: "AAA-USDT", FillPx: "1", FillSz: "1",
		FillTime: base, SellTime: base.Add(20 * time.Hour),
	}
	notDue := FilledOrderRecord{
		OrdID: "not-due", InstID: "BBB-USDT", FillPx: "1", FillSz: "1",
		FillTime: base.Add(10 * time.Hour), SellTime: base.Add(30 * time.Hour),
	}
	sold := FilledOrderRecord{
		OrdID: "sold", InstID: "CCC-USDT", FillPx: "1", FillSz: "1",
		FillTime: base, SellTime: base.Add(20 * time.Hour),
	}
	for _, rec := range []FilledOrderRecord{due, notDue, sold} {
		if err := s.UpsertFilledOrder(ctx, rec); err != nil {
			t.Fatalf("UpsertFilledOrder(%s): %v", rec.OrdID, err)
		}
	}
	if err := s.MarkSold(ctx, "sold"); err != nil {
		t.Fatalf("MarkSold: %v", err)
	}

	got, err := s.OrdersReadyToSell(ctx, base.Add(21*time.Hour))
	if err != nil {
		t.Fatalf("OrdersReadyToSell: %v", err)
	}
	if len(got) != 1 || got[0].OrdID != "due" {
		t.Fatalf("got %d 条记录, want 仅 due", len(got))
	}
}

func TestMarkSoldMissingOrder(t *testing.T) {
	s := newTestStore(t)
	if err := s.MarkSold(context.Background(), "missing"); err == nil {
		t.Fatal("不存在的记录应返回错误")
	}
}

func TestLimitsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, row := range []LimitRow{
		{InstID: "BBB-USDT", Coefficient: 65},
		{InstID: "AAA-USDT", Coefficient: 70},
	} {
		if err := s.UpsertLimit(ctx, row); err != nil {
			t.Fatalf("UpsertLimit: %v", err)
		}
	}
	if err := s.UpsertLimit(ctx, LimitRow{InstID: "AAA-USDT", Coefficient: 75}); err != nil {
		t.Fatalf("UpsertLimit 更新: %v", err)
	}

	limits, err := s.Limits(ctx)
	if err != nil {
		t.Fatalf("Limits: %v", err)
	}
	if len(limits) != 2 {
		t.Fatalf("limits = %d, want 2", len(limits))
	}
	if limits[0].InstID != "AAA-USDT" || limits[0].Coefficient != 75 {
		t.Errorf("limits[0] = %+v, want AAA-USDT/75", limits[0])
	}

	if err := s.RemoveLimit(ctx, "AAA-USDT"); err != nil {
		t.Fatalf("RemoveLimit: %v", err)
	}
	limits, err = s.Limits(ctx)
	if err != nil {
		t.Fatalf("Limits: %v", err)
	}
	if len(limits) != 1 || limits[0].InstID != "BBB-USDT" {
		t.Fatalf("删除后 limits = %+v", limits)
	}
}

func TestBlacklist(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok, err := s.IsBlacklisted(ctx, "AAA-USDT")
	if err != nil || ok {
		t.Fatalf("空黑名单: ok=%v err=%v", ok, err)
	}

	if err := s.AddToBlacklist(ctx, "AAA-USDT", "delisting"); err != nil {
		t.Fatalf("AddToBlacklist: %v", err)
	}
	if err := s.AddToBlacklist(ctx, "AAA-USDT", "again"); err != nil {
		t.Fatalf("重复拉黑: %v", err)
	}

	ok, err = s.IsBlacklisted(ctx, "AAA-USDT")
	if err != nil || !ok {
		t.Fatalf("拉黑后: ok=%v err=%v", ok, err)
	}

	set, err := s.BlacklistSet(ctx)
	if err != nil {
		t.Fatalf("BlacklistSet: %v", err)
	}
	if len(set) != 1 || !set["AAA-USDT"] {
		t.Fatalf("set = %v", set)
	}
}

func TestAnnouncementDedup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	url := "https://www.okx.com/help/notice-1"

	done, err := s.AnnouncementProcessed(ctx, url)
	if err != nil || done {
		t.Fatalf("未处理公告: done=%v err=%v", done, err)
	}

	if err := s.MarkAnnouncementProcessed(ctx, url, "notice"); err != nil {
		t.Fatalf("MarkAnnouncementProcessed: %v", err)
	}
	if err := s.MarkAnnouncementProcessed(ctx, url, "notice"); err != nil {
		t.Fatalf("重复记录: %v", err)
	}

	done, err = s.AnnouncementProcessed(ctx, url)
	if err != nil || !done {
		t.Fatalf("处理后: done=%v err=%v", done, err)
	}
}
