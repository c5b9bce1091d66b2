package store

import (
	"context"
	"fmt"
	"time"
)

// SoldStatusSold 标记已完成市价卖出的成交记录。
const SoldStatusSold = "SOLD"

// FilledOrderRecord 为一笔已成交买单的持仓记录。
type FilledOrderRecord struct {
	OrdID      string
	InstID     string
	FillPx     string
	FillSz     string
	FillTime   time.Time
	SellTime   time.Time
	SoldStatus string
}

// UpsertFilledOrder 写入或更新成交记录。
// 冲突时只刷新成交明细，sell_time 与 sold_status 保持首次写入的值，
// 避免重复同步推迟卖出期限或复活已卖出的记录。
func (s *Store) UpsertFilledOrder(ctx context.Context, rec FilledOrderRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO filled_orders (ord_id, inst_id, fill_px, fill_sz, fill_time, sell_time, sold_status, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(ord_id) DO UPDATE SET
	inst_id = excluded.inst_id,
	fill_px = excluded.fill_px,
	fill_sz = excluded.fill_sz,
	fill_time = excluded.fill_time,
	updated_at = excluded.updated_at`,
		rec.OrdID, rec.InstID, rec.FillPx, rec.FillSz,
		rec.FillTime.UTC().Format(time.RFC3339),
		rec.SellTime.UTC().Format(time.RFC3339),
		rec.SoldStatus,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("写入成交记录失败: %w", err)
	}
	return nil
}

// OrdersReadyToSell 返回卖出期限已到且尚未卖出的记录。
func (s *Store) OrdersReadyToSell(ctx context.Context, now time.Time) ([]FilledOrderRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT ord_id, inst_id, fill_px, fill_sz, fill_time, sell_time, sold_status
FROM filled_orders
WHERE sold_status = '' AND sell_time <= ?
ORDER BY sell_time`,
		now.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("查询待卖出记录失败: %w", err)
	}
	defer rows.Close()

	var recs []FilledOrderRecord
	for rows.Next() {
		rec, scanErr := scanFilledOrder(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("读取待卖出记录失败: %w", err)
	}
	return recs, nil
}

// GetFilledOrder 按委托号取单条成交记录，不存在时返回 (nil, nil)。
func (s *Store) GetFilledOrder(ctx context.Context, ordID string) (*FilledOrderRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT ord_id, inst_id, fill_px, fill_sz, fill_time, sell_time, sold_status
FROM filled_orders WHERE ord_id = ?`, ordID)

	rec, err := scanFilledOrder(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// MarkSold 将记录标记为已卖出。
func (s *Store) MarkSold(ctx context.Context, ordID string) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE filled_orders SET sold_status = ?, updated_at = ? WHERE ord_id = ?`,
		SoldStatusSold, time.Now().UTC().Format(time.RFC3339), ordID,
	)
	if err != nil {
		return fmt.Errorf("更新卖出状态失败: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("成交记录不存在: %s", ordID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFilledOrder(row rowScanner) (FilledOrderRecord, error) {
	var (
		rec      FilledOrderRecord
		fillTime string
		sellTime string
	)
	if err := row.Scan(&rec.OrdID, &rec.InstID, &rec.FillPx, &rec.FillSz, &fillTime, &sellTime, &rec.SoldStatus); err != nil {
		return FilledOrderRecord{}, fmt.Errorf("解析成交记录失败: %w", err)
	}

	var err error
	if rec.FillTime, err = time.Parse(time.RFC3339, fillTime); err != nil {
		return FilledOrderRecord{}, fmt.Errorf("解析成交时间 %q 失败: %w", fillTime, err)
	}
	if rec.SellTime, err = time.Parse(time.RFC3339, sellTime); err != nil {
		return FilledOrderRecord{}, fmt.Errorf("解析卖出时间 %q 失败: %w", sellTime, err)
	}
	return rec, nil
}
