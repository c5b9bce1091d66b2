package store

import (
	"context"
	"fmt"
)

// LimitRow 为单个交易对的抄底系数配置。
type LimitRow struct {
	InstID      string
	Coefficient float64
}

// Limits 按交易对字典序返回全部抄底配置。
func (s *Store) Limits(ctx context.Context) ([]LimitRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT inst_id, coefficient FROM crypto_limits ORDER BY inst_id`)
	if err != nil {
		return nil, fmt.Errorf("查询抄底配置失败: %w", err)
	}
	defer rows.Close()

	var limits []LimitRow
	for rows.Next() {
		var row LimitRow
		if err := rows.Scan(&row.InstID, &row.Coefficient); err != nil {
			return nil, fmt.Errorf("解析抄底配置失败: %w", err)
		}
		limits = append(limits, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("读取抄底配置失败: %w", err)
	}
	return limits, nil
}

// UpsertLimit 写入或更新单个交易对的抄底系数。
func (s *Store) UpsertLimit(ctx context.Context, row LimitRow) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO crypto_limits (inst_id, coefficient) VALUES (?, ?)
ON CONFLICT(inst_id) DO UPDATE SET coefficient = excluded.coefficient`,
		row.InstID, row.Coefficient,
	)
	if err != nil {
		return fmt.Errorf("写入抄底配置失败: %w", err)
	}
	return nil
}

// RemoveLimit 删除交易对的抄底配置，不存在时静默成功。
func (s *Store) RemoveLimit(ctx context.Context, instID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM crypto_limits WHERE inst_id = ?`, instID); err != nil {
		return fmt.Errorf("删除抄底配置失败: %w", err)
	}
	return nil
}
