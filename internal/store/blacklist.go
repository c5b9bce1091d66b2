package store

import (
	"context"
	"fmt"
	"time"
)

// AddToBlacklist 将交易对拉黑，重复拉黑只保留首次的原因。
func (s *Store) AddToBlacklist(ctx context.Context, instID, reason string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO blacklist (inst_id, reason, created_at) VALUES (?, ?, ?)
ON CONFLICT(inst_id) DO NOTHING`,
		instID, reason, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("写入黑名单失败: %w", err)
	}
	return nil
}

// IsBlacklisted 判断交易对是否在黑名单中。
func (s *Store) IsBlacklisted(ctx context.Context, instID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM blacklist WHERE inst_id = ?`, instID).Scan(&one)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("查询黑名单失败: %w", err)
	}
	return true, nil
}

// BlacklistSet 返回全部黑名单交易对的集合。
func (s *Store) BlacklistSet(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT inst_id FROM blacklist`)
	if err != nil {
		return nil, fmt.Errorf("查询黑名单失败: %w", err)
	}
	defer rows.Close()

	set := make(map[string]bool)
	for rows.Next() {
		var instID string
		if err := rows.Scan(&instID); err != nil {
			return nil, fmt.Errorf("解析黑名单失败: %w", err)
		}
		set[instID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("读取黑名单失败: %w", err)
	}
	return set, nil
}
