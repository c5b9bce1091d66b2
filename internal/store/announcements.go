package store

import (
	"context"
	"fmt"
	"time"
)

// MarkAnnouncementProcessed 记录公告已处理，按 URL 去重。
func (s *Store) MarkAnnouncementProcessed(ctx context.Context, url, title string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO processed_announcements (url, title, processed_at) VALUES (?, ?, ?)
ON CONFLICT(url) DO NOTHING`,
		url, title, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("记录公告失败: %w", err)
	}
	return nil
}

// AnnouncementProcessed 判断公告是否已处理过。
func (s *Store) AnnouncementProcessed(ctx context.Context, url string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM processed_announcements WHERE url = ?`, url).Scan(&one)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("查询公告记录失败: %w", err)
	}
	return true, nil
}
