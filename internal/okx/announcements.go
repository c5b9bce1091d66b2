package okx

import (
	"context"
	"net/http"
	"strconv"
)

// DelistAnnouncements 获取指定页的下架公告列表。
// 无公告时返回空切片而非错误。
func (c *Client) DelistAnnouncements(ctx context.Context, page int) ([]Announcement, error) {
	const op = "delist_announcements"

	if page <= 0 {
		page = 1
	}

	path := "/api/v5/support/announcements?annType=announcements-delistings&page=" + strconv.Itoa(page)

	var data []struct {
		Details []Announcement `json:"details"`
	}
	if err := c.do(ctx, op, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data[0].Details, nil
}
