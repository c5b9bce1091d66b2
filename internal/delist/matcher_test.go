package delist

import (
	"strconv"
	"testing"
	"time"

	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/okx"
)

func TestMatcherMatch(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	today := strconv.FormatInt(now.UnixMilli(), 10)
	yesterday := strconv.FormatInt(now.Add(-24*time.Hour).UnixMilli(), 10)

	m := NewMatcher([]string{"okb", "BTC"}, "USDT")

	cases := []struct {
		name  string
		title string
		ptime string
		want  []string
	}{
		{
			name:  "命中单个币种",
			title: "OKX to delist OKB spot trading pairs",
			ptime: today,
			want:  []string{"OKB-USDT"},
		},
		{
			name:  "命中多个币种",
			title: "OKX to delist OKB and BTC spot trading pairs",
			ptime: today,
			want:  []string{"OKB-USDT", "BTC-USDT"},
		},
		{
			name:  "昨日公告忽略",
			title: "OKX to delist OKB spot trading pairs",
			ptime: yesterday,
			want:  nil,
		},
		{
			name:  "与现货无关忽略",
			title: "OKX to delist OKB perpetual futures",
			ptime: today,
			want:  nil,
		},
		{
			name:  "币种不在保护范围",
			title: "OKX to delist XYZ spot trading pairs",
			ptime: today,
			want:  nil,
		},
		{
			name:  "符号前缀不算命中",
			title: "OKX to delist OKBX spot trading pairs",
			ptime: today,
			want:  nil,
		},
		{
			name:  "时间戳非法忽略",
			title: "OKX to delist OKB spot trading pairs",
			ptime: "not-a-timestamp",
			want:  nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := m.Match(okx.Announcement{Title: tc.title, PTime: tc.ptime}, now)
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v, want %v", got, tc.want)
				}
			}
		})
	}
}
