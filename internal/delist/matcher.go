// Package delist 监控交易所下架公告，并对受影响的交易对执行防护：
// 撤触发单、撤限价买单、清仓、拉黑并移出抄底配置。
package delist

import (
	"strconv"
	"strings"
	"time"

	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/okx"
)

// Matcher 判定一条公告是否涉及受保护币种的现货下架。
type Matcher struct {
	currencies []string
	quoteCcy   string
}

// NewMatcher 创建匹配器。currencies 为受保护的基础币种（如 OKB、BTC）。
func NewMatcher(currencies []string, quoteCcy string) *Matcher {
	if quoteCcy == "" {
		quoteCcy = "USDT"
	}
	upper := make([]string, 0, len(currencies))
	for _, c := range currencies {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			upper = append(upper, c)
		}
	}
	return &Matcher{currencies: upper, quoteCcy: quoteCcy}
}

// Match 返回公告命中的交易对列表。
// 仅当日发布、标题与现货相关且明确提到受保护币种的公告才会命中。
func (m *Matcher) Match(ann okx.Announcement, now time.Time) []string {
	if !publishedToday(ann.PTime, now) {
		return nil
	}

	title := strings.ToUpper(ann.Title)
	if !strings.Contains(title, "SPOT") {
		return nil
	}

	var instIDs []string
	for _, ccy := range m.currencies {
		if containsCurrency(title, ccy) {
			instIDs = append(instIDs, ccy+"-"+m.quoteCcy)
		}
	}
	return instIDs
}

// publishedToday 判断毫秒时间戳与 now 是否为同一 UTC 日期。
func publishedToday(ptimeMillis string, now time.Time) bool {
	ms, err := strconv.ParseInt(ptimeMillis, 10, 64)
	if err != nil {
		return false
	}
	published := time.UnixMilli(ms).UTC()
	ny, nm, nd := now.UTC().Date()
	py, pm, pd := published.Date()
	return ny == py && nm == pm && nd == pd
}

// containsCurrency 按词边界匹配币种符号，避免 OK 误中 OKB 之类的前缀命中。
func containsCurrency(title, ccy string) bool {
	idx := 0
	for {
		i := strings.Index(title[idx:], ccy)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(ccy)

		beforeOK := start == 0 || !isSymbolChar(title[start-1])
		afterOK := end == len(title) || !isSymbolChar(title[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isSymbolChar(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
