package okx

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// GetInstrument 获取现货交易对的下单规则（tickSz/lotSz/minSz）。
func (c *Client) GetInstrument(ctx context.Context, instID string) (Instrument, error) {
	const op = "get_instrument"

	path := "/api/v5/public/instruments?instType=SPOT&instId=" + url.QueryEscape(instID)

	var data []Instrument
	if err := c.do(ctx, op, http.MethodGet, path, nil, &data); err != nil {
		return Instrument{}, err
	}
	if len(data) == 0 {
		return Instrument{}, fmt.Errorf("%s: 未找到交易对 %s", op, instID)
	}

	inst := data[0]
	if inst.State != "" && inst.State != "live" {
		return Instrument{}, fmt.Errorf("%s: 交易对 %s 非可交易状态: %s", op, instID, inst.State)
	}
	return inst, nil
}

// GetLastPrice 获取交易对最新成交价（十进制字符串）。
func (c *Client) GetLastPrice(ctx context.Context, instID string) (string, error) {
	const op = "get_last_price"

	path := "/api/v5/market/ticker?instId=" + url.QueryEscape(instID)

	var data []struct {
		InstID string `json:"instId"`
		Last   string `json:"last"`
	}
	if err := c.do(ctx, op, http.MethodGet, path, nil, &data); err != nil {
		return "", err
	}
	if len(data) == 0 || data[0].Last == "" {
		return "", fmt.Errorf("%s: %s 无最新价", op, instID)
	}
	return data[0].Last, nil
}

// GetDailyOpenPrice 获取当日日线开盘价（十进制字符串）。
func (c *Client) GetDailyOpenPrice(ctx context.Context, instID string) (string, error) {
	const op = "get_daily_open"

	path := "/api/v5/market/candles?instId=" + url.QueryEscape(instID) + "&bar=1D&limit=1"

	// K线数据为字符串数组，开盘价位于下标1。
	var data [][]string
	if err := c.do(ctx, op, http.MethodGet, path, nil, &data); err != nil {
		return "", err
	}
	if len(data) == 0 || len(data[0]) < 2 || data[0][1] == "" {
		return "", fmt.Errorf("%s: %s 无日线数据", op, instID)
	}
	return data[0][1], nil
}
