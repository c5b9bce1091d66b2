package okx

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type orderAck struct {
	OrdID string `json:"ordId"`
	SCode string `json:"sCode"`
	SMsg  string `json:"sMsg"`
}

// PlaceLimitOrder 挂出现货限价单，价格与数量均为十进制字符串。
func (c *Client) PlaceLimitOrder(ctx context.Context, instID, side, px, sz string) (string, error) {
	const op = "place_limit_order"

	body := map[string]string{
		"instId":  instID,
		"tdMode":  "cash",
		"side":    side,
		"ordType": OrdTypeLimit,
		"px":      px,
		"sz":      sz,
	}

	var data []orderAck
	if err := c.do(ctx, op, http.MethodPost, "/api/v5/trade/order", body, &data); err != nil {
		return "", err
	}
	return ackOrderID(op, data)
}

// PlaceMarketSell 按基础币数量市价卖出。
func (c *Client) PlaceMarketSell(ctx context.Context, instID, sz string) (string, error) {
	const op = "place_market_sell"

	body := map[string]string{
		"instId":  instID,
		"tdMode":  "cash",
		"side":    SideSell,
		"ordType": OrdTypeMarket,
		"sz":      sz,
		"tgtCcy":  "base_ccy",
	}

	var data []orderAck
	if err := c.do(ctx, op, http.MethodPost, "/api/v5/trade/order", body, &data); err != nil {
		return "", err
	}
	return ackOrderID(op, data)
}

// CancelOrder 撤销一张普通委托。
func (c *Client) CancelOrder(ctx context.Context, instID, ordID string) error {
	const op = "cancel_order"

	body := map[string]string{
		"instId": instID,
		"ordId":  ordID,
	}

	var data []orderAck
	if err := c.do(ctx, op, http.MethodPost, "/api/v5/trade/cancel-order", body, &data); err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("%s: 响应缺少数据", op)
	}
	if data[0].SCode != "0" {
		return &APIError{Op: op, Code: "0", SCode: data[0].SCode, SMsg: data[0].SMsg}
	}
	return nil
}

// PendingLimitOrders 获取所有挂起的现货限价单，side 为空表示不过滤方向。
func (c *Client) PendingLimitOrders(ctx context.Context, side string) ([]PendingOrder, error) {
	const op = "pending_limit_orders"

	path := "/api/v5/trade/orders-pending?instType=SPOT&ordType=limit"

	var data []PendingOrder
	if err := c.do(ctx, op, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}

	if side == "" {
		return data, nil
	}
	filtered := make([]PendingOrder, 0, len(data))
	for _, o := range data {
		if o.Side == side {
			filtered = append(filtered, o)
		}
	}
	return filtered, nil
}

// FilledBuyOrders 获取时间窗口内已完全成交的现货限价买单。
func (c *Client) FilledBuyOrders(ctx context.Context, begin, end time.Time, limit int) ([]FilledOrder, error) {
	const op = "filled_orders"

	if limit <= 0 {
		limit = 100
	}

	q := url.Values{}
	q.Set("instType", "SPOT")
	q.Set("ordType", "limit")
	q.Set("state", "filled")
	q.Set("limit", strconv.Itoa(limit))
	if !begin.IsZero() {
		q.Set("begin", strconv.FormatInt(begin.UnixMilli(), 10))
	}
	if !end.IsZero() {
		q.Set("end", strconv.FormatInt(end.UnixMilli(), 10))
	}

	var data []FilledOrder
	if err := c.do(ctx, op, http.MethodGet, "/api/v5/trade/orders-history?"+q.Encode(), nil, &data); err != nil {
		return nil, err
	}

	buys := make([]FilledOrder, 0, len(data))
	for _, o := range data {
		if o.Side == SideBuy {
			buys = append(buys, o)
		}
	}
	return buys, nil
}

func ackOrderID(op string, data []orderAck) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%s: 响应缺少数据", op)
	}
	if data[0].SCode != "0" {
		return "", &APIError{Op: op, Code: "0", SCode: data[0].SCode, SMsg: data[0].SMsg}
	}
	if data[0].OrdID == "" {
		return "", fmt.Errorf("%s: 响应缺少 ordId", op)
	}
	return data[0].OrdID, nil
}
