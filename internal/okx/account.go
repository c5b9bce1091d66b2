package okx

import (
	"context"
	"net/http"
	"net/url"
)

// Balances 获取交易账户余额明细，ccy 为空表示全部币种。
func (c *Client) Balances(ctx context.Context, ccy string) ([]Balance, error) {
	const op = "account_balances"

	path := "/api/v5/account/balance"
	if ccy != "" {
		path += "?ccy=" + url.QueryEscape(ccy)
	}

	var data []struct {
		Details []Balance `json:"details"`
	}
	if err := c.do(ctx, op, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data[0].Details, nil
}
