package okx

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// MaxCancelBatch 为单次批量撤销策略委托的上限（交易所限制）。
const MaxCancelBatch = 10

type algoAck struct {
	AlgoID string `json:"algoId"`
	SCode  string `json:"sCode"`
	SMsg   string `json:"sMsg"`
}

// PlaceTriggerOrder 创建一张触发委托，触发价到达后转为普通委托。
func (c *Client) PlaceTriggerOrder(ctx context.Context, req TriggerOrderRequest) (string, error) {
	const op = "place_trigger_order"

	orderPx := req.OrderPx
	if orderPx == "" {
		orderPx = "-1"
	}

	body := map[string]string{
		"instId":    req.InstID,
		"tdMode":    "cash",
		"side":      req.Side,
		"ordType":   OrdTypeTrigger,
		"sz":        req.Sz,
		"triggerPx": req.TriggerPx,
		"orderPx":   orderPx,
	}

	var data []algoAck
	if err := c.do(ctx, op, http.MethodPost, "/api/v5/trade/order-algo", body, &data); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%s: 响应缺少数据", op)
	}
	if data[0].SCode != "0" {
		return "", &APIError{Op: op, Code: "0", SCode: data[0].SCode, SMsg: data[0].SMsg}
	}
	if data[0].AlgoID == "" {
		return "", fmt.Errorf("%s: 响应缺少 algoId", op)
	}
	return data[0].AlgoID, nil
}

// PendingAlgoOrders 游标分页拉取全部挂起的触发委托，side 为空表示不过滤方向。
func (c *Client) PendingAlgoOrders(ctx context.Context, side string) ([]AlgoOrder, error) {
	const op = "pending_algo_orders"
	const pageLimit = 100

	var all []AlgoOrder
	after := ""

	for {
		q := url.Values{}
		q.Set("ordType", OrdTypeTrigger)
		q.Set("limit", strconv.Itoa(pageLimit))
		if after != "" {
			q.Set("after", after)
		}

		var page []AlgoOrder
		if err := c.do(ctx, op, http.MethodGet, "/api/v5/trade/orders-algo-pending?"+q.Encode(), nil, &page); err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		for _, o := range page {
			if side == "" || o.Side == side {
				all = append(all, o)
			}
		}

		if len(page) < pageLimit {
			break
		}
		after = page[len(page)-1].AlgoID
		if after == "" {
			break
		}
	}

	return all, nil
}

// CancelAlgoOrders 批量撤销策略委托并返回逐单结果。
// 单批不得超过 MaxCancelBatch；整体传输失败返回 error，
// 交易所受理后逐单的成败体现在 CancelResult 中。
func (c *Client) CancelAlgoOrders(ctx context.Context, refs []AlgoRef) ([]CancelResult, error) {
	const op = "cancel_algo_orders"

	if len(refs) == 0 {
		return nil, nil
	}
	if len(refs) > MaxCancelBatch {
		return nil, fmt.Errorf("%s: 单批数量 %d 超过上限 %d", op, len(refs), MaxCancelBatch)
	}

	body := make([]map[string]string, 0, len(refs))
	for _, ref := range refs {
		body = append(body, map[string]string{
			"instId": ref.InstID,
			"algoId": ref.AlgoID,
		})
	}

	var data []algoAck
	if err := c.do(ctx, op, http.MethodPost, "/api/v5/trade/cancel-algos", body, &data); err != nil {
		return nil, err
	}

	byID := make(map[string]algoAck, len(data))
	for _, ack := range data {
		byID[ack.AlgoID] = ack
	}

	results := make([]CancelResult, 0, len(refs))
	for _, ref := range refs {
		ack, ok := byID[ref.AlgoID]
		switch {
		case !ok:
			results = append(results, CancelResult{Ref: ref, OK: false, Reason: "响应未包含该委托"})
		case ack.SCode != "0":
			results = append(results, CancelResult{Ref: ref, OK: false, Reason: fmt.Sprintf("sCode=%s sMsg=%s", ack.SCode, ack.SMsg)})
		default:
			results = append(results, CancelResult{Ref: ref, OK: true})
		}
	}
	return results, nil
}
