package okx

// Instrument 为交易对的下单规则元数据。
// 所有数值字段保持交易所返回的十进制字符串，避免二进制浮点精度损失。
type Instrument struct {
	InstID string `json:"instId"`
	TickSz string `json:"tickSz"`
	LotSz  string `json:"lotSz"`
	MinSz  string `json:"minSz"`
	State  string `json:"state"`
}

// AlgoOrder 为一张挂起的策略委托（触发单）。
type AlgoOrder struct {
	InstID    string `json:"instId"`
	AlgoID    string `json:"algoId"`
	Side      string `json:"side"`
	OrdType   string `json:"ordType"`
	Sz        string `json:"sz"`
	TriggerPx string `json:"triggerPx"`
	OrderPx   string `json:"orderPx"`
	State     string `json:"state"`
}

// PendingOrder 为一张挂起的普通委托。
type PendingOrder struct {
	InstID  string `json:"instId"`
	OrdID   string `json:"ordId"`
	Side    string `json:"side"`
	OrdType string `json:"ordType"`
	Px      string `json:"px"`
	Sz      string `json:"sz"`
	State   string `json:"state"`
}

// FilledOrder 为一张已成交的历史委托。
type FilledOrder struct {
	InstID    string `json:"instId"`
	OrdID     string `json:"ordId"`
	Side      string `json:"side"`
	OrdType   string `json:"ordType"`
	FillPx    string `json:"fillPx"`
	FillSz    string `json:"fillSz"`
	AvgPx     string `json:"avgPx"`
	AccFillSz string `json:"accFillSz"`
	Fee       string `json:"fee"`
	FeeCcy    string `json:"feeCcy"`
	TradeID   string `json:"tradeId"`
	FillTime  string `json:"fillTime"`
	CTime     string `json:"cTime"`
	UTime     string `json:"uTime"`
}

// Timestamp 返回成交时间戳（毫秒字符串），按可靠性依次回退。
func (o FilledOrder) Timestamp() string {
	if o.FillTime != "" {
		return o.FillTime
	}
	if o.UTime != "" {
		return o.UTime
	}
	return o.CTime
}

// Balance 为交易账户中单一币种的余额。
type Balance struct {
	Ccy      string `json:"ccy"`
	AvailBal string `json:"availBal"`
	EqUsd    string `json:"eqUsd"`
}

// Announcement 为一条交易所公告。
type Announcement struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	PTime string `json:"pTime"`
}

// TriggerOrderRequest 描述一张待创建的触发委托。
type TriggerOrderRequest struct {
	InstID    string
	Side      string
	Sz        string
	TriggerPx string
	// OrderPx 为触发后的委托价，"-1" 表示触发后按市价执行。
	OrderPx string
}

// AlgoRef 唯一定位一张策略委托。
type AlgoRef struct {
	InstID string
	AlgoID string
}

// CancelResult 为批量撤单中单张委托的结果。
type CancelResult struct {
	Ref    AlgoRef
	OK     bool
	Reason string
}

const (
	SideBuy  = "buy"
	SideSell = "sell"

	OrdTypeLimit   = "limit"
	OrdTypeMarket  = "market"
	OrdTypeTrigger = "trigger"
)
