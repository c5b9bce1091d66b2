package monitor

import (
	"time"

	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/delist"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/placement"
)

// EventType 表示监控事件类型。
type EventType string

const (
	EventOrderPlaced EventType = "order_placed"
	EventBatchRun    EventType = "batch_run"
	EventAutoSell    EventType = "auto_sell"
	EventProtection  EventType = "protection"
	EventError       EventType = "error"
)

// Event 封装通用监控事件。
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// OrderPlacedPayload 记录一次下单。
type OrderPlacedPayload struct {
	Result placement.Result `json:"result"`
}

// BatchRunPayload 记录一轮批量创建触发单的汇总。
type BatchRunPayload struct {
	Placed  int `json:"placed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// AutoSellPayload 记录一次到期市价卖出。
type AutoSellPayload struct {
	InstID    string `json:"instId"`
	OrdID     string `json:"ordId"`
	Sz        string `json:"sz"`
	SellOrdID string `json:"sellOrdId"`
}

// ProtectionPayload 记录一次下架防护。
type ProtectionPayload struct {
	Report delist.ProtectionReport `json:"report"`
}

// ErrorPayload 记录异常。
type ErrorPayload struct {
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}
