package journal

import (
	"encoding/json"
	"time"

	"coinbase-trader/internal/diagnostics"
	"coinbase-trader/internal/execution"
)

// EventType 表示审计事件类型。
type EventType string

const (
	EventOrderSimulated EventType = "order_simulated"
	EventOrderPlaced    EventType = "order_placed"
	EventOrderRejected  EventType = "order_rejected"
	EventOrderFailed    EventType = "order_failed"
	EventDiagnostics    EventType = "diagnostics"
)

// Event 封装一条审计事件。读取时 Payload 为 json.RawMessage。
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RawPayload 返回读取到的原始 JSON，写入前的事件返回 nil。
func (e Event) RawPayload() json.RawMessage {
	raw, _ := e.Payload.(json.RawMessage)
	return raw
}

// SimulatedPayload 记录模拟订单。
type SimulatedPayload struct {
	Order *execution.Simulated `json:"order"`
}

// PlacedPayload 记录真实订单。
type PlacedPayload struct {
	Order *execution.Placed `json:"order"`
}

// RejectionPayload 记录被安全检查拒绝的请求。
type RejectionPayload struct {
	USDAmount float64 `json:"usd_amount"`
	Reason    string  `json:"reason"`
	Error     string  `json:"error"`
}

// FailurePayload 记录结果未知的提交失败。
type FailurePayload struct {
	USDAmount     float64 `json:"usd_amount"`
	ClientOrderID string  `json:"client_order_id,omitempty"`
	ProductID     string  `json:"product_id,omitempty"`
	Error         string  `json:"error"`
}

// DiagnosticsPayload 记录一次自检结果。
type DiagnosticsPayload struct {
	Report diagnostics.Report `json:"report"`
}
