package execution

import (
	"time"
)

// OrderSide 表示下单方向。
type OrderSide string

const (
	OrderSideBuy OrderSide = "BUY"
)

// Stage 描述一次下单请求在流水线中的状态。
type Stage string

const (
	StageReceived   Stage = "received"
	StageValidated  Stage = "validated"
	StageSimulating Stage = "simulating"
	StageSubmitting Stage = "submitting"
	StageCompleted  Stage = "completed"
	StageRejected   Stage = "rejected"
	StageFailed     Stage = "failed"
)

// OrderRequest 为一次按美元金额的市价买入请求。
type OrderRequest struct {
	USDAmount float64
}

// Result 是成功下单的结果，只可能是 *Simulated 或 *Placed。
type Result interface {
	ID() string
	Product() string
	isResult()
}

// Simulated 为模拟模式下生成的订单，不会有任何真实下单。
type Simulated struct {
	OrderID            string    `json:"order_id"`
	ProductID          string    `json:"product_id"`
	Side               OrderSide `json:"side"`
	QuoteSize          string    `json:"quote_size"`
	EstimatedFillPrice string    `json:"estimated_fill_price"`
	EstimatedQuantity  string    `json:"estimated_quantity"`
	Timestamp          time.Time `json:"timestamp"`
}

func (s *Simulated) ID() string      { return s.OrderID }
func (s *Simulated) Product() string { return s.ProductID }
func (*Simulated) isResult()         {}

// Placed 为交易所确认接收的真实订单。
type Placed struct {
	OrderID       string    `json:"order_id"`
	ClientOrderID string    `json:"client_order_id"`
	ProductID     string    `json:"product_id"`
	Side          OrderSide `json:"side"`
	QuoteSize     string    `json:"quote_size"`
	Timestamp     time.Time `json:"timestamp"`
}

func (p *Placed) ID() string      { return p.OrderID }
func (p *Placed) Product() string { return p.ProductID }
func (*Placed) isResult()         {}
