package risk

import "fmt"

// Reason 描述安全检查拒绝下单的原因。
type Reason string

const (
	ReasonInvalidAmount          Reason = "invalid_amount"
	ReasonExceedsConfiguredLimit Reason = "exceeds_configured_limit"
	ReasonBelowExchangeMinimum   Reason = "below_exchange_minimum"
	ReasonInsufficientBalance    Reason = "insufficient_balance"
)

// Limits 为单笔订单的金额约束。
type Limits struct {
	MaxOrderUSD float64
	MinOrderUSD float64
}

// Rejection 表示订单未通过安全检查，此时没有任何订单被提交。
type Rejection struct {
	Reason Reason
	Amount float64
	// Limit 为触发拒绝的阈值：上限、下限或可用余额。
	Limit float64
	Hint  string
}

func (r *Rejection) Error() string {
	var msg string
	switch r.Reason {
	case ReasonInvalidAmount:
		msg = fmt.Sprintf("下单金额必须为正数，当前为 $%.2f", r.Amount)
	case ReasonExceedsConfiguredLimit:
		msg = fmt.Sprintf("下单金额 $%.2f 超过允许的最大值 $%.2f", r.Amount, r.Limit)
	case ReasonBelowExchangeMinimum:
		msg = fmt.Sprintf("下单金额 $%.2f 低于交易所最小下单额 $%.2f", r.Amount, r.Limit)
	case ReasonInsufficientBalance:
		msg = fmt.Sprintf("可用余额不足: $%.2f < $%.2f", r.Limit, r.Amount)
	default:
		msg = fmt.Sprintf("订单被拒绝: %s", r.Reason)
	}
	return "risk: " + msg
}
