package execution

import (
	"errors"
	"fmt"

	"coinbase-trader/internal/risk"
)

// ErrNotSubmitted 表示下单请求在发出前被取消，确定没有创建订单。
var ErrNotSubmitted = errors.New("execution: 订单未提交")

// SubmissionError 表示真实下单请求失败。请求可能已经到达交易所，
// 因此订单状态未知，需要按 ClientOrderID 与交易所对账。
type SubmissionError struct {
	ClientOrderID string
	ProductID     string
	QuoteSize     string
	Err           error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("execution: 下单失败，订单状态未知（client_order_id=%s）: %v", e.ClientOrderID, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// Caveat 返回提示操作者需要对账的说明。
func (e *SubmissionError) Caveat() string {
	return fmt.Sprintf("下单确认失败并不代表订单未创建，请在 Coinbase 中按 client_order_id=%s 核对订单", e.ClientOrderID)
}

// IsAmbiguous 判断失败是否属于结果不确定的真实下单失败。
// 安全检查拒绝与模拟模式失败均不属于此类。
func IsAmbiguous(err error) bool {
	var subErr *SubmissionError
	return errors.As(err, &subErr)
}

// IsRejection 判断错误是否为安全检查拒绝，此时确定没有提交订单。
func IsRejection(err error) bool {
	var rejection *risk.Rejection
	return errors.As(err, &rejection)
}
