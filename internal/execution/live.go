package execution

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"coinbase-trader/internal/exchange"
)

// execute 提交真实市价买单。提交前检查计价币余额，失败时不重试。
func (p *Pipeline) execute(ctx context.Context, amount float64, logger *zap.Logger) (*Placed, error) {
	logger.Warn("执行真实市价买单", zap.String("stage", string(StageSubmitting)))

	quote := p.cfg.QuoteCurrency()
	balance, known := p.gateway.Balance(ctx, quote)
	if err := p.guard.CheckBalance(amount, balance, known); err != nil {
		return nil, err
	}

	req := exchange.MarketBuyRequest{
		ProductID:     p.cfg.Pair,
		QuoteAmount:   amount,
		QuoteSize:     FormatQuoteSize(amount),
		ClientOrderID: p.newClientID(),
	}

	ack, err := p.gateway.SubmitMarketBuy(ctx, req)
	if errors.Is(err, exchange.ErrNotSent) {
		logger.Warn("下单请求未发出，订单未创建", zap.String("client_order_id", req.ClientOrderID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrNotSubmitted, err)
	}
	if err != nil {
		subErr := &SubmissionError{
			ClientOrderID: req.ClientOrderID,
			ProductID:     req.ProductID,
			QuoteSize:     req.QuoteSize,
			Err:           err,
		}
		logger.Error("请检查账户余额与 API 权限", zap.String("client_order_id", req.ClientOrderID))
		logger.Warn(subErr.Caveat())
		return nil, subErr
	}

	order := &Placed{
		OrderID:       ack.OrderID,
		ClientOrderID: req.ClientOrderID,
		ProductID:     req.ProductID,
		Side:          OrderSideBuy,
		QuoteSize:     req.QuoteSize,
		Timestamp:     p.now(),
	}

	logger.Info("下单成功",
		zap.String("stage", string(StageCompleted)),
		zap.String("order_id", order.OrderID),
		zap.String("client_order_id", order.ClientOrderID),
		zap.String("product_id", order.ProductID),
		zap.String("quote_size", order.QuoteSize),
		zap.String("status", ack.Status),
	)

	return order, nil
}

// FormatQuoteSize 输出最短的十进制表示，至少保留一位小数，例如 10 -> "10.0"。
func FormatQuoteSize(amount float64) string {
	d := decimal.NewFromFloat(amount)
	if d.Equal(d.Truncate(0)) {
		return d.StringFixed(1)
	}
	return d.String()
}
