package execution

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// simulate 使用实时价格估算成交，不会修改任何外部状态。
// 获取价格失败时按 0 计算，模拟结果降级但不中断。
func (p *Pipeline) simulate(ctx context.Context, amount float64, logger *zap.Logger) *Simulated {
	logger.Info("[DRY RUN] 模拟市价买单", zap.String("stage", string(StageSimulating)))

	price, ok := p.gateway.CurrentPrice(ctx, p.cfg.Pair)
	if !ok {
		logger.Warn("[DRY RUN] 无法获取价格，按 0 估算")
		price = 0
	}

	quantity := 0.0
	if price > 0 {
		quantity = amount / price
	}

	order := &Simulated{
		OrderID:            p.newSimulateID(),
		ProductID:          p.cfg.Pair,
		Side:               OrderSideBuy,
		QuoteSize:          decimal.NewFromFloat(amount).StringFixed(2),
		EstimatedFillPrice: decimal.NewFromFloat(price).StringFixed(2),
		EstimatedQuantity:  decimal.NewFromFloat(quantity).StringFixed(8),
		Timestamp:          p.now(),
	}

	logger.Info("[DRY RUN] 模拟订单详情",
		zap.String("stage", string(StageCompleted)),
		zap.String("order_id", order.OrderID),
		zap.String("product_id", order.ProductID),
		zap.String("side", string(order.Side)),
		zap.String("quote_size", order.QuoteSize),
		zap.String("estimated_fill_price", order.EstimatedFillPrice),
		zap.String("estimated_quantity", order.EstimatedQuantity+" "+p.cfg.BaseCurrency()),
	)
	logger.Info("[DRY RUN] 未提交任何真实订单")

	return order
}
