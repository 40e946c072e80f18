package risk

import (
	"go.uber.org/zap"
)

// Guard 按固定顺序执行下单前的安全检查，遇到第一个不满足的条件立即返回。
type Guard struct {
	limits Limits
	logger *zap.Logger
}

// NewGuard 创建安全检查器。
func NewGuard(limits Limits, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		limits: limits,
		logger: logger,
	}
}

// CheckAmount 依次校验金额为正、不超过配置上限、不低于交易所下限。
// 这些检查不依赖账户状态，因此在任何网络请求之前执行。
func (g *Guard) CheckAmount(amount float64) error {
	if !(amount > 0) {
		return g.reject(&Rejection{
			Reason: ReasonInvalidAmount,
			Amount: amount,
		})
	}

	if amount > g.limits.MaxOrderUSD {
		return g.reject(&Rejection{
			Reason: ReasonExceedsConfiguredLimit,
			Amount: amount,
			Limit:  g.limits.MaxOrderUSD,
			Hint:   "如确有需要，请在 .env 中调高 MAX_ORDER_USD",
		})
	}

	if amount < g.limits.MinOrderUSD {
		return g.reject(&Rejection{
			Reason: ReasonBelowExchangeMinimum,
			Amount: amount,
			Limit:  g.limits.MinOrderUSD,
		})
	}

	return nil
}

// CheckBalance 仅在余额可获取时比较；余额缺失不阻断下单。
func (g *Guard) CheckBalance(amount, balance float64, known bool) error {
	if !known {
		g.logger.Warn("无法获取可用余额，跳过余额检查", zap.Float64("amount", amount))
		return nil
	}
	if balance < amount {
		return g.reject(&Rejection{
			Reason: ReasonInsufficientBalance,
			Amount: amount,
			Limit:  balance,
			Hint:   "请先充值或降低下单金额",
		})
	}
	return nil
}

func (g *Guard) reject(r *Rejection) error {
	fields := []zap.Field{
		zap.String("reason", string(r.Reason)),
		zap.Float64("amount", r.Amount),
	}
	if r.Limit != 0 {
		fields = append(fields, zap.Float64("limit", r.Limit))
	}
	g.logger.Error(r.Error(), fields...)
	if r.Hint != "" {
		g.logger.Error(r.Hint)
	}
	return r
}
