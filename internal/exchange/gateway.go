package exchange

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Gateway 对 Client 做一层包装：读操作失败时记录日志并返回缺失信号，
// 原始传输错误不会继续向上传递。下单失败则保留原因，由调用方判断结果是否确定。
type Gateway struct {
	client *Client
	logger *zap.Logger
}

// NewGateway 创建行情与下单网关。
func NewGateway(client *Client, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		client: client,
		logger: logger,
	}
}

// CurrentPrice 返回最新价，失败时 ok 为 false。
func (g *Gateway) CurrentPrice(ctx context.Context, pair string) (float64, bool) {
	g.logger.Info("获取最新价格", zap.String("pair", pair))

	price, err := g.client.FetchPrice(ctx, pair)
	if err != nil {
		g.logger.Error("获取价格失败", zap.String("pair", pair), zap.Error(err))
		return 0, false
	}

	g.logger.Info("最新价格", zap.String("pair", pair), zap.Float64("price", price))
	return price, true
}

// OrderBook 返回截断到 depth 档的订单簿，失败时 ok 为 false。
func (g *Gateway) OrderBook(ctx context.Context, pair string, depth int) (OrderBook, bool) {
	g.logger.Info("获取订单簿", zap.String("pair", pair), zap.Int("depth", depth))

	book, err := g.client.FetchOrderBook(ctx, pair, depth)
	if err != nil {
		g.logger.Error("获取订单簿失败", zap.String("pair", pair), zap.Error(err))
		return OrderBook{}, false
	}
	if len(book.Bids) == 0 && len(book.Asks) == 0 {
		g.logger.Warn("订单簿为空", zap.String("pair", pair))
		return OrderBook{}, false
	}

	if bid, ok := book.BestBid(); ok {
		g.logger.Info("最优买价", zap.Float64("price", bid.Price))
	}
	if ask, ok := book.BestAsk(); ok {
		g.logger.Info("最优卖价", zap.Float64("price", ask.Price))
	}
	if spread, pct, ok := book.Spread(); ok {
		g.logger.Info("买卖价差",
			zap.String("spread", fmt.Sprintf("%.2f", spread)),
			zap.String("spread_pct", fmt.Sprintf("%.4f%%", pct)),
		)
	}

	return book, true
}

// Balance 返回指定币种的可用余额，找不到账户或请求失败时 ok 为 false。
func (g *Gateway) Balance(ctx context.Context, currency string) (float64, bool) {
	currency = strings.ToUpper(currency)
	g.logger.Debug("获取账户余额", zap.String("currency", currency))

	accounts, err := g.client.FetchAccounts(ctx)
	if err != nil {
		g.logger.Error("获取余额失败", zap.String("currency", currency), zap.Error(err))
		return 0, false
	}

	for _, account := range accounts {
		if account.Currency == currency {
			g.logger.Info("账户余额", zap.String("currency", currency), zap.Float64("available", account.Available))
			return account.Available, true
		}
	}

	g.logger.Warn("未找到对应币种账户", zap.String("currency", currency))
	return 0, false
}

// Accounts 列出全部账户，用于校验凭证是否有效。
func (g *Gateway) Accounts(ctx context.Context) ([]Account, error) {
	accounts, err := g.client.FetchAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("exchange: 凭证校验失败: %w", err)
	}
	return accounts, nil
}

// SubmitMarketBuy 提交市价买单。返回错误时订单状态未知，不能假定未成交。
func (g *Gateway) SubmitMarketBuy(ctx context.Context, req MarketBuyRequest) (Ack, error) {
	g.logger.Info("提交市价买单",
		zap.String("product_id", req.ProductID),
		zap.String("quote_size", req.QuoteSize),
		zap.String("client_order_id", req.ClientOrderID),
	)

	ack, err := g.client.CreateMarketBuy(ctx, req)
	if err != nil {
		return ack, fmt.Errorf("exchange: 提交市价买单失败: %w", err)
	}
	return ack, nil
}
