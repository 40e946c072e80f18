package exchange

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/zap"

	"coinbase-trader/internal/config"
)

type coinbaseAPI interface {
	FetchTicker(symbol string, options ...ccxt.FetchTickerOptions) (ccxt.Ticker, error)
	FetchOrderBook(symbol string, options ...ccxt.FetchOrderBookOptions) (ccxt.OrderBook, error)
	FetchBalance(params ...interface{}) (ccxt.Balances, error)
	CreateOrder(symbol string, typeVar string, side string, amount float64, options ...ccxt.CreateOrderOptions) (ccxt.Order, error)
}

// Client 负责与 Coinbase Advanced Trade 交互。每次调用只尝试一次，不做重试。
type Client struct {
	logger      *zap.Logger
	api         coinbaseAPI
	loadMarkets func() error

	marketsLoaded bool
}

// NewClient 构造 Coinbase 客户端，签名与鉴权由 ccxt 负责。
func NewClient(cfg config.ExchangeConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("exchange: api_key 与 api_secret 不能为空")
	}

	userConfig := map[string]interface{}{
		"apiKey":          cfg.APIKey,
		"secret":          cfg.APISecret,
		"enableRateLimit": true,
		"options": map[string]interface{}{
			"createMarketBuyOrderRequiresPrice": false,
		},
	}
	if cfg.Timeout > 0 {
		userConfig["timeout"] = cfg.Timeout.Milliseconds()
	}

	ex := ccxt.NewCoinbase(userConfig)

	return newClient(ex, func() error {
		_, err := ex.LoadMarkets()
		return err
	}, logger), nil
}

func newClient(api coinbaseAPI, loadMarkets func() error, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		logger:      logger,
		api:         api,
		loadMarkets: loadMarkets,
	}
}

// FetchPrice 返回交易对最新成交价。
func (c *Client) FetchPrice(ctx context.Context, productID string) (float64, error) {
	var ticker ccxt.Ticker
	err := c.call(ctx, "fetch_ticker", func() error {
		result, err := c.api.FetchTicker(toSymbol(productID))
		if err != nil {
			return err
		}
		ticker = result
		return nil
	})
	if err != nil {
		return 0, err
	}

	switch {
	case ticker.Last != nil && *ticker.Last >= 0:
		return *ticker.Last, nil
	case ticker.Close != nil && *ticker.Close >= 0:
		return *ticker.Close, nil
	default:
		return 0, fmt.Errorf("exchange: %s 行情缺少最新价: %w", productID, ErrMalformedResponse)
	}
}

// FetchOrderBook 获取订单簿快照并截断到 depth 档。
func (c *Client) FetchOrderBook(ctx context.Context, productID string, depth int) (OrderBook, error) {
	if depth <= 0 {
		depth = 10
	}

	var raw ccxt.OrderBook
	err := c.call(ctx, "fetch_order_book", func() error {
		book, err := c.api.FetchOrderBook(
			toSymbol(productID),
			ccxt.WithFetchOrderBookLimit(int64(depth)),
		)
		if err != nil {
			return err
		}
		raw = book
		return nil
	})
	if err != nil {
		return OrderBook{}, err
	}

	return convertOrderBook(productID, raw, depth), nil
}

// FetchAccounts 返回各币种账户的可用余额。
func (c *Client) FetchAccounts(ctx context.Context) ([]Account, error) {
	var balances ccxt.Balances
	err := c.call(ctx, "fetch_balance", func() error {
		result, err := c.api.FetchBalance()
		if err != nil {
			return err
		}
		balances = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	if balances.Free == nil {
		return nil, fmt.Errorf("exchange: 账户余额缺少 free 字段: %w", ErrMalformedResponse)
	}

	accounts := make([]Account, 0, len(balances.Free))
	for currency, free := range balances.Free {
		if free == nil {
			continue
		}
		accounts = append(accounts, Account{
			Currency:  strings.ToUpper(currency),
			Available: *free,
		})
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Currency < accounts[j].Currency
	})

	return accounts, nil
}

// CreateMarketBuy 以计价币金额提交市价买单，clientOrderId 用于幂等。
func (c *Client) CreateMarketBuy(ctx context.Context, req MarketBuyRequest) (Ack, error) {
	if req.QuoteAmount <= 0 {
		return Ack{}, fmt.Errorf("exchange: 下单金额无效 %.8f", req.QuoteAmount)
	}

	params := map[string]interface{}{
		"createMarketBuyOrderRequiresPrice": false,
	}
	if req.ClientOrderID != "" {
		params["clientOrderId"] = req.ClientOrderID
	}

	var order ccxt.Order
	err := c.call(ctx, "create_market_buy", func() error {
		result, err := c.api.CreateOrder(
			toSymbol(req.ProductID),
			"market",
			"buy",
			req.QuoteAmount,
			ccxt.WithCreateOrderParams(params),
		)
		if err != nil {
			return err
		}
		order = result
		return nil
	})
	if err != nil {
		return Ack{}, err
	}

	ack := Ack{ClientOrderID: req.ClientOrderID}
	if order.Id != nil {
		ack.OrderID = *order.Id
	}
	if order.ClientOrderId != nil && *order.ClientOrderId != "" {
		ack.ClientOrderID = *order.ClientOrderId
	}
	if order.Status != nil {
		ack.Status = *order.Status
	}
	if ack.OrderID == "" {
		return ack, fmt.Errorf("exchange: 下单确认缺少 order_id: %w", ErrMalformedResponse)
	}

	return ack, nil
}

func (c *Client) ensureMarketsLoaded() error {
	if c.marketsLoaded || c.loadMarkets == nil {
		return nil
	}
	if err := c.loadMarkets(); err != nil {
		return err
	}
	c.marketsLoaded = true
	c.logger.Debug("已完成市场元数据加载")
	return nil
}

func (c *Client) call(ctx context.Context, operation string, fn func() error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("exchange: %s: %w: %w", operation, ErrNotSent, ctxErr)
	}

	start := time.Now()
	err := c.ensureMarketsLoaded()
	if err == nil {
		err = fn()
	}
	latency := time.Since(start)

	if err != nil {
		normalizedErr := classifyError(err)
		c.logger.Debug("交易所调用失败",
			zap.String("operation", operation),
			zap.Duration("latency", latency),
			zap.Error(normalizedErr),
		)
		return fmt.Errorf("exchange: %s: %w", operation, normalizedErr)
	}

	c.logger.Debug("交易所调用完成",
		zap.String("operation", operation),
		zap.Duration("latency", latency),
	)
	return nil
}

func convertOrderBook(productID string, ob ccxt.OrderBook, depth int) OrderBook {
	bids := convertLevels(ob.Bids)
	sort.SliceStable(bids, func(i, j int) bool { return bids[i].Price > bids[j].Price })
	asks := convertLevels(ob.Asks)
	sort.SliceStable(asks, func(i, j int) bool { return asks[i].Price < asks[j].Price })

	if len(bids) > depth {
		bids = bids[:depth]
	}
	if len(asks) > depth {
		asks = asks[:depth]
	}

	var ts time.Time
	if ob.Timestamp != nil {
		ts = time.UnixMilli(*ob.Timestamp).UTC()
	} else {
		ts = time.Now().UTC()
	}

	return OrderBook{
		ProductID: productID,
		Bids:      bids,
		Asks:      asks,
		Timestamp: ts,
	}
}

func convertLevels(raw [][]float64) []Level {
	levels := make([]Level, 0, len(raw))
	for _, level := range raw {
		if len(level) < 2 {
			continue
		}
		levels = append(levels, Level{
			Price: level[0],
			Size:  level[1],
		})
	}
	return levels
}

// toSymbol 将 Coinbase 产品 ID（BTC-USD）转换为 ccxt 统一符号（BTC/USD）。
func toSymbol(productID string) string {
	return strings.Replace(strings.ToUpper(productID), "-", "/", 1)
}
