package execution

import (
	"context"

	"coinbase-trader/internal/exchange"
)

// Trader 抽象下单入口，方便在调用方替换实现。
type Trader interface {
	PlaceMarketBuy(ctx context.Context, req OrderRequest) (Result, error)
}

var _ Trader = (*Pipeline)(nil)

// Gateway 是流水线依赖的交易所能力，测试中可用替身实现。
type Gateway interface {
	CurrentPrice(ctx context.Context, pair string) (float64, bool)
	OrderBook(ctx context.Context, pair string, depth int) (exchange.OrderBook, bool)
	Balance(ctx context.Context, currency string) (float64, bool)
	SubmitMarketBuy(ctx context.Context, req exchange.MarketBuyRequest) (exchange.Ack, error)
}

var _ Gateway = (*exchange.Gateway)(nil)

// Recorder 记录下单结果，用于审计。
type Recorder interface {
	RecordSimulated(ctx context.Context, order *Simulated)
	RecordPlaced(ctx context.Context, order *Placed)
	RecordRejection(ctx context.Context, req OrderRequest, err error)
	RecordFailure(ctx context.Context, req OrderRequest, err error)
}

// Reconciler 按客户端订单号查询真实订单状态，用于处理结果不确定的下单。
// 目前没有实现，对账由操作者在交易所完成。
type Reconciler interface {
	LookupByClientOrderID(ctx context.Context, clientOrderID string) (*Placed, error)
}

type nopRecorder struct{}

func (nopRecorder) RecordSimulated(context.Context, *Simulated) {}

func (nopRecorder) RecordPlaced(context.Context, *Placed) {}

func (nopRecorder) RecordRejection(context.Context, OrderRequest, error) {}

func (nopRecorder) RecordFailure(context.Context, OrderRequest, error) {}
