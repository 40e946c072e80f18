package exchange

import (
	"context"
	"testing"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateway_ReadFailuresBecomeAbsence(t *testing.T) {
	transport := &ccxt.Error{Type: ccxt.NetworkErrorErrType, Message: "connection reset"}
	api := &mockCoinbaseAPI{tickerErr: transport, bookErr: transport, balErr: transport}
	gw := NewGateway(newClient(api, nil, nil), nil)
	ctx := context.Background()

	price, ok := gw.CurrentPrice(ctx, "BTC-USD")
	assert.False(t, ok)
	assert.Zero(t, price)

	_, ok = gw.OrderBook(ctx, "BTC-USD", 10)
	assert.False(t, ok)

	_, ok = gw.Balance(ctx, "USD")
	assert.False(t, ok)
}

func TestGateway_BalanceMissingCurrency(t *testing.T) {
	api := &mockCoinbaseAPI{balances: ccxt.Balances{Free: map[string]*float64{"BTC": ptr(0.5)}}}
	gw := NewGateway(newClient(api, nil, nil), nil)

	_, ok := gw.Balance(context.Background(), "usd")
	assert.False(t, ok)

	btc, ok := gw.Balance(context.Background(), "btc")
	require.True(t, ok)
	assert.Equal(t, 0.5, btc)
}

func TestGateway_EmptyOrderBookIsAbsent(t *testing.T) {
	gw := NewGateway(newClient(&mockCoinbaseAPI{}, nil, nil), nil)

	_, ok := gw.OrderBook(context.Background(), "BTC-USD", 5)
	assert.False(t, ok)
}

func TestGateway_SubmitMarketBuyKeepsCause(t *testing.T) {
	cause := &ccxt.Error{Type: ccxt.RequestTimeoutErrType, Message: "timed out"}
	gw := NewGateway(newClient(&mockCoinbaseAPI{orderErr: cause}, nil, nil), nil)

	_, err := gw.SubmitMarketBuy(context.Background(), MarketBuyRequest{ProductID: "BTC-USD", QuoteAmount: 10})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)

	var ccxtErr *ccxt.Error
	assert.ErrorAs(t, err, &ccxtErr)
}
