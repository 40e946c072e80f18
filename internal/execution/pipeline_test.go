package execution

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinbase-trader/internal/config"
	"coinbase-trader/internal/exchange"
	"coinbase-trader/internal/risk"
)

type fakeGateway struct {
	price      float64
	priceOK    bool
	balance    float64
	balanceOK  bool
	ack        exchange.Ack
	submitErr  error
	calls      []string
	submitted  []exchange.MarketBuyRequest
	currencies []string
}

func (f *fakeGateway) CurrentPrice(ctx context.Context, pair string) (float64, bool) {
	f.calls = append(f.calls, "CurrentPrice")
	return f.price, f.priceOK
}

func (f *fakeGateway) OrderBook(ctx context.Context, pair string, depth int) (exchange.OrderBook, bool) {
	f.calls = append(f.calls, "OrderBook")
	return exchange.OrderBook{}, false
}

func (f *fakeGateway) Balance(ctx context.Context, currency string) (float64, bool) {
	f.calls = append(f.calls, "Balance")
	f.currencies = append(f.currencies, currency)
	return f.balance, f.balanceOK
}

func (f *fakeGateway) SubmitMarketBuy(ctx context.Context, req exchange.MarketBuyRequest) (exchange.Ack, error) {
	f.calls = append(f.calls, "SubmitMarketBuy")
	f.submitted = append(f.submitted, req)
	return f.ack, f.submitErr
}

type fakeRecorder struct {
	events []string
}

func (r *fakeRecorder) RecordSimulated(ctx context.Context, order *Simulated) {
	r.events = append(r.events, "simulated")
}

func (r *fakeRecorder) RecordPlaced(ctx context.Context, order *Placed) {
	r.events = append(r.events, "placed")
}

func (r *fakeRecorder) RecordRejection(ctx context.Context, req OrderRequest, err error) {
	r.events = append(r.events, "rejected")
}

func (r *fakeRecorder) RecordFailure(ctx context.Context, req OrderRequest, err error) {
	r.events = append(r.events, "failed")
}

func tradingConfig(mode string) config.TradingConfig {
	return config.TradingConfig{
		Mode:           mode,
		MaxOrderUSD:    50,
		MinOrderUSD:    1,
		Pair:           "BTC-USD",
		OrderBookDepth: 10,
	}
}

func TestPlaceMarketBuy_AmountGuardsMakeNoGatewayCalls(t *testing.T) {
	cases := []struct {
		amount float64
		reason risk.Reason
	}{
		{0, risk.ReasonInvalidAmount},
		{-1, risk.ReasonInvalidAmount},
		{-0.0001, risk.ReasonInvalidAmount},
		{50.01, risk.ReasonExceedsConfiguredLimit},
		{1000, risk.ReasonExceedsConfiguredLimit},
		{0.5, risk.ReasonBelowExchangeMinimum},
		{0.99, risk.ReasonBelowExchangeMinimum},
	}

	for _, mode := range []string{config.ModeDryRun, config.ModeLive} {
		for _, tc := range cases {
			gw := &fakeGateway{priceOK: true, price: 50000, balanceOK: true, balance: 1000}
			rec := &fakeRecorder{}
			p := NewPipeline(tradingConfig(mode), gw, nil, WithRecorder(rec))

			result, err := p.PlaceMarketBuy(context.Background(), OrderRequest{USDAmount: tc.amount})
			require.Nil(t, result, "mode=%s amount=%.4f", mode, tc.amount)

			var rejection *risk.Rejection
			require.ErrorAs(t, err, &rejection, "mode=%s amount=%.4f", mode, tc.amount)
			assert.Equal(t, tc.reason, rejection.Reason, "mode=%s amount=%.4f", mode, tc.amount)
			assert.Empty(t, gw.calls, "mode=%s amount=%.4f", mode, tc.amount)
			assert.False(t, IsAmbiguous(err))
			assert.Equal(t, []string{"rejected"}, rec.events)
		}
	}
}

func TestPlaceMarketBuy_ExceedsLimitReportsBothValues(t *testing.T) {
	p := NewPipeline(tradingConfig(config.ModeDryRun), &fakeGateway{}, nil)

	_, err := p.PlaceMarketBuy(context.Background(), OrderRequest{USDAmount: 75})
	var rejection *risk.Rejection
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, 75.0, rejection.Amount)
	assert.Equal(t, 50.0, rejection.Limit)
	assert.Contains(t, err.Error(), "75.00")
	assert.Contains(t, err.Error(), "50.00")
}

func TestPlaceMarketBuy_DryRunEndToEnd(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	gw := &fakeGateway{price: 50000, priceOK: true}
	rec := &fakeRecorder{}
	p := NewPipeline(tradingConfig(config.ModeDryRun), gw, nil, WithRecorder(rec), WithClock(func() time.Time { return fixed }))

	result, err := p.PlaceMarketBuy(context.Background(), OrderRequest{USDAmount: 10})
	require.NoError(t, err)

	sim, ok := result.(*Simulated)
	require.True(t, ok, "expected *Simulated, got %T", result)
	assert.Equal(t, "50000.00", sim.EstimatedFillPrice)
	assert.Equal(t, "0.00020000", sim.EstimatedQuantity)
	assert.Equal(t, "10.00", sim.QuoteSize)
	assert.Equal(t, "BTC-USD", sim.ProductID)
	assert.Equal(t, OrderSideBuy, sim.Side)
	assert.True(t, sim.Timestamp.Equal(fixed))
	assert.True(t, IsSimulatedOrderID(sim.OrderID))
	assert.Len(t, sim.OrderID, len(simulatedOrderPrefix)+8)

	assert.NotContains(t, gw.calls, "Balance")
	assert.NotContains(t, gw.calls, "SubmitMarketBuy")
	assert.Equal(t, []string{"simulated"}, rec.events)
}

func TestPlaceMarketBuy_DryRunIsRepeatableWithFreshIDs(t *testing.T) {
	gw := &fakeGateway{price: 43210.5, priceOK: true}
	p := NewPipeline(tradingConfig(config.ModeDryRun), gw, nil)

	first, err := p.PlaceMarketBuy(context.Background(), OrderRequest{USDAmount: 25})
	require.NoError(t, err)
	second, err := p.PlaceMarketBuy(context.Background(), OrderRequest{USDAmount: 25})
	require.NoError(t, err)

	a, b := first.(*Simulated), second.(*Simulated)
	assert.Equal(t, a.EstimatedQuantity, b.EstimatedQuantity)
	assert.Equal(t, a.EstimatedFillPrice, b.EstimatedFillPrice)
	assert.NotEqual(t, a.OrderID, b.OrderID)
}

func TestPlaceMarketBuy_DryRunDegradesWithoutPrice(t *testing.T) {
	gw := &fakeGateway{priceOK: false}
	p := NewPipeline(tradingConfig(config.ModeDryRun), gw, nil)

	result, err := p.PlaceMarketBuy(context.Background(), OrderRequest{USDAmount: 10})
	require.NoError(t, err, "price failure must not abort the simulation")

	sim := result.(*Simulated)
	assert.Equal(t, "0.00", sim.EstimatedFillPrice)
	assert.Equal(t, "0.00000000", sim.EstimatedQuantity)
}

func TestPlaceMarketBuy_LiveInsufficientBalance(t *testing.T) {
	gw := &fakeGateway{balance: 5, balanceOK: true, ack: exchange.Ack{OrderID: "should-not-happen"}}
	rec := &fakeRecorder{}
	p := NewPipeline(tradingConfig(config.ModeLive), gw, nil, WithRecorder(rec))

	result, err := p.PlaceMarketBuy(context.Background(), OrderRequest{USDAmount: 10})
	require.Nil(t, result)

	var rejection *risk.Rejection
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, risk.ReasonInsufficientBalance, rejection.Reason)
	assert.Empty(t, gw.submitted)
	assert.Equal(t, []string{"USD"}, gw.currencies)
	assert.Equal(t, []string{"rejected"}, rec.events)
}

func TestPlaceMarketBuy_LiveSuccess(t *testing.T) {
	gw := &fakeGateway{balance: 100, balanceOK: true, ack: exchange.Ack{OrderID: "abc123", Status: "PENDING"}}
	rec := &fakeRecorder{}
	p := NewPipeline(tradingConfig(config.ModeLive), gw, nil, WithRecorder(rec))

	result, err := p.PlaceMarketBuy(context.Background(), OrderRequest{USDAmount: 10})
	require.NoError(t, err)

	placed, ok := result.(*Placed)
	require.True(t, ok, "expected *Placed, got %T", result)
	assert.Equal(t, "abc123", placed.OrderID)
	assert.Equal(t, "10.0", placed.QuoteSize)
	assert.NotEmpty(t, placed.ClientOrderID)

	require.Len(t, gw.submitted, 1)
	sent := gw.submitted[0]
	assert.Equal(t, placed.ClientOrderID, sent.ClientOrderID)
	assert.Equal(t, "BTC-USD", sent.ProductID)
	assert.Equal(t, 10.0, sent.QuoteAmount)
	assert.Equal(t, "10.0", sent.QuoteSize)

	assert.Equal(t, []string{"Balance", "SubmitMarketBuy"}, gw.calls)
	assert.Equal(t, []string{"placed"}, rec.events)
}

func TestPlaceMarketBuy_LiveUnknownBalanceStillSubmits(t *testing.T) {
	gw := &fakeGateway{balanceOK: false, ack: exchange.Ack{OrderID: "xyz"}}
	p := NewPipeline(tradingConfig(config.ModeLive), gw, nil)

	result, err := p.PlaceMarketBuy(context.Background(), OrderRequest{USDAmount: 10})
	require.NoError(t, err, "unknown balance must not block submission")
	assert.Equal(t, "xyz", result.ID())
}

func TestPlaceMarketBuy_LiveSubmissionFailureIsAmbiguous(t *testing.T) {
	cause := errors.New("connection reset by peer")
	gw := &fakeGateway{balance: 100, balanceOK: true, submitErr: cause}
	rec := &fakeRecorder{}
	p := NewPipeline(tradingConfig(config.ModeLive), gw, nil, WithRecorder(rec))

	result, err := p.PlaceMarketBuy(context.Background(), OrderRequest{USDAmount: 10})
	require.Nil(t, result)
	require.True(t, IsAmbiguous(err), "expected ambiguous submission error, got %v", err)
	assert.False(t, IsRejection(err))
	assert.ErrorIs(t, err, cause)

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.NotEmpty(t, subErr.ClientOrderID)
	assert.Contains(t, subErr.Caveat(), subErr.ClientOrderID)
	assert.Len(t, gw.submitted, 1, "failed submission must not be retried")
	assert.Equal(t, []string{"failed"}, rec.events)
}

func TestPlaceMarketBuy_CanceledBeforeSendIsNotAmbiguous(t *testing.T) {
	notSent := fmt.Errorf("exchange: create_order: %w: %w", exchange.ErrNotSent, context.Canceled)
	gw := &fakeGateway{balanceOK: false, submitErr: notSent}
	rec := &fakeRecorder{}
	p := NewPipeline(tradingConfig(config.ModeLive), gw, nil, WithRecorder(rec))

	result, err := p.PlaceMarketBuy(context.Background(), OrderRequest{USDAmount: 10})
	require.Nil(t, result)
	require.ErrorIs(t, err, ErrNotSubmitted)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsAmbiguous(err))
	assert.False(t, IsRejection(err))
	assert.Equal(t, []string{"failed"}, rec.events)
}

func TestPlaceMarketBuy_ConfigCopiedAtConstruction(t *testing.T) {
	cfg := tradingConfig(config.ModeDryRun)
	gw := &fakeGateway{price: 100, priceOK: true}
	p := NewPipeline(cfg, gw, nil)

	cfg.Mode = config.ModeLive
	cfg.MaxOrderUSD = 1000

	require.True(t, p.DryRun(), "pipeline mode must not follow later config mutation")
	_, err := p.PlaceMarketBuy(context.Background(), OrderRequest{USDAmount: 500})
	assert.True(t, IsRejection(err), "expected limit from construction time, got %v", err)
}

func TestFormatQuoteSize(t *testing.T) {
	cases := map[float64]string{
		10:    "10.0",
		12.5:  "12.5",
		1:     "1.0",
		33.33: "33.33",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatQuoteSize(in), "FormatQuoteSize(%v)", in)
	}
}

func TestNewSimulatedOrderID(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := newSimulatedOrderID()
		require.True(t, IsSimulatedOrderID(id), "missing prefix: %s", id)

		suffix := strings.TrimPrefix(id, simulatedOrderPrefix)
		require.Len(t, suffix, 8)
		require.Equal(t, strings.ToUpper(suffix), suffix)

		require.NotContains(t, seen, id)
		seen[id] = struct{}{}
	}
}

func TestPlaceMarketBuy_NaNAmountRejected(t *testing.T) {
	gw := &fakeGateway{}
	p := NewPipeline(tradingConfig(config.ModeDryRun), gw, nil)

	_, err := p.PlaceMarketBuy(context.Background(), OrderRequest{USDAmount: math.NaN()})
	var rejection *risk.Rejection
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, risk.ReasonInvalidAmount, rejection.Reason)
	assert.Empty(t, gw.calls)
}
