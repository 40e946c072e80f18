package exchange

import "time"

// Level 表示盘口档位。
type Level struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// OrderBook 为订单簿快照，买盘价格降序，卖盘价格升序。
type OrderBook struct {
	ProductID string    `json:"product_id"`
	Bids      []Level   `json:"bids"`
	Asks      []Level   `json:"asks"`
	Timestamp time.Time `json:"timestamp"`
}

// BestBid 返回最优买价，没有买盘时 ok 为 false。
func (b OrderBook) BestBid() (Level, bool) {
	if len(b.Bids) == 0 {
		return Level{}, false
	}
	return b.Bids[0], true
}

// BestAsk 返回最优卖价，没有卖盘时 ok 为 false。
func (b OrderBook) BestAsk() (Level, bool) {
	if len(b.Asks) == 0 {
		return Level{}, false
	}
	return b.Asks[0], true
}

// Spread 返回买卖价差及其占卖一价的百分比。
func (b OrderBook) Spread() (spread, percent float64, ok bool) {
	bid, hasBid := b.BestBid()
	ask, hasAsk := b.BestAsk()
	if !hasBid || !hasAsk || ask.Price <= 0 {
		return 0, 0, false
	}
	spread = ask.Price - bid.Price
	return spread, spread / ask.Price * 100, true
}

// Account 描述单个币种账户的可用余额。
type Account struct {
	Currency  string  `json:"currency"`
	Available float64 `json:"available"`
}

// MarketBuyRequest 为按计价币金额下达的市价买单。
type MarketBuyRequest struct {
	ProductID     string
	QuoteAmount   float64
	QuoteSize     string
	ClientOrderID string
}

// Ack 为交易所对下单请求的确认。
type Ack struct {
	OrderID       string
	ClientOrderID string
	Status        string
}
