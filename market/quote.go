// Package market defines the data types shared by the gateway, risk and
// agent packages: quotes, candles, account snapshots and position views.
package market

import "time"

// Quote is a point-in-time market data snapshot for one symbol.
type Quote struct {
	Symbol  string
	Last    float64
	Bid     float64
	Ask     float64
	Close   float64 // previous session close
	Volume  int64
	BidSize int64
	AskSize int64
	Time    time.Time
}

// Spread returns the bid-ask spread.
func (q Quote) Spread() float64 {
	return q.Ask - q.Bid
}

// Candle represents OHLC (Open, High, Low, Close) candlestick data.
type Candle struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}
