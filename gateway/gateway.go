// Package gateway defines the brokerage capability interface the cockpit
// core depends on. Implementations live in subpackages (ibgw for the IB
// gateway bridge, sim for the in-memory test gateway).
package gateway

import (
	"context"
	"time"

	"github.com/rustyeddy/cockpit/market"
)

// OrderType is the broker order type.
type OrderType string

const (
	Market    OrderType = "MKT"
	Limit     OrderType = "LMT"
	Stop      OrderType = "STP"
	StopLimit OrderType = "STP_LMT"
)

// NeedsLimit reports whether the order type requires a limit price.
func (t OrderType) NeedsLimit() bool {
	return t == Limit || t == StopLimit
}

// NeedsStop reports whether the order type requires a stop price.
func (t OrderType) NeedsStop() bool {
	return t == Stop || t == StopLimit
}

// TIF is the order time-in-force.
type TIF string

const (
	Day TIF = "DAY"
	GTC TIF = "GTC"
)

// OrderTicket is a fully-specified order submission.
type OrderTicket struct {
	Symbol     string
	Action     string // BUY, SELL, SELL_SHORT, BUY_TO_COVER
	Quantity   int
	Type       OrderType
	LimitPrice *float64
	StopPrice  *float64
	TIF        TIF
}

// OrderResult is returned by the broker after a successful submission.
// It reports acceptance, not a fill.
type OrderResult struct {
	OrderID  string
	Symbol   string
	Action   string
	Quantity int
	Type     OrderType
	Status   string
	Time     time.Time
}

// Gateway exposes the broker capabilities the core needs: quotes, bars,
// account state and order placement. A nil quote or empty history means
// "no data", which callers must treat as "no decision can be made".
type Gateway interface {
	GetMarketData(ctx context.Context, symbol string) (*market.Quote, error)
	GetHistoricalData(ctx context.Context, symbol, duration, barSize string) ([]market.Candle, error)
	GetAccountSummary(ctx context.Context) (market.AccountSnapshot, error)
	GetPositions(ctx context.Context) ([]market.Position, error)
	PlaceOrder(ctx context.Context, ticket OrderTicket) (*OrderResult, error)
	CancelOrder(ctx context.Context, orderID string) (bool, error)
}
