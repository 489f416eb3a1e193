// Package journal persists trade records for audit and analytics. A
// journal failure after a successful order placement is logged by the
// caller and never undoes the order.
package journal

import "time"

// TradeRecord is one journaled trade entry.
type TradeRecord struct {
	TradeID        string
	Symbol         string
	Action         string
	Quantity       int
	OrderType      string
	EntryPrice     float64
	StopLoss       float64
	TakeProfit     float64
	OrderID        string
	TradingMode    string // PAPER or LIVE
	AgentGenerated bool
	Confidence     float64
	Reasoning      string
	EntryTime      time.Time

	// Exit fields, populated by UpdateExit.
	ExitPrice float64
	PnL       float64
	PnLPct    float64
	Status    string // OPEN or CLOSED
	ExitTime  time.Time
}

// ExitUpdate carries the fields recorded when a trade is closed.
type ExitUpdate struct {
	ExitPrice float64
	PnL       float64
	PnLPct    float64
	ExitTime  time.Time
}

type Journal interface {
	// LogTrade records a new trade and returns its trade ID.
	LogTrade(rec TradeRecord) (string, error)
	// UpdateExit marks a trade closed and records its realized P&L.
	UpdateExit(tradeID string, exit ExitUpdate) error
	// ListTrades returns the most recent trades, newest first.
	ListTrades(limit int) ([]TradeRecord, error)
	Close() error
}
