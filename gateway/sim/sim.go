// Package sim provides a deterministic in-memory Gateway for tests and
// for running the cockpit without a live broker connection.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/cockpit/gateway"
	"github.com/rustyeddy/cockpit/market"
)

// Engine is a scriptable gateway: quotes, candles, the account snapshot
// and positions are set directly, and every placed order is recorded.
type Engine struct {
	mu        sync.Mutex
	quotes    map[string]market.Quote
	candles   map[string][]market.Candle
	account   market.AccountSnapshot
	positions []market.Position
	orders    []gateway.OrderTicket
	nextID    int

	// Failure injection for tests. A non-nil error is returned by the
	// corresponding method instead of data.
	QuoteErr    error
	HistoryErr  error
	AccountErr  error
	PositionErr error
	OrderErr    error
}

func NewEngine(account market.AccountSnapshot) *Engine {
	return &Engine{
		quotes:  make(map[string]market.Quote),
		candles: make(map[string][]market.Candle),
		account: account,
	}
}

// SetQuote installs the quote returned for symbol.
func (e *Engine) SetQuote(q market.Quote) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.quotes[q.Symbol] = q
}

// SetCandles installs the historical bars returned for symbol.
func (e *Engine) SetCandles(symbol string, candles []market.Candle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.candles[symbol] = candles
}

// SetAccount replaces the account snapshot.
func (e *Engine) SetAccount(a market.AccountSnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.account = a
}

// SetPositions replaces the open positions.
func (e *Engine) SetPositions(positions []market.Position) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.positions = positions
}

// Orders returns every ticket placed so far, in order.
func (e *Engine) Orders() []gateway.OrderTicket {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]gateway.OrderTicket, len(e.orders))
	copy(out, e.orders)
	return out
}

func (e *Engine) GetMarketData(ctx context.Context, symbol string) (*market.Quote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.QuoteErr != nil {
		return nil, e.QuoteErr
	}
	q, ok := e.quotes[symbol]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (e *Engine) GetHistoricalData(ctx context.Context, symbol, duration, barSize string) ([]market.Candle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.HistoryErr != nil {
		return nil, e.HistoryErr
	}
	return e.candles[symbol], nil
}

func (e *Engine) GetAccountSummary(ctx context.Context) (market.AccountSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.AccountErr != nil {
		return market.AccountSnapshot{}, e.AccountErr
	}
	return e.account, nil
}

func (e *Engine) GetPositions(ctx context.Context) ([]market.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.PositionErr != nil {
		return nil, e.PositionErr
	}
	out := make([]market.Position, len(e.positions))
	copy(out, e.positions)
	return out, nil
}

func (e *Engine) PlaceOrder(ctx context.Context, ticket gateway.OrderTicket) (*gateway.OrderResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.OrderErr != nil {
		return nil, e.OrderErr
	}

	e.orders = append(e.orders, ticket)
	e.nextID++

	return &gateway.OrderResult{
		OrderID:  fmt.Sprintf("SIM-%d", e.nextID),
		Symbol:   ticket.Symbol,
		Action:   ticket.Action,
		Quantity: ticket.Quantity,
		Type:     ticket.Type,
		Status:   "Submitted",
		Time:     time.Now(),
	}, nil
}

func (e *Engine) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	return false, nil
}

var _ gateway.Gateway = (*Engine)(nil)
