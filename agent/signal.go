// Package agent turns LLM predictions into risk-checked order proposals
// and coordinates their execution. All state is owned by a single
// goroutine driving the synchronous poll loop; there is no internal
// locking because there is no concurrent mutation.
package agent

import (
	"fmt"
	"time"

	"github.com/rustyeddy/cockpit/gateway"
)

// Signal is a fully-specified, not-yet-executed trade proposal. It is
// immutable once created: the agent consumes it exactly once, either
// executing or discarding it.
type Signal struct {
	ID              string
	Symbol          string
	Action          string // BUY or SELL
	Quantity        int
	OrderType       gateway.OrderType
	LimitPrice      *float64
	StopPrice       *float64
	TIF             gateway.TIF
	Confidence      float64 // 0.0 - 1.0
	Reasoning       string
	CreatedAt       time.Time
	ProfitTargetPct float64
	StopLossPct     float64
}

// Validate enforces the signal invariants: a positive quantity, a
// confidence in [0,1], and limit/stop prices present exactly when the
// order type requires them.
func (s Signal) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("signal: symbol required")
	}
	if s.Quantity <= 0 {
		return fmt.Errorf("signal %s: quantity must be positive, got %d", s.Symbol, s.Quantity)
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("signal %s: confidence %.2f out of range", s.Symbol, s.Confidence)
	}
	if s.OrderType.NeedsLimit() != (s.LimitPrice != nil) {
		return fmt.Errorf("signal %s: order type %s and limit price mismatch", s.Symbol, s.OrderType)
	}
	if s.OrderType.NeedsStop() != (s.StopPrice != nil) {
		return fmt.Errorf("signal %s: order type %s and stop price mismatch", s.Symbol, s.OrderType)
	}
	return nil
}

// Ticket converts the signal into the gateway order submission.
func (s Signal) Ticket() gateway.OrderTicket {
	return gateway.OrderTicket{
		Symbol:     s.Symbol,
		Action:     s.Action,
		Quantity:   s.Quantity,
		Type:       s.OrderType,
		LimitPrice: s.LimitPrice,
		StopPrice:  s.StopPrice,
		TIF:        s.TIF,
	}
}
