package agent

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/rustyeddy/cockpit/gateway"
	"github.com/rustyeddy/cockpit/journal"
	"github.com/rustyeddy/cockpit/risk"
)

// Execute submits the signal's order to the gateway. In observation
// mode no broker call is made and (nil, nil) is returned, which is
// distinct from a failed execution. After a successful placement the
// trade is journaled; a journal failure is logged and never undoes the
// placed order.
func (a *Agent) Execute(ctx context.Context, sig Signal) (*gateway.OrderResult, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}

	if a.mode == ObservationOnly {
		a.log.Info("observation mode: would execute",
			zap.String("symbol", sig.Symbol),
			zap.String("action", sig.Action),
			zap.Int("quantity", sig.Quantity))
		return nil, nil
	}

	result, err := a.gw.PlaceOrder(ctx, sig.Ticket())
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", sig.Symbol, err)
	}
	if result == nil {
		return nil, fmt.Errorf("execute %s: order rejected", sig.Symbol)
	}

	a.log.Info("order executed",
		zap.String("order_id", result.OrderID),
		zap.String("symbol", sig.Symbol),
		zap.String("action", sig.Action),
		zap.Int("quantity", sig.Quantity))

	// Re-fetch the price to approximate the entry. This is a known
	// imprecision versus the true fill price.
	entryPrice := 0.0
	if quote, qerr := a.gw.GetMarketData(ctx, sig.Symbol); qerr == nil && quote != nil {
		entryPrice = quote.Last
	}

	stopLoss, takeProfit := 0.0, 0.0
	if entryPrice > 0 {
		stopLoss, takeProfit = protectiveLevels(entryPrice, sig)
		// Protective levels are informational and journaled; the
		// stop/target orders themselves are not submitted.
		a.log.Info("protective levels",
			zap.String("symbol", sig.Symbol),
			zap.Float64("stop_loss", stopLoss),
			zap.Float64("take_profit", takeProfit))
	}

	if a.journal != nil {
		tradeID, jerr := a.journal.LogTrade(journal.TradeRecord{
			Symbol:         sig.Symbol,
			Action:         sig.Action,
			Quantity:       sig.Quantity,
			OrderType:      string(sig.OrderType),
			EntryPrice:     entryPrice,
			StopLoss:       stopLoss,
			TakeProfit:     takeProfit,
			OrderID:        result.OrderID,
			TradingMode:    a.opts.TradingMode,
			AgentGenerated: true,
			Confidence:     sig.Confidence,
			Reasoning:      sig.Reasoning,
		})
		if jerr != nil {
			a.log.Error("failed to journal trade; order stands",
				zap.String("order_id", result.OrderID), zap.Error(jerr))
		} else {
			a.log.Info("trade journaled",
				zap.String("trade_id", tradeID),
				zap.String("order_id", result.OrderID))
		}
	}

	return result, nil
}

// protectiveLevels computes the absolute stop and target prices from
// the signal's percentages, direction-aware and rounded to cents.
func protectiveLevels(entryPrice float64, sig Signal) (stopLoss, takeProfit float64) {
	if risk.IsLong(sig.Action) {
		stopLoss = roundCents(entryPrice * (1 - sig.StopLossPct/100))
		takeProfit = roundCents(entryPrice * (1 + sig.ProfitTargetPct/100))
	} else {
		stopLoss = roundCents(entryPrice * (1 + sig.StopLossPct/100))
		takeProfit = roundCents(entryPrice * (1 - sig.ProfitTargetPct/100))
	}
	return stopLoss, takeProfit
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Submit routes a generated signal according to the execution mode:
// immediate execution under full autonomy, queued under manual
// approval, and a logged no-op under observation only.
func (a *Agent) Submit(ctx context.Context, sig Signal) (*gateway.OrderResult, error) {
	switch a.mode {
	case ManualApproval:
		// One pending slot per symbol: a fresh signal supersedes any
		// unapproved one so a stale proposal can never be approved at a
		// price that no longer exists.
		for i, p := range a.pending {
			if p.Symbol == sig.Symbol {
				a.pending[i] = sig
				a.log.Info("pending signal replaced",
					zap.String("signal_id", sig.ID),
					zap.String("superseded_id", p.ID),
					zap.String("symbol", sig.Symbol))
				return nil, nil
			}
		}
		a.pending = append(a.pending, sig)
		a.log.Info("signal queued for approval",
			zap.String("signal_id", sig.ID),
			zap.String("symbol", sig.Symbol),
			zap.String("action", sig.Action))
		return nil, nil
	default:
		return a.Execute(ctx, sig)
	}
}

// Pending returns the signals awaiting operator approval, oldest first.
func (a *Agent) Pending() []Signal {
	out := make([]Signal, len(a.pending))
	copy(out, a.pending)
	return out
}

// Approve executes the queued signal with the given ID.
func (a *Agent) Approve(ctx context.Context, signalID string) (*gateway.OrderResult, error) {
	sig, ok := a.takePending(signalID)
	if !ok {
		return nil, fmt.Errorf("approve: signal %q not pending", signalID)
	}
	return a.Execute(ctx, sig)
}

// Reject discards the queued signal with the given ID.
func (a *Agent) Reject(signalID string) bool {
	sig, ok := a.takePending(signalID)
	if ok {
		a.log.Info("signal rejected",
			zap.String("signal_id", sig.ID),
			zap.String("symbol", sig.Symbol))
	}
	return ok
}

func (a *Agent) takePending(signalID string) (Signal, bool) {
	for i, sig := range a.pending {
		if sig.ID == signalID {
			a.pending = append(a.pending[:i], a.pending[i+1:]...)
			return sig, true
		}
	}
	return Signal{}, false
}
