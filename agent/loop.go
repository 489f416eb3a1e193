package agent

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Run drives the poll loop: every interval it refreshes the daily P&L,
// checks the risk circuit breakers and evaluates the watchlist,
// submitting any signals according to the execution mode. Everything
// runs sequentially on the calling goroutine; a slow gateway or
// prediction call stalls the cycle, which is acceptable for this
// low-frequency design. Run returns when ctx is cancelled.
func (a *Agent) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.log.Info("evaluation loop started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			a.log.Info("evaluation loop stopped")
			return
		case <-ticker.C:
			a.runCycle(ctx)
		}
	}
}

// runCycle is one evaluation pass over the watchlist.
func (a *Agent) runCycle(ctx context.Context) {
	if !a.active {
		return
	}

	if err := a.risk.RefreshDailyPnL(ctx); err != nil {
		a.log.Warn("daily P&L refresh failed, skipping cycle", zap.Error(err))
		return
	}

	ok, reason, err := a.risk.WithinLimits(ctx)
	if err != nil {
		a.log.Warn("risk pre-flight failed, skipping cycle", zap.Error(err))
		return
	}
	if !ok {
		a.log.Warn("risk limits reached, skipping cycle", zap.String("reason", reason))
		return
	}

	for _, sig := range a.EvaluateWatchlist(ctx) {
		allowed, why, verr := a.risk.ValidateTrade(ctx, sig.Symbol, sig.Action, sig.Quantity, a.lastPrice(sig.Symbol))
		if verr != nil {
			a.log.Warn("trade validation unavailable", zap.String("symbol", sig.Symbol), zap.Error(verr))
			continue
		}
		if !allowed {
			a.log.Info("trade denied", zap.String("symbol", sig.Symbol), zap.String("reason", why))
			continue
		}

		if _, err := a.Submit(ctx, sig); err != nil {
			a.log.Error("signal submission failed", zap.String("symbol", sig.Symbol), zap.Error(err))
		}
	}
}

// lastPrice returns the most recent observed price for symbol, 0 if
// none.
func (a *Agent) lastPrice(symbol string) float64 {
	h := a.history[symbol]
	if len(h) == 0 {
		return 0
	}
	return h[len(h)-1]
}
