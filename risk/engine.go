package risk

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/rustyeddy/cockpit/gateway"
)

// Engine validates trades, sizes positions and tracks the daily P&L
// circuit breaker. It holds no position state of its own; account and
// position snapshots are fetched fresh from the gateway on every call.
type Engine struct {
	gw     gateway.Gateway
	log    *zap.Logger
	params Parameters

	dailyPnL float64
}

func NewEngine(gw gateway.Gateway, params Parameters, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{gw: gw, log: log, params: params}
}

// Parameters returns the current limits.
func (e *Engine) Parameters() Parameters {
	return e.params
}

// SetParameters replaces the limits wholesale. Operator action only.
func (e *Engine) SetParameters(p Parameters) {
	e.params = p
	e.log.Info("risk parameters updated",
		zap.Float64("max_position_size_usd", p.MaxPositionSizeUSD),
		zap.Int("max_position_size_shares", p.MaxPositionSizeShares),
		zap.Float64("max_daily_loss", p.MaxDailyLoss),
		zap.Bool("margin_enabled", p.MarginEnabled))
}

// DailyPnL returns the last refreshed daily P&L figure.
func (e *Engine) DailyPnL() float64 {
	return e.dailyPnL
}

// RefreshDailyPnL recomputes the daily P&L from the unrealized P&L of
// all open positions. Realized P&L from trades already closed today is
// not included; see DESIGN.md.
func (e *Engine) RefreshDailyPnL(ctx context.Context) error {
	positions, err := e.gw.GetPositions(ctx)
	if err != nil {
		return fmt.Errorf("refresh daily pnl: %w", err)
	}

	total := 0.0
	for _, p := range positions {
		total += p.UnrealizedPL
	}
	e.dailyPnL = total
	e.log.Info("daily P&L updated", zap.Float64("daily_pnl", total))
	return nil
}

// ValidateTrade runs the ordered limit checks for a proposed trade,
// short-circuiting on the first failure. The returned reason names the
// specific limit breached. A gateway failure returns an error and a
// denial; it is never treated as "trade allowed".
func (e *Engine) ValidateTrade(ctx context.Context, symbol, action string, quantity int, currentPrice float64) (bool, string, error) {
	act := NormalizeAction(action)

	account, err := e.gw.GetAccountSummary(ctx)
	if err != nil {
		return false, "account summary unavailable", fmt.Errorf("validate %s: %w", symbol, err)
	}
	positions, err := e.gw.GetPositions(ctx)
	if err != nil {
		return false, "positions unavailable", fmt.Errorf("validate %s: %w", symbol, err)
	}

	positionValue := float64(quantity) * currentPrice

	if positionValue > e.params.MaxPositionSizeUSD {
		return false, fmt.Sprintf("Position size $%.2f exceeds max $%.2f",
			positionValue, e.params.MaxPositionSizeUSD), nil
	}

	if quantity > e.params.MaxPositionSizeShares {
		return false, fmt.Sprintf("Quantity %d exceeds max %d shares",
			quantity, e.params.MaxPositionSizeShares), nil
	}

	if len(positions) >= e.params.MaxPositions {
		return false, fmt.Sprintf("Already at max positions (%d)", e.params.MaxPositions), nil
	}

	if IsLong(act) {
		if !e.params.MarginEnabled {
			if positionValue > account.AvailableCash {
				return false, fmt.Sprintf("Insufficient cash: need $%.2f, have $%.2f",
					positionValue, account.AvailableCash), nil
			}
		} else {
			maxMarginUse := account.BuyingPower * (e.params.MaxMarginUtilizationPct / 100)
			if positionValue > maxMarginUse {
				return false, fmt.Sprintf("Exceeds margin limits: $%.2f > $%.2f",
					positionValue, maxMarginUse), nil
			}
		}
	}

	if math.Abs(e.dailyPnL) >= e.params.MaxDailyLoss {
		return false, fmt.Sprintf("Daily loss limit reached: $%.2f", math.Abs(e.dailyPnL)), nil
	}

	return true, "Trade validated", nil
}

// PositionSize returns the share quantity for a new position: the
// minimum of the risk-based cap, the notional cap and the hard share
// cap, floored to an integer and never below 1. riskPct is the percent
// of total equity a stop-loss hit may lose (1.0 = 1%). A non-positive
// price is invalid input and returns an error rather than dividing by
// zero.
func (e *Engine) PositionSize(ctx context.Context, symbol string, currentPrice, riskPct float64) (int, error) {
	if currentPrice <= 0 {
		return 0, fmt.Errorf("position size %s: non-positive price %.4f", symbol, currentPrice)
	}

	account, err := e.gw.GetAccountSummary(ctx)
	if err != nil {
		return 0, fmt.Errorf("position size %s: %w", symbol, err)
	}

	riskAmount := account.TotalEquity * (riskPct / 100)

	sharesByRisk := math.MaxInt
	if stopDist := currentPrice * e.params.StopLossPct / 100; stopDist > 0 {
		sharesByRisk = int(riskAmount / stopDist)
	}
	sharesByNotional := int(e.params.MaxPositionSizeUSD / currentPrice)
	sharesByConfig := e.params.MaxPositionSizeShares

	quantity := min(sharesByRisk, min(sharesByNotional, sharesByConfig))
	if quantity < 1 {
		quantity = 1
	}
	return quantity, nil
}

// StopLoss returns the protective stop price for the given entry and
// action, rounded to cents. Long-equivalent actions stop below entry,
// short-equivalent above.
func (e *Engine) StopLoss(entryPrice float64, action string) float64 {
	if IsLong(action) {
		return roundCents(entryPrice * (1 - e.params.StopLossPct/100))
	}
	return roundCents(entryPrice * (1 + e.params.StopLossPct/100))
}

// TakeProfit returns the profit target price for the given entry and
// action, rounded to cents. customTargetPct overrides the configured
// take-profit percentage when positive.
func (e *Engine) TakeProfit(entryPrice float64, action string, customTargetPct float64) float64 {
	targetPct := e.params.TakeProfitPct
	if customTargetPct > 0 {
		targetPct = customTargetPct
	}
	if IsLong(action) {
		return roundCents(entryPrice * (1 + targetPct/100))
	}
	return roundCents(entryPrice * (1 - targetPct/100))
}

// Metrics describes the risk profile of one live position.
type Metrics struct {
	PositionExists bool
	MarketValue    float64
	PctOfPortfolio float64
	UnrealizedPL   float64
	UnrealizedPct  float64
	AtRiskAmount   float64
}

// PositionRiskMetrics reports the live position for symbol as a share of
// account equity plus its theoretical at-risk amount if the stop is hit.
func (e *Engine) PositionRiskMetrics(ctx context.Context, symbol string) (Metrics, error) {
	positions, err := e.gw.GetPositions(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("risk metrics %s: %w", symbol, err)
	}
	account, err := e.gw.GetAccountSummary(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("risk metrics %s: %w", symbol, err)
	}

	for _, p := range positions {
		if p.Symbol != symbol {
			continue
		}
		m := Metrics{
			PositionExists: true,
			MarketValue:    p.MarketValue,
			UnrealizedPL:   p.UnrealizedPL,
			UnrealizedPct:  p.UnrealizedPct,
			AtRiskAmount:   p.MarketValue * (e.params.StopLossPct / 100),
		}
		if account.TotalEquity > 0 {
			m.PctOfPortfolio = p.MarketValue / account.TotalEquity * 100
		}
		return m, nil
	}
	return Metrics{PositionExists: false}, nil
}

// WithinLimits is the pre-flight circuit breaker: it combines the daily
// loss limit and the max open positions check, independent of any
// specific trade.
func (e *Engine) WithinLimits(ctx context.Context) (bool, string, error) {
	if math.Abs(e.dailyPnL) >= e.params.MaxDailyLoss {
		return false, "Daily loss limit exceeded", nil
	}

	positions, err := e.gw.GetPositions(ctx)
	if err != nil {
		return false, "positions unavailable", fmt.Errorf("within limits: %w", err)
	}
	if len(positions) >= e.params.MaxPositions {
		return false, "Maximum positions reached", nil
	}

	return true, "Within risk limits", nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
