package agent

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/cockpit/gateway"
	"github.com/rustyeddy/cockpit/indicators"
	"github.com/rustyeddy/cockpit/market"
	"github.com/rustyeddy/cockpit/pkg/id"
	"github.com/rustyeddy/cockpit/predict"
)

const (
	atrPeriod      = 14
	atrDuration    = "30 D"
	atrBarSize     = "1 day"
	atrMultiplier  = 1.5
	minTargetPct   = 2.0
	maxTargetPct   = 15.0
	highVolRatio   = 0.03
	mediumVolRatio = 0.015
	trendEMAPeriod = 10
	trendMAPeriod  = 20
)

// TargetRecommendation is the volatility-adjusted profit target for a
// prospective entry. Volatility and trend classification are
// informational only.
type TargetRecommendation struct {
	TargetPct  float64
	ATR        float64
	Volatility string // Low, Medium, High
	Trend      string // Uptrend, Downtrend, Flat
}

// ProfitTargetRecommendation derives a profit target percentage from
// the 14-period daily ATR, clamped to [2,15]. When no usable history
// exists it falls back to the configured default target.
func (a *Agent) ProfitTargetRecommendation(ctx context.Context, symbol string, currentPrice float64) TargetRecommendation {
	candles := a.dailyBars(ctx, symbol)
	atr := a.dailyATR(symbol, candles)

	targetPct := a.opts.ProfitTargetPct
	if atr > 0 && currentPrice > 0 {
		targetPct = atr / currentPrice * 100 * atrMultiplier
	}
	targetPct = math.Round(math.Max(minTargetPct, math.Min(targetPct, maxTargetPct))*100) / 100

	volatility := "Low"
	if currentPrice > 0 {
		switch ratio := atr / currentPrice; {
		case ratio > highVolRatio:
			volatility = "High"
		case ratio > mediumVolRatio:
			volatility = "Medium"
		}
	}

	return TargetRecommendation{
		TargetPct:  targetPct,
		ATR:        atr,
		Volatility: volatility,
		Trend:      trendLabel(candles, currentPrice),
	}
}

// dailyBars fetches 30 calendar days of daily bars; any failure yields
// nil so the caller falls back to its defaults.
func (a *Agent) dailyBars(ctx context.Context, symbol string) []market.Candle {
	candles, err := a.gw.GetHistoricalData(ctx, symbol, atrDuration, atrBarSize)
	if err != nil {
		a.log.Warn("historical data unavailable", zap.String("symbol", symbol), zap.Error(err))
		return nil
	}
	return candles
}

// dailyATR computes the 14-period ATR over the daily bars, 0 when there
// is not enough history.
func (a *Agent) dailyATR(symbol string, candles []market.Candle) float64 {
	if len(candles) < atrPeriod+1 {
		return 0
	}

	atr, err := indicators.ATR(candles, atrPeriod)
	if err != nil {
		a.log.Warn("ATR calculation failed", zap.String("symbol", symbol), zap.Error(err))
		return 0
	}
	return atr
}

// trendLabel classifies the daily trend: price and the short EMA both
// above the long MA is an uptrend, both below a downtrend, anything
// mixed (or too little history) is flat.
func trendLabel(candles []market.Candle, currentPrice float64) string {
	ma, err := indicators.MA(candles, trendMAPeriod)
	if err != nil {
		return "Flat"
	}
	ema, err := indicators.EMA(candles, trendEMAPeriod)
	if err != nil {
		return "Flat"
	}

	switch {
	case currentPrice > ma && ema > ma:
		return "Uptrend"
	case currentPrice < ma && ema < ma:
		return "Downtrend"
	default:
		return "Flat"
	}
}

// Analyze evaluates one watched symbol and returns at most one signal,
// or nil when any stage decides "no signal". Collaborator failures are
// logged and converted to nil so one symbol can never crash the caller
// or abort a batch evaluation.
func (a *Agent) Analyze(ctx context.Context, symbol string) (sig *Signal) {
	if !a.active {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			a.log.Error("analysis panic recovered", zap.String("symbol", symbol), zap.Any("panic", r))
			sig = nil
		}
	}()

	quote, err := a.gw.GetMarketData(ctx, symbol)
	if err != nil || quote == nil {
		a.log.Warn("no market data available", zap.String("symbol", symbol), zap.Error(err))
		return nil
	}

	currentPrice := quote.Last
	if currentPrice == 0 {
		return nil
	}

	a.recordPrice(symbol, currentPrice)

	pred, err := a.ai.GenerateShortTermPrediction(ctx, symbol, *quote, a.history[symbol])
	if err != nil || pred == nil {
		a.log.Warn("no prediction available", zap.String("symbol", symbol), zap.Error(err))
		return nil
	}

	if pred.FiveMin.Confidence < minConfidence {
		a.log.Info("confidence too low, no signal",
			zap.String("symbol", symbol),
			zap.Float64("confidence", pred.FiveMin.Confidence))
		return nil
	}

	account, err := a.gw.GetAccountSummary(ctx)
	if err != nil {
		a.log.Warn("account summary unavailable", zap.String("symbol", symbol), zap.Error(err))
		return nil
	}
	if !a.opts.MarginEnabled && account.AvailableCash < a.opts.MaxPositionSizeUSD {
		a.log.Warn("insufficient cash for trade",
			zap.String("symbol", symbol),
			zap.Float64("available_cash", account.AvailableCash))
		return nil
	}

	quantity := min(a.opts.MaxPositionSizeShares, int(a.opts.MaxPositionSizeUSD/currentPrice))
	if quantity == 0 {
		return nil
	}

	var action string
	switch pred.FiveMin.Direction {
	case predict.Bullish:
		action = "BUY"
	case predict.Bearish:
		action = "SELL"
	default:
		return nil
	}

	rec := a.ProfitTargetRecommendation(ctx, symbol, currentPrice)

	tif := gateway.Day
	if a.horizon == Positional {
		tif = gateway.GTC
	}

	reasoning := pred.Reasoning
	if reasoning == "" {
		reasoning = "AI prediction"
	}

	s := &Signal{
		ID:              id.New(),
		Symbol:          symbol,
		Action:          action,
		Quantity:        quantity,
		OrderType:       gateway.Market,
		TIF:             tif,
		Confidence:      pred.FiveMin.Confidence / 100.0,
		Reasoning:       reasoning,
		CreatedAt:       time.Now(),
		ProfitTargetPct: rec.TargetPct,
		StopLossPct:     a.opts.StopLossPct,
	}

	a.log.Info("signal generated",
		zap.String("symbol", symbol),
		zap.String("action", action),
		zap.Int("quantity", quantity),
		zap.Float64("confidence", s.Confidence),
		zap.Float64("profit_target_pct", s.ProfitTargetPct),
		zap.String("volatility", rec.Volatility),
		zap.String("trend", rec.Trend))

	return s
}

// EvaluateWatchlist analyzes every watched symbol in order. A failure
// on one symbol never aborts evaluation of the rest.
func (a *Agent) EvaluateWatchlist(ctx context.Context) []Signal {
	var signals []Signal
	for _, symbol := range a.watchlist {
		if sig := a.Analyze(ctx, symbol); sig != nil {
			signals = append(signals, *sig)
		}
	}
	return signals
}
