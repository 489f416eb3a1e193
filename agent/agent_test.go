package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/cockpit/gateway/sim"
	"github.com/rustyeddy/cockpit/journal"
	"github.com/rustyeddy/cockpit/market"
	"github.com/rustyeddy/cockpit/predict"
	"github.com/rustyeddy/cockpit/risk"
)

type fakePredictor struct {
	pred  *predict.Prediction
	err   error
	calls int
}

func (f *fakePredictor) GenerateShortTermPrediction(ctx context.Context, symbol string, quote market.Quote, history []float64) (*predict.Prediction, error) {
	f.calls++
	return f.pred, f.err
}

type fakeJournal struct {
	records []journal.TradeRecord
	err     error
}

func (f *fakeJournal) LogTrade(rec journal.TradeRecord) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.records = append(f.records, rec)
	return "T-1", nil
}

func (f *fakeJournal) UpdateExit(string, journal.ExitUpdate) error { return nil }
func (f *fakeJournal) ListTrades(int) ([]journal.TradeRecord, error) {
	return f.records, nil
}
func (f *fakeJournal) Close() error { return nil }

func bullish(confidence float64) *predict.Prediction {
	return &predict.Prediction{
		FiveMin:   predict.Forecast{Direction: predict.Bullish, Confidence: confidence},
		Reasoning: "momentum building",
	}
}

// newTestAgent wires an active agent against the sim gateway with
// $20,000 cash and an AAPL quote at $150.
func newTestAgent(t *testing.T, pred *fakePredictor) (*Agent, *sim.Engine, *fakeJournal) {
	t.Helper()

	gw := sim.NewEngine(market.AccountSnapshot{
		TotalEquity:   50000,
		AvailableCash: 20000,
		BuyingPower:   40000,
	})
	gw.SetQuote(market.Quote{Symbol: "AAPL", Last: 150, Bid: 149.99, Ask: 150.01})

	jnl := &fakeJournal{}
	re := risk.NewEngine(gw, risk.DefaultParameters(), nil)
	a := New(gw, pred, re, jnl, DefaultOptions(), nil)
	a.SetActive(true)
	a.Watch("AAPL")
	return a, gw, jnl
}

func TestAnalyze_InactiveAgentProducesNothing(t *testing.T) {
	t.Parallel()

	p := &fakePredictor{pred: bullish(90)}
	a, _, _ := newTestAgent(t, p)
	a.SetActive(false)

	assert.Nil(t, a.Analyze(context.Background(), "AAPL"))
	assert.Zero(t, p.calls)
}

func TestAnalyze_ConfidenceBoundary(t *testing.T) {
	t.Parallel()

	// 59 is below the floor: no signal.
	p := &fakePredictor{pred: bullish(59)}
	a, _, _ := newTestAgent(t, p)
	assert.Nil(t, a.Analyze(context.Background(), "AAPL"))

	// 60 is exactly at the floor: BUY signal.
	p = &fakePredictor{pred: bullish(60)}
	a, _, _ = newTestAgent(t, p)
	sig := a.Analyze(context.Background(), "AAPL")
	require.NotNil(t, sig)
	assert.Equal(t, "BUY", sig.Action)
	assert.InDelta(t, 0.60, sig.Confidence, 1e-9)
}

func TestAnalyze_EndToEndScenario(t *testing.T) {
	t.Parallel()

	p := &fakePredictor{pred: bullish(75)}
	a, _, _ := newTestAgent(t, p)

	sig := a.Analyze(context.Background(), "AAPL")
	require.NotNil(t, sig)

	// floor($10,000 / $150) = 66, capped at 100 shares.
	assert.Equal(t, "AAPL", sig.Symbol)
	assert.Equal(t, "BUY", sig.Action)
	assert.Equal(t, 66, sig.Quantity)
	assert.Equal(t, "MKT", string(sig.OrderType))
	assert.Equal(t, "DAY", string(sig.TIF))
	assert.InDelta(t, 0.75, sig.Confidence, 1e-9)
	assert.Equal(t, "momentum building", sig.Reasoning)
	assert.NoError(t, sig.Validate())
}

func TestAnalyze_DirectionMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		direction predict.Direction
		action    string // "" means no signal
	}{
		{predict.Bullish, "BUY"},
		{predict.Bearish, "SELL"},
		{predict.Neutral, ""},
	}

	for _, tt := range tests {
		p := &fakePredictor{pred: &predict.Prediction{
			FiveMin: predict.Forecast{Direction: tt.direction, Confidence: 80},
		}}
		a, _, _ := newTestAgent(t, p)

		sig := a.Analyze(context.Background(), "AAPL")
		if tt.action == "" {
			assert.Nil(t, sig, "direction %s", tt.direction)
		} else {
			require.NotNil(t, sig, "direction %s", tt.direction)
			assert.Equal(t, tt.action, sig.Action)
		}
	}
}

func TestAnalyze_NoQuoteOrZeroPrice(t *testing.T) {
	t.Parallel()

	p := &fakePredictor{pred: bullish(80)}
	a, gw, _ := newTestAgent(t, p)

	// Unknown symbol: the sim returns a nil quote.
	a.Watch("TSLA")
	assert.Nil(t, a.Analyze(context.Background(), "TSLA"))

	// Zero last price.
	gw.SetQuote(market.Quote{Symbol: "AAPL", Last: 0})
	assert.Nil(t, a.Analyze(context.Background(), "AAPL"))
	assert.Zero(t, p.calls)

	// Quote fetch failure.
	gw.QuoteErr = errors.New("disconnected")
	assert.Nil(t, a.Analyze(context.Background(), "AAPL"))
}

func TestAnalyze_PredictionFailureMeansNoSignal(t *testing.T) {
	t.Parallel()

	p := &fakePredictor{err: errors.New("all models failed")}
	a, _, _ := newTestAgent(t, p)
	assert.Nil(t, a.Analyze(context.Background(), "AAPL"))
}

func TestAnalyze_InsufficientCash(t *testing.T) {
	t.Parallel()

	p := &fakePredictor{pred: bullish(80)}
	a, gw, _ := newTestAgent(t, p)
	gw.SetAccount(market.AccountSnapshot{AvailableCash: 5000})

	assert.Nil(t, a.Analyze(context.Background(), "AAPL"))

	// Margin enabled skips the cash gate.
	opts := a.Options()
	opts.MarginEnabled = true
	a.SetOptions(opts)
	assert.NotNil(t, a.Analyze(context.Background(), "AAPL"))
}

func TestAnalyze_PositionalHorizonUsesGTC(t *testing.T) {
	t.Parallel()

	p := &fakePredictor{pred: bullish(80)}
	a, _, _ := newTestAgent(t, p)
	a.SetHorizon(Positional)

	sig := a.Analyze(context.Background(), "AAPL")
	require.NotNil(t, sig)
	assert.Equal(t, "GTC", string(sig.TIF))
}

func TestPriceHistory_SlidingWindow(t *testing.T) {
	t.Parallel()

	p := &fakePredictor{pred: bullish(80)}
	a, _, _ := newTestAgent(t, p)

	for i := 0; i < 150; i++ {
		a.recordPrice("AAPL", float64(i))
	}

	h := a.PriceHistory("AAPL")
	require.Len(t, h, 100)
	// Oldest entries are evicted first.
	assert.Equal(t, 50.0, h[0])
	assert.Equal(t, 149.0, h[99])
}

func TestWatchlist_OrderedAndDeduped(t *testing.T) {
	t.Parallel()

	a, _, _ := newTestAgent(t, &fakePredictor{})
	a.Watch("TSLA")
	a.Watch("AAPL") // duplicate
	a.Watch("MSFT")

	assert.Equal(t, []string{"AAPL", "TSLA", "MSFT"}, a.Watchlist())

	a.Unwatch("TSLA")
	assert.Equal(t, []string{"AAPL", "MSFT"}, a.Watchlist())
	assert.Empty(t, a.PriceHistory("TSLA"))
}

func TestEvaluateWatchlist_OneFailureDoesNotAbortOthers(t *testing.T) {
	t.Parallel()

	p := &fakePredictor{pred: bullish(80)}
	a, gw, _ := newTestAgent(t, p)
	a.Watch("BROKEN") // no quote in the sim
	a.Watch("MSFT")
	gw.SetQuote(market.Quote{Symbol: "MSFT", Last: 300})

	signals := a.EvaluateWatchlist(context.Background())
	require.Len(t, signals, 2)
	assert.Equal(t, "AAPL", signals[0].Symbol)
	assert.Equal(t, "MSFT", signals[1].Symbol)
}

func TestProfitTarget_ATRBasedAndClamped(t *testing.T) {
	t.Parallel()

	a, gw, _ := newTestAgent(t, &fakePredictor{})

	// 15 identical candles with TR = 3 on a $100 stock:
	// target = 3/100 * 100 * 1.5 = 4.5, volatility 3% -> Medium edge.
	candles := make([]market.Candle, 15)
	for i := range candles {
		candles[i] = market.Candle{High: 102, Low: 99, Close: 100}
	}
	gw.SetCandles("AAPL", candles)

	rec := a.ProfitTargetRecommendation(context.Background(), "AAPL", 100)
	assert.InDelta(t, 4.5, rec.TargetPct, 1e-9)
	assert.InDelta(t, 3.0, rec.ATR, 1e-9)
	assert.Equal(t, "Medium", rec.Volatility)

	// Idempotent for identical input.
	rec2 := a.ProfitTargetRecommendation(context.Background(), "AAPL", 100)
	assert.Equal(t, rec, rec2)

	// Tiny range clamps up to 2%.
	for i := range candles {
		candles[i] = market.Candle{High: 100.1, Low: 100, Close: 100.05}
	}
	gw.SetCandles("AAPL", candles)
	rec = a.ProfitTargetRecommendation(context.Background(), "AAPL", 100)
	assert.InDelta(t, 2.0, rec.TargetPct, 1e-9)
	assert.Equal(t, "Low", rec.Volatility)

	// Huge range clamps down to 15%.
	for i := range candles {
		candles[i] = market.Candle{High: 120, Low: 80, Close: 100}
	}
	gw.SetCandles("AAPL", candles)
	rec = a.ProfitTargetRecommendation(context.Background(), "AAPL", 100)
	assert.InDelta(t, 15.0, rec.TargetPct, 1e-9)
	assert.Equal(t, "High", rec.Volatility)
}

func TestProfitTarget_FallsBackWithoutHistory(t *testing.T) {
	t.Parallel()

	a, _, _ := newTestAgent(t, &fakePredictor{})

	rec := a.ProfitTargetRecommendation(context.Background(), "AAPL", 150)
	assert.InDelta(t, DefaultOptions().ProfitTargetPct, rec.TargetPct, 1e-9)
	assert.Zero(t, rec.ATR)
	assert.Equal(t, "Low", rec.Volatility)
	assert.Equal(t, "Flat", rec.Trend)
}

func TestProfitTarget_TrendClassification(t *testing.T) {
	t.Parallel()

	a, gw, _ := newTestAgent(t, &fakePredictor{})

	rising := make([]market.Candle, 25)
	for i := range rising {
		c := 100.0 + float64(i)
		rising[i] = market.Candle{High: c + 1, Low: c - 1, Close: c}
	}
	gw.SetCandles("AAPL", rising)

	// Price and the 10-day EMA both sit above the 20-day MA.
	rec := a.ProfitTargetRecommendation(context.Background(), "AAPL", 125)
	assert.Equal(t, "Uptrend", rec.Trend)

	falling := make([]market.Candle, 25)
	for i := range falling {
		c := 124.0 - float64(i)
		falling[i] = market.Candle{High: c + 1, Low: c - 1, Close: c}
	}
	gw.SetCandles("AAPL", falling)

	rec = a.ProfitTargetRecommendation(context.Background(), "AAPL", 99)
	assert.Equal(t, "Downtrend", rec.Trend)

	// Price above a sideways MA alone is not an uptrend.
	sideways := make([]market.Candle, 25)
	for i := range sideways {
		sideways[i] = market.Candle{High: 101, Low: 99, Close: 100}
	}
	gw.SetCandles("AAPL", sideways)

	rec = a.ProfitTargetRecommendation(context.Background(), "AAPL", 105)
	assert.Equal(t, "Flat", rec.Trend)

	// Fewer candles than the 20-day MA needs reads as flat.
	gw.SetCandles("AAPL", rising[:15])
	rec = a.ProfitTargetRecommendation(context.Background(), "AAPL", 125)
	assert.Equal(t, "Flat", rec.Trend)
}
