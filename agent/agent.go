package agent

import (
	"context"

	"go.uber.org/zap"

	"github.com/rustyeddy/cockpit/gateway"
	"github.com/rustyeddy/cockpit/journal"
	"github.com/rustyeddy/cockpit/market"
	"github.com/rustyeddy/cockpit/predict"
	"github.com/rustyeddy/cockpit/risk"
)

// ExecutionMode controls what happens to generated signals. Transitions
// are operator-driven only and take effect on the next evaluation
// cycle; in-flight signals are unaffected.
type ExecutionMode string

const (
	FullAutonomy    ExecutionMode = "full_autonomy"
	ManualApproval  ExecutionMode = "manual_approval"
	ObservationOnly ExecutionMode = "observation_only"
)

// Horizon selects the trading time frame, which drives time-in-force.
type Horizon string

const (
	DayTrading Horizon = "day_trading"
	Positional Horizon = "positional_trading"
)

const (
	// minConfidence is the 5-minute confidence floor (percent) below
	// which no signal is produced. Fixed by design; tunable candidate.
	minConfidence = 60.0

	// historyCap bounds the rolling per-symbol price history.
	historyCap = 100
)

// Predictor is the prediction source capability the agent depends on.
type Predictor interface {
	GenerateShortTermPrediction(ctx context.Context, symbol string, quote market.Quote, priceHistory []float64) (*predict.Prediction, error)
}

// Options are the agent's sizing and behavior defaults.
type Options struct {
	MaxPositionSizeUSD    float64
	MaxPositionSizeShares int
	ProfitTargetPct       float64
	StopLossPct           float64
	MarginEnabled         bool
	TradingMode           string // PAPER or LIVE, recorded on journal rows
}

// DefaultOptions mirror the config trading defaults.
func DefaultOptions() Options {
	return Options{
		MaxPositionSizeUSD:    10000,
		MaxPositionSizeShares: 100,
		ProfitTargetPct:       5.0,
		StopLossPct:           2.0,
		TradingMode:           "PAPER",
	}
}

// Agent owns the watchlist, rolling price histories, execution mode and
// the pending-approval queue. It generates at most one signal per
// symbol per evaluation.
type Agent struct {
	gw      gateway.Gateway
	ai      Predictor
	risk    *risk.Engine
	journal journal.Journal
	log     *zap.Logger

	opts    Options
	mode    ExecutionMode
	horizon Horizon
	active  bool

	watchlist []string
	history   map[string][]float64
	pending   []Signal
}

func New(gw gateway.Gateway, ai Predictor, re *risk.Engine, jnl journal.Journal, opts Options, log *zap.Logger) *Agent {
	if log == nil {
		log = zap.NewNop()
	}
	return &Agent{
		gw:      gw,
		ai:      ai,
		risk:    re,
		journal: jnl,
		log:     log,
		opts:    opts,
		mode:    ManualApproval,
		horizon: DayTrading,
		history: make(map[string][]float64),
	}
}

// SetActive enables or disables signal generation.
func (a *Agent) SetActive(active bool) {
	a.active = active
	a.log.Info("agent active flag set", zap.Bool("active", active))
}

// Active reports whether the agent evaluates its watchlist.
func (a *Agent) Active() bool { return a.active }

// Mode returns the current execution mode.
func (a *Agent) Mode() ExecutionMode { return a.mode }

// SetMode changes the execution mode. Unknown modes are ignored.
func (a *Agent) SetMode(mode ExecutionMode) {
	switch mode {
	case FullAutonomy, ManualApproval, ObservationOnly:
		a.mode = mode
		a.log.Info("execution mode set", zap.String("mode", string(mode)))
	default:
		a.log.Warn("ignoring unknown execution mode", zap.String("mode", string(mode)))
	}
}

// SetHorizon changes the trading horizon. Unknown horizons are ignored.
func (a *Agent) SetHorizon(h Horizon) {
	switch h {
	case DayTrading, Positional:
		a.horizon = h
		a.log.Info("trading horizon set", zap.String("horizon", string(h)))
	default:
		a.log.Warn("ignoring unknown trading horizon", zap.String("horizon", string(h)))
	}
}

// TradingHorizon returns the current trading horizon.
func (a *Agent) TradingHorizon() Horizon { return a.horizon }

// Options returns the current sizing defaults.
func (a *Agent) Options() Options { return a.opts }

// SetOptions replaces the sizing defaults.
func (a *Agent) SetOptions(opts Options) {
	a.opts = opts
	a.log.Info("agent options updated",
		zap.Float64("max_position_size_usd", opts.MaxPositionSizeUSD),
		zap.Int("max_position_size_shares", opts.MaxPositionSizeShares),
		zap.Float64("profit_target_pct", opts.ProfitTargetPct),
		zap.Bool("margin_enabled", opts.MarginEnabled))
}

// Watch adds symbol to the watchlist, preserving insertion order and
// ignoring duplicates.
func (a *Agent) Watch(symbol string) {
	for _, s := range a.watchlist {
		if s == symbol {
			return
		}
	}
	a.watchlist = append(a.watchlist, symbol)
	a.history[symbol] = nil
	a.log.Info("added to watchlist", zap.String("symbol", symbol))
}

// Unwatch removes symbol from the watchlist and drops its history.
func (a *Agent) Unwatch(symbol string) {
	for i, s := range a.watchlist {
		if s == symbol {
			a.watchlist = append(a.watchlist[:i], a.watchlist[i+1:]...)
			delete(a.history, symbol)
			a.log.Info("removed from watchlist", zap.String("symbol", symbol))
			return
		}
	}
}

// Watchlist returns the watched symbols in insertion order.
func (a *Agent) Watchlist() []string {
	out := make([]string, len(a.watchlist))
	copy(out, a.watchlist)
	return out
}

// PriceHistory returns the rolling observed prices for symbol, oldest
// first.
func (a *Agent) PriceHistory(symbol string) []float64 {
	h := a.history[symbol]
	out := make([]float64, len(h))
	copy(out, h)
	return out
}

// recordPrice appends an observation, evicting the oldest once the
// window is full.
func (a *Agent) recordPrice(symbol string, price float64) {
	h := append(a.history[symbol], price)
	if len(h) > historyCap {
		h = h[len(h)-historyCap:]
	}
	a.history[symbol] = h
}
