// Package risk gates every proposed trade against configurable limits,
// sizes positions and computes protective price levels. All methods are
// pure computations over freshly fetched gateway snapshots; a gateway
// failure always resolves to "trade not allowed", never to a default-allow.
package risk

import "strings"

// Parameters are the operator-configurable risk limits. Non-negative
// values are expected; callers own sanity beyond that.
type Parameters struct {
	MaxPositionSizeUSD      float64 `json:"max_position_size_usd" yaml:"max_position_size_usd"`
	MaxPositionSizeShares   int     `json:"max_position_size_shares" yaml:"max_position_size_shares"`
	StopLossPct             float64 `json:"stop_loss_pct" yaml:"stop_loss_pct"`
	TakeProfitPct           float64 `json:"take_profit_pct" yaml:"take_profit_pct"`
	MaxDailyLoss            float64 `json:"max_daily_loss" yaml:"max_daily_loss"`
	MaxPositions            int     `json:"max_positions" yaml:"max_positions"`
	MarginEnabled           bool    `json:"margin_enabled" yaml:"margin_enabled"`
	MaxMarginUtilizationPct float64 `json:"max_margin_utilization_pct" yaml:"max_margin_utilization_pct"`
}

// DefaultParameters mirror a conservative paper-trading setup.
func DefaultParameters() Parameters {
	return Parameters{
		MaxPositionSizeUSD:      10000,
		MaxPositionSizeShares:   100,
		StopLossPct:             2.0,
		TakeProfitPct:           5.0,
		MaxDailyLoss:            1000,
		MaxPositions:            10,
		MarginEnabled:           false,
		MaxMarginUtilizationPct: 50.0,
	}
}

// NormalizeAction maps broker action spellings onto the canonical set
// BUY, SELL, SELL_SHORT, BUY_TO_COVER.
func NormalizeAction(action string) string {
	switch strings.ToUpper(strings.TrimSpace(action)) {
	case "SELL SHORT", "SELL_SHORT":
		return "SELL_SHORT"
	case "BUY TO COVER", "BUY_TO_COVER":
		return "BUY_TO_COVER"
	default:
		return strings.ToUpper(strings.TrimSpace(action))
	}
}

// IsLong reports whether the action opens or increases long-side cash
// exposure. SELL_SHORT and SELL are the short-equivalent directions.
func IsLong(action string) bool {
	a := NormalizeAction(action)
	return a == "BUY" || a == "BUY_TO_COVER"
}
