package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/cockpit/market"
)

// ATR calculates the Average True Range as the simple mean of the True
// Range over the last period bars. The gap components of each True
// Range use the previous bar's close, so period+1 candles are required.
func ATR(candles []market.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(candles) < period+1 {
		return 0, fmt.Errorf("not enough candles: need %d, got %d", period+1, len(candles))
	}

	trueRanges := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		trueRanges = append(trueRanges, trueRange(candles[i], candles[i-1]))
	}

	sum := 0.0
	for _, tr := range trueRanges[len(trueRanges)-period:] {
		sum += tr
	}
	return sum / float64(period), nil
}

// trueRange calculates the True Range for a candle given the previous candle.
func trueRange(current, previous market.Candle) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)

	return math.Max(highLow, math.Max(highClose, lowClose))
}
