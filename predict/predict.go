// Package predict asks a large-language-model for short-horizon
// directional forecasts and parses the free-form response into a strict
// schema. A missing or malformed payload always surfaces as an error,
// never as a partially-populated prediction.
package predict

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Direction is the predicted price direction for one horizon.
type Direction string

const (
	Bullish Direction = "BULLISH"
	Bearish Direction = "BEARISH"
	Neutral Direction = "NEUTRAL"
)

func (d Direction) valid() bool {
	return d == Bullish || d == Bearish || d == Neutral
}

// Forecast is the direction and confidence (0-100) for one horizon.
type Forecast struct {
	Direction  Direction `json:"direction"`
	Confidence float64   `json:"confidence"`
}

// Prediction is the parsed short-term prediction across the 1, 5 and 10
// minute horizons. FiveMin drives the signal generator; the other
// horizons are informational.
type Prediction struct {
	OneMin    Forecast `json:"1min"`
	FiveMin   Forecast `json:"5min"`
	TenMin    Forecast `json:"10min"`
	Reasoning string   `json:"reasoning"`
}

// ParsePrediction decodes a model response into a Prediction. The model
// sometimes wraps its JSON in a markdown code fence; that is stripped
// first. The 5-minute horizon must carry a valid direction and a
// confidence in [0,100] or the whole payload is rejected.
func ParsePrediction(raw string) (*Prediction, error) {
	body := stripFence(raw)
	if body == "" {
		return nil, fmt.Errorf("empty prediction payload")
	}

	var p Prediction
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return nil, fmt.Errorf("parse prediction: %w", err)
	}

	if !p.FiveMin.Direction.valid() {
		return nil, fmt.Errorf("parse prediction: invalid 5min direction %q", p.FiveMin.Direction)
	}
	if p.FiveMin.Confidence < 0 || p.FiveMin.Confidence > 100 {
		return nil, fmt.Errorf("parse prediction: 5min confidence %.1f out of range", p.FiveMin.Confidence)
	}

	return &p, nil
}

// unmarshalLoose decodes fence-wrapped JSON into v.
func unmarshalLoose(raw string, v any) error {
	body := stripFence(raw)
	if body == "" {
		return fmt.Errorf("empty payload")
	}
	return json.Unmarshal([]byte(body), v)
}

// stripFence removes a surrounding ```json ... ``` markdown fence.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
