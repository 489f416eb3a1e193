package predict

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/rustyeddy/cockpit/market"
)

// DefaultBaseURL is the OpenRouter API endpoint.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Message is one chat message sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client talks to OpenRouter. A failed model falls through to the next
// one in the fallback list; each model gets its own retry budget for
// transient failures.
type Client struct {
	http         *resty.Client
	defaultModel string
	fallbacks    []string
	retry        Policy
	log          *zap.Logger
}

// NewClient builds an OpenRouter client. baseURL and fallbacks may be
// empty, in which case the defaults apply.
func NewClient(apiKey, baseURL, defaultModel string, fallbacks []string, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = zap.NewNop()
	}

	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Title", "cockpit trading agent")

	return &Client{
		http:         http,
		defaultModel: defaultModel,
		fallbacks:    fallbacks,
		retry:        DefaultPolicy(),
		log:          log,
	}
}

// SetRetryPolicy replaces the per-model retry policy.
func (c *Client) SetRetryPolicy(p Policy) {
	c.retry = p
}

// ChatCompletion sends the messages to the default model and walks the
// fallback list until one model answers. Returns the raw completion
// text.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message, temperature float64, maxTokens int) (string, error) {
	models := append([]string{c.defaultModel}, c.fallbacks...)

	var lastErr error
	for _, model := range models {
		var content string
		err := c.retry.Do(func() error {
			var err error
			content, err = c.complete(ctx, model, messages, temperature, maxTokens)
			return err
		})
		if err == nil {
			c.log.Debug("model responded", zap.String("model", model))
			return content, nil
		}
		c.log.Warn("model failed", zap.String("model", model), zap.Error(err))
		lastErr = err
	}

	return "", fmt.Errorf("all models failed: %w", lastErr)
}

func (c *Client) complete(ctx context.Context, model string, messages []Message, temperature float64, maxTokens int) (string, error) {
	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model:       model,
			Messages:    messages,
			Temperature: temperature,
			MaxTokens:   maxTokens,
		}).
		SetResult(&out).
		ForceContentType("application/json").
		Post("/chat/completions")
	if err != nil {
		return "", Transient(fmt.Errorf("model %s: %w", model, err))
	}

	switch {
	case resp.StatusCode() == 429:
		return "", Transient(fmt.Errorf("model %s: rate limited", model))
	case resp.StatusCode() >= 500:
		return "", Transient(fmt.Errorf("model %s: status %d", model, resp.StatusCode()))
	case resp.StatusCode() != 200:
		return "", fmt.Errorf("model %s: status %d: %s", model, resp.StatusCode(), resp.String())
	}

	if len(out.Choices) == 0 {
		return "", fmt.Errorf("model %s: empty choices", model)
	}
	return out.Choices[0].Message.Content, nil
}

// GenerateShortTermPrediction asks for 1/5/10 minute directional
// forecasts for symbol given the current quote and recent observed
// prices. A nil prediction with nil error never occurs; failures are
// always explicit.
func (c *Client) GenerateShortTermPrediction(ctx context.Context, symbol string, quote market.Quote, priceHistory []float64) (*Prediction, error) {
	recent := priceHistory
	if len(recent) > 20 {
		recent = recent[len(recent)-20:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze %s for short-term price movement prediction.\n\n", symbol)
	fmt.Fprintf(&b, "Current Price: $%.2f\n", quote.Last)
	fmt.Fprintf(&b, "Bid-Ask Spread: %.4f\n", quote.Spread())
	fmt.Fprintf(&b, "Volume: %d\n\n", quote.Volume)
	fmt.Fprintf(&b, "Recent Price Action (last %d ticks): %v\n\n", len(recent), recent)
	b.WriteString("Provide predictions for the next 1-minute, 5-minute and 10-minute movement.\n")
	b.WriteString("For each timeframe, indicate Direction (BULLISH, BEARISH or NEUTRAL) and Confidence (0-100).\n")
	b.WriteString(`Format as JSON: {"1min": {"direction": "...", "confidence": ...}, "5min": {...}, "10min": {...}, "reasoning": "..."}` + "\n")

	messages := []Message{
		{Role: "system", Content: "You are an expert trading analyst specializing in short-term price predictions."},
		{Role: "user", Content: b.String()},
	}

	content, err := c.ChatCompletion(ctx, messages, 0.2, 500)
	if err != nil {
		return nil, fmt.Errorf("short term prediction %s: %w", symbol, err)
	}

	pred, err := ParsePrediction(content)
	if err != nil {
		return nil, fmt.Errorf("short term prediction %s: %w", symbol, err)
	}
	return pred, nil
}

// Analysis is the broader market read used for display and audit.
type Analysis struct {
	Sentiment       string  `json:"sentiment"`
	SupportLevel    float64 `json:"support_level"`
	ResistanceLevel float64 `json:"resistance_level"`
	ProfitTargetPct float64 `json:"profit_target_pct"`
	RiskLevel       string  `json:"risk_level"`
	Recommendation  string  `json:"recommendation"`
	Reasoning       string  `json:"reasoning"`
}

// AnalyzeMarket asks for a full market analysis of symbol. Unlike the
// short-term prediction this is advisory only and never feeds order
// placement directly.
func (c *Client) AnalyzeMarket(ctx context.Context, symbol string, quote market.Quote) (*Analysis, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following market data for %s and provide a trading analysis.\n\n", symbol)
	fmt.Fprintf(&b, "Last Price: $%.2f\n", quote.Last)
	fmt.Fprintf(&b, "Bid: $%.2f (Size: %d)\n", quote.Bid, quote.BidSize)
	fmt.Fprintf(&b, "Ask: $%.2f (Size: %d)\n", quote.Ask, quote.AskSize)
	fmt.Fprintf(&b, "Volume: %d\n", quote.Volume)
	fmt.Fprintf(&b, "Previous Close: $%.2f\n\n", quote.Close)
	b.WriteString("Provide sentiment, support and resistance levels, a volatility-based profit target percentage, a risk assessment and a BUY/SELL/HOLD recommendation.\n")
	b.WriteString("Format your response as JSON with keys: sentiment, support_level, resistance_level, profit_target_pct, risk_level, recommendation, reasoning\n")

	messages := []Message{
		{Role: "system", Content: "You are an expert quantitative trader and market analyst. Provide concise, actionable trading insights based on market data."},
		{Role: "user", Content: b.String()},
	}

	content, err := c.ChatCompletion(ctx, messages, 0.3, 1000)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", symbol, err)
	}

	var a Analysis
	if uerr := unmarshalLoose(content, &a); uerr != nil {
		return nil, fmt.Errorf("analyze %s: %w", symbol, uerr)
	}
	return &a, nil
}
