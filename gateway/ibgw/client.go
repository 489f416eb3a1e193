// Package ibgw talks to an Interactive Brokers gateway bridge over its
// local REST surface. The bridge fronts a TWS or IB Gateway session;
// this client keeps one logical connection at a time and maps the
// bridge payloads onto the cockpit market types.
package ibgw

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/rustyeddy/cockpit/gateway"
	"github.com/rustyeddy/cockpit/market"
)

const (
	// PaperPort is the default TWS paper-trading port.
	PaperPort = 7497
	// LivePort is the default TWS live-trading port.
	LivePort = 7496

	// settleDelay is the pause between tearing down an old session and
	// establishing a new one.
	settleDelay = time.Second

	quotePollAttempts = 6
	quotePollInterval = 500 * time.Millisecond
)

// Options configures the bridge client.
type Options struct {
	Host      string
	PaperPort int
	LivePort  int
	ClientID  int
	PaperMode bool
	Timeout   time.Duration
}

// Client is a Gateway implementation backed by the IB bridge.
type Client struct {
	http  *resty.Client
	log   *zap.Logger
	opts  Options
	sleep func(time.Duration)

	mu        sync.Mutex
	connected bool
	readOnly  bool
}

var _ gateway.Gateway = (*Client)(nil)

// NewClient creates a bridge client. A nil logger disables logging.
func NewClient(opts Options, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Host == "" {
		opts.Host = "127.0.0.1"
	}
	if opts.PaperPort == 0 {
		opts.PaperPort = PaperPort
	}
	if opts.LivePort == 0 {
		opts.LivePort = LivePort
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	port := opts.LivePort
	if opts.PaperMode {
		port = opts.PaperPort
	}

	http := resty.New().
		SetBaseURL(fmt.Sprintf("http://%s:%d", opts.Host, port)).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		http:  http,
		log:   log,
		opts:  opts,
		sleep: time.Sleep,
	}
}

type statusPayload struct {
	Connected bool   `json:"connected"`
	ReadOnly  bool   `json:"read_only"`
	Account   string `json:"account"`
}

// Connect establishes the bridge session. An existing session is torn
// down first, with a settling delay before the new one is opened.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	wasConnected := c.connected
	c.mu.Unlock()

	if wasConnected {
		if err := c.Disconnect(ctx); err != nil {
			c.log.Warn("disconnect before reconnect failed", zap.Error(err))
		}
		c.sleep(settleDelay)
	}

	var status statusPayload
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("client_id", fmt.Sprintf("%d", c.opts.ClientID)).
		SetResult(&status).
		ForceContentType("application/json").
		Post("/v1/session/connect")
	if err != nil {
		return fmt.Errorf("connect to gateway: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("connect to gateway: status %d: %s", resp.StatusCode(), resp.String())
	}
	if !status.Connected {
		return fmt.Errorf("gateway refused connection")
	}

	c.mu.Lock()
	c.connected = true
	c.readOnly = status.ReadOnly
	c.mu.Unlock()

	c.log.Info("gateway connected",
		zap.String("account", status.Account),
		zap.Bool("paper", c.opts.PaperMode),
		zap.Bool("read_only", status.ReadOnly))
	return nil
}

// Disconnect tears down the bridge session.
func (c *Client) Disconnect(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Post("/v1/session/disconnect")

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("disconnect: status %d", resp.StatusCode())
	}
	return nil
}

// IsConnected reports the last known session state.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// ReadOnly reports whether the gateway session rejects order placement.
func (c *Client) ReadOnly() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readOnly
}

type quotePayload struct {
	Symbol  string  `json:"symbol"`
	Last    float64 `json:"last"`
	Bid     float64 `json:"bid"`
	Ask     float64 `json:"ask"`
	Close   float64 `json:"close"`
	Volume  int64   `json:"volume"`
	BidSize int64   `json:"bid_size"`
	AskSize int64   `json:"ask_size"`
	Time    string  `json:"time"`
}

func (p quotePayload) toQuote() *market.Quote {
	q := &market.Quote{
		Symbol:  p.Symbol,
		Last:    p.Last,
		Bid:     p.Bid,
		Ask:     p.Ask,
		Close:   p.Close,
		Volume:  p.Volume,
		BidSize: p.BidSize,
		AskSize: p.AskSize,
	}
	if t, err := time.Parse(time.RFC3339, p.Time); err == nil {
		q.Time = t
	}
	return q
}

// GetMarketData polls the streaming quote endpoint for a fresh last
// price, falling back to the delayed snapshot endpoint when the stream
// never produces one within the poll budget. A nil quote means no data.
func (c *Client) GetMarketData(ctx context.Context, symbol string) (*market.Quote, error) {
	for attempt := 0; attempt < quotePollAttempts; attempt++ {
		if attempt > 0 {
			c.sleep(quotePollInterval)
		}

		var payload quotePayload
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&payload).
			ForceContentType("application/json").
			Get("/v1/md/quote/" + symbol)
		if err != nil {
			return nil, fmt.Errorf("get market data for %s: %w", symbol, err)
		}
		if resp.StatusCode() == 404 {
			return nil, nil
		}
		if resp.IsError() {
			return nil, fmt.Errorf("get market data for %s: status %d", symbol, resp.StatusCode())
		}
		if payload.Last > 0 {
			return payload.toQuote(), nil
		}
	}

	c.log.Debug("live quote unavailable, using snapshot", zap.String("symbol", symbol))
	return c.getSnapshot(ctx, symbol)
}

// getSnapshot fetches the delayed snapshot quote.
func (c *Client) getSnapshot(ctx context.Context, symbol string) (*market.Quote, error) {
	var payload quotePayload
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&payload).
		ForceContentType("application/json").
		Get("/v1/md/snapshot/" + symbol)
	if err != nil {
		return nil, fmt.Errorf("get snapshot for %s: %w", symbol, err)
	}
	if resp.StatusCode() == 404 {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("get snapshot for %s: status %d", symbol, resp.StatusCode())
	}
	if payload.Last <= 0 {
		return nil, nil
	}
	return payload.toQuote(), nil
}

type barPayload struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type historyPayload struct {
	Symbol string       `json:"symbol"`
	Bars   []barPayload `json:"bars"`
}

// GetHistoricalData fetches bars for symbol, e.g. duration "30 D" with
// barSize "1 day". An empty result means no data.
func (c *Client) GetHistoricalData(ctx context.Context, symbol, duration, barSize string) ([]market.Candle, error) {
	var payload historyPayload
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"duration": duration,
			"bar_size": barSize,
		}).
		SetResult(&payload).
		ForceContentType("application/json").
		Get("/v1/md/history/" + symbol)
	if err != nil {
		return nil, fmt.Errorf("get history for %s: %w", symbol, err)
	}
	if resp.StatusCode() == 404 {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("get history for %s: status %d", symbol, resp.StatusCode())
	}

	candles := make([]market.Candle, 0, len(payload.Bars))
	for _, b := range payload.Bars {
		candle := market.Candle{
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
		if t, err := time.Parse("2006-01-02", b.Date); err == nil {
			candle.Date = t
		} else if t, err := time.Parse(time.RFC3339, b.Date); err == nil {
			candle.Date = t
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

type accountPayload struct {
	TotalEquity        float64 `json:"total_equity"`
	AvailableCash      float64 `json:"available_cash"`
	BuyingPower        float64 `json:"buying_power"`
	MaintenanceMargin  float64 `json:"maintenance_margin"`
	ExcessLiquidity    float64 `json:"excess_liquidity"`
	GrossPositionValue float64 `json:"gross_position_value"`
}

// GetAccountSummary fetches the current account figures.
func (c *Client) GetAccountSummary(ctx context.Context) (market.AccountSnapshot, error) {
	var payload accountPayload
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&payload).
		ForceContentType("application/json").
		Get("/v1/account/summary")
	if err != nil {
		return market.AccountSnapshot{}, fmt.Errorf("get account summary: %w", err)
	}
	if resp.IsError() {
		return market.AccountSnapshot{}, fmt.Errorf("get account summary: status %d", resp.StatusCode())
	}

	return market.AccountSnapshot{
		TotalEquity:        payload.TotalEquity,
		AvailableCash:      payload.AvailableCash,
		BuyingPower:        payload.BuyingPower,
		MaintenanceMargin:  payload.MaintenanceMargin,
		ExcessLiquidity:    payload.ExcessLiquidity,
		GrossPositionValue: payload.GrossPositionValue,
	}, nil
}

type positionPayload struct {
	Symbol        string  `json:"symbol"`
	Quantity      float64 `json:"quantity"`
	AvgCost       float64 `json:"avg_cost"`
	CurrentPrice  float64 `json:"current_price"`
	MarketValue   float64 `json:"market_value"`
	UnrealizedPL  float64 `json:"unrealized_pl"`
	UnrealizedPct float64 `json:"unrealized_pct"`
}

// GetPositions fetches all open positions.
func (c *Client) GetPositions(ctx context.Context) ([]market.Position, error) {
	var payload []positionPayload
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&payload).
		ForceContentType("application/json").
		Get("/v1/account/positions")
	if err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("get positions: status %d", resp.StatusCode())
	}

	positions := make([]market.Position, 0, len(payload))
	for _, p := range payload {
		positions = append(positions, market.Position{
			Symbol:        p.Symbol,
			Quantity:      p.Quantity,
			AvgCost:       p.AvgCost,
			CurrentPrice:  p.CurrentPrice,
			MarketValue:   p.MarketValue,
			UnrealizedPL:  p.UnrealizedPL,
			UnrealizedPct: p.UnrealizedPct,
		})
	}
	return positions, nil
}

type orderRequest struct {
	Symbol     string   `json:"symbol"`
	Action     string   `json:"action"`
	Quantity   int      `json:"quantity"`
	OrderType  string   `json:"order_type"`
	LimitPrice *float64 `json:"limit_price,omitempty"`
	StopPrice  *float64 `json:"stop_price,omitempty"`
	TIF        string   `json:"tif"`
}

type orderPayload struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// PlaceOrder submits the ticket. A rejection naming read-only mode is
// remembered and reported via ReadOnly.
func (c *Client) PlaceOrder(ctx context.Context, ticket gateway.OrderTicket) (*gateway.OrderResult, error) {
	req := orderRequest{
		Symbol:     ticket.Symbol,
		Action:     ticket.Action,
		Quantity:   ticket.Quantity,
		OrderType:  string(ticket.Type),
		LimitPrice: ticket.LimitPrice,
		StopPrice:  ticket.StopPrice,
		TIF:        string(ticket.TIF),
	}

	var payload orderPayload
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&payload).
		SetError(&payload).
		ForceContentType("application/json").
		Post("/v1/orders")
	if err != nil {
		return nil, fmt.Errorf("place order for %s: %w", ticket.Symbol, err)
	}
	if resp.IsError() {
		if strings.Contains(strings.ToLower(payload.Error), "read-only") {
			c.mu.Lock()
			c.readOnly = true
			c.mu.Unlock()
			c.log.Error("gateway session is read-only, enable trading in TWS",
				zap.String("symbol", ticket.Symbol))
		}
		msg := payload.Error
		if msg == "" {
			msg = resp.String()
		}
		return nil, fmt.Errorf("place order for %s: status %d: %s", ticket.Symbol, resp.StatusCode(), msg)
	}

	return &gateway.OrderResult{
		OrderID:  payload.OrderID,
		Symbol:   ticket.Symbol,
		Action:   ticket.Action,
		Quantity: ticket.Quantity,
		Type:     ticket.Type,
		Status:   payload.Status,
		Time:     time.Now(),
	}, nil
}

// CancelOrder cancels a working order by ID.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete("/v1/orders/" + orderID)
	if err != nil {
		return false, fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	if resp.StatusCode() == 404 {
		return false, nil
	}
	if resp.IsError() {
		return false, fmt.Errorf("cancel order %s: status %d", orderID, resp.StatusCode())
	}
	return true, nil
}
