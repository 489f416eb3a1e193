// Package config loads the cockpit configuration from YAML or JSON,
// with secrets overlaid from the environment (.env supported via
// godotenv).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/cockpit/risk"
)

// Config is the complete cockpit configuration.
type Config struct {
	Gateway    GatewayConfig    `json:"gateway" yaml:"gateway"`
	OpenRouter OpenRouterConfig `json:"openrouter" yaml:"openrouter"`
	Trading    TradingConfig    `json:"trading" yaml:"trading"`
	Risk       risk.Parameters  `json:"risk" yaml:"risk"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
}

// GatewayConfig locates the broker gateway bridge.
type GatewayConfig struct {
	Host      string `json:"host" yaml:"host"`
	PaperPort int    `json:"paper_port" yaml:"paper_port"`
	LivePort  int    `json:"live_port" yaml:"live_port"`
	ClientID  int    `json:"client_id" yaml:"client_id"`
	PaperMode bool   `json:"paper_mode" yaml:"paper_mode"`
}

// OpenRouterConfig configures the prediction source. The API key is
// environment-only and never written to the config file.
type OpenRouterConfig struct {
	APIKey         string   `json:"-" yaml:"-"`
	BaseURL        string   `json:"base_url" yaml:"base_url"`
	DefaultModel   string   `json:"default_model" yaml:"default_model"`
	FallbackModels []string `json:"fallback_models" yaml:"fallback_models"`
}

// TradingConfig holds the agent sizing defaults.
type TradingConfig struct {
	DefaultProfitTargetPct    float64  `json:"default_profit_target_pct" yaml:"default_profit_target_pct"`
	DefaultStopLossPct        float64  `json:"default_stop_loss_pct" yaml:"default_stop_loss_pct"`
	DefaultPositionSizeUSD    float64  `json:"default_position_size_usd" yaml:"default_position_size_usd"`
	DefaultPositionSizeShares int      `json:"default_position_size_shares" yaml:"default_position_size_shares"`
	PollInterval              string   `json:"poll_interval" yaml:"poll_interval"` // e.g. "5s"
	Watchlist                 []string `json:"watchlist" yaml:"watchlist"`
}

// ParsePollInterval converts the poll interval to a duration.
func (t TradingConfig) ParsePollInterval() (time.Duration, error) {
	if t.PollInterval == "" {
		return 5 * time.Second, nil
	}
	return time.ParseDuration(t.PollInterval)
}

// JournalConfig selects the trade journal backend.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "sqlite" or "csv"
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
}

// LoadFromFile loads configuration from a file (YAML or JSON based on
// content) and applies the environment overlay.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables onto the config. A .env file
// in the working directory is loaded first when present.
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()

	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		c.OpenRouter.APIKey = v
	}
	if v := os.Getenv("OPENROUTER_MODEL"); v != "" {
		c.OpenRouter.DefaultModel = v
	}
	if v := os.Getenv("IBGW_HOST"); v != "" {
		c.Gateway.Host = v
	}
	if v, err := strconv.Atoi(os.Getenv("IBGW_PAPER_PORT")); err == nil {
		c.Gateway.PaperPort = v
	}
	if v, err := strconv.Atoi(os.Getenv("IBGW_LIVE_PORT")); err == nil {
		c.Gateway.LivePort = v
	}
	if v, err := strconv.Atoi(os.Getenv("IBGW_CLIENT_ID")); err == nil {
		c.Gateway.ClientID = v
	}
}

// SaveToFile saves configuration as YAML (.yaml/.yml) or JSON.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Gateway.Host == "" {
		return fmt.Errorf("gateway.host is required")
	}
	if c.Gateway.PaperPort <= 0 || c.Gateway.LivePort <= 0 {
		return fmt.Errorf("gateway ports must be positive")
	}
	if c.Trading.DefaultPositionSizeUSD <= 0 {
		return fmt.Errorf("trading.default_position_size_usd must be positive")
	}
	if c.Trading.DefaultPositionSizeShares <= 0 {
		return fmt.Errorf("trading.default_position_size_shares must be positive")
	}
	if c.Trading.DefaultStopLossPct <= 0 {
		return fmt.Errorf("trading.default_stop_loss_pct must be positive")
	}
	if _, err := c.Trading.ParsePollInterval(); err != nil {
		return fmt.Errorf("trading.poll_interval: %w", err)
	}
	if c.Risk.MaxPositionSizeUSD < 0 || c.Risk.MaxDailyLoss < 0 {
		return fmt.Errorf("risk limits must be non-negative")
	}
	switch c.Journal.Type {
	case "", "sqlite", "csv":
	default:
		return fmt.Errorf("journal.type must be 'sqlite' or 'csv'")
	}
	if c.Journal.Type == "sqlite" && c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path required for sqlite type")
	}
	if c.Journal.Type == "csv" && c.Journal.TradesFile == "" {
		return fmt.Errorf("journal.trades_file required for csv type")
	}
	return nil
}

// Default returns a configuration with sensible paper-trading defaults.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Host:      "127.0.0.1",
			PaperPort: 7497,
			LivePort:  7496,
			ClientID:  1,
			PaperMode: true,
		},
		OpenRouter: OpenRouterConfig{
			DefaultModel: "anthropic/claude-3.5-sonnet",
			FallbackModels: []string{
				"openai/gpt-4-turbo",
				"google/gemini-pro-1.5",
			},
		},
		Trading: TradingConfig{
			DefaultProfitTargetPct:    5.0,
			DefaultStopLossPct:        2.0,
			DefaultPositionSizeUSD:    10000,
			DefaultPositionSizeShares: 100,
			PollInterval:              "5s",
		},
		Risk: risk.DefaultParameters(),
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./trades.db",
		},
	}
}
