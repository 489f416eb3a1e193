package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/cockpit/agent"
	"github.com/rustyeddy/cockpit/config"
	"github.com/rustyeddy/cockpit/gateway"
	"github.com/rustyeddy/cockpit/gateway/ibgw"
	"github.com/rustyeddy/cockpit/gateway/sim"
	"github.com/rustyeddy/cockpit/journal"
	"github.com/rustyeddy/cockpit/market"
	"github.com/rustyeddy/cockpit/predict"
	"github.com/rustyeddy/cockpit/risk"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading agent",
	Long: `Run the trading agent against the configured gateway.

The agent polls each watchlist symbol on a fixed interval, asks the AI
for a short-horizon prediction, validates any resulting signal against
the risk limits and executes it according to the execution mode.

Example:
  cockpit run -f cockpit.yaml --mode observation_only
  cockpit run -f cockpit.yaml --sim`,
	RunE: runRun,
}

var (
	runConfigPath string
	runSim        bool
	runMode       string
	runVerbose    bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON)")
	runCmd.Flags().BoolVar(&runSim, "sim", false, "use the in-memory simulated gateway instead of the IB bridge")
	runCmd.Flags().StringVar(&runMode, "mode", string(agent.ManualApproval),
		"execution mode: full_autonomy, manual_approval or observation_only")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "verbose logging")
}

func runRun(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(runVerbose)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := loadConfig(runConfigPath)
	if err != nil {
		return err
	}

	interval, err := cfg.Trading.ParsePollInterval()
	if err != nil {
		return fmt.Errorf("poll interval: %w", err)
	}

	jnl, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer jnl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw, err := openGateway(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if cfg.OpenRouter.APIKey == "" {
		logger.Warn("OPENROUTER_API_KEY not set, predictions will fail and no signals will be generated")
	}
	ai := predict.NewClient(cfg.OpenRouter.APIKey, cfg.OpenRouter.BaseURL,
		cfg.OpenRouter.DefaultModel, cfg.OpenRouter.FallbackModels, logger)

	re := risk.NewEngine(gw, cfg.Risk, logger)

	tradingMode := "LIVE"
	if cfg.Gateway.PaperMode || runSim {
		tradingMode = "PAPER"
	}
	a := agent.New(gw, ai, re, jnl, agent.Options{
		MaxPositionSizeUSD:    cfg.Trading.DefaultPositionSizeUSD,
		MaxPositionSizeShares: cfg.Trading.DefaultPositionSizeShares,
		ProfitTargetPct:       cfg.Trading.DefaultProfitTargetPct,
		StopLossPct:           cfg.Trading.DefaultStopLossPct,
		MarginEnabled:         cfg.Risk.MarginEnabled,
		TradingMode:           tradingMode,
	}, logger)

	a.SetMode(agent.ExecutionMode(runMode))
	for _, symbol := range cfg.Trading.Watchlist {
		a.Watch(symbol)
	}
	a.SetActive(true)

	logger.Info("cockpit running",
		zap.String("mode", string(a.Mode())),
		zap.String("trading_mode", tradingMode),
		zap.Strings("watchlist", a.Watchlist()),
		zap.Duration("interval", interval))

	a.Run(ctx, interval)

	logger.Info("shutting down")
	return nil
}

// loadConfig loads the config file, or the defaults with the env
// overlay when no file is given.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		cfg.ApplyEnv()
		return cfg, nil
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openJournal(cfg config.JournalConfig) (journal.Journal, error) {
	if cfg.Type == "csv" {
		return journal.NewCSV(cfg.TradesFile)
	}
	path := cfg.DBPath
	if path == "" {
		path = "./trades.db"
	}
	return journal.NewSQLite(path)
}

// openGateway connects the IB bridge, or builds a seeded simulated
// gateway when --sim is given.
func openGateway(ctx context.Context, cfg *config.Config, logger *zap.Logger) (gateway.Gateway, error) {
	if runSim {
		engine := sim.NewEngine(market.AccountSnapshot{
			TotalEquity:   100000,
			AvailableCash: 100000,
			BuyingPower:   200000,
		})
		for _, symbol := range cfg.Trading.Watchlist {
			engine.SetQuote(market.Quote{
				Symbol: symbol,
				Last:   100, Bid: 99.99, Ask: 100.01,
				Time: time.Now(),
			})
		}
		logger.Info("using simulated gateway")
		return engine, nil
	}

	client := ibgw.NewClient(ibgw.Options{
		Host:      cfg.Gateway.Host,
		PaperPort: cfg.Gateway.PaperPort,
		LivePort:  cfg.Gateway.LivePort,
		ClientID:  cfg.Gateway.ClientID,
		PaperMode: cfg.Gateway.PaperMode,
	}, logger)

	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect gateway: %w", err)
	}
	return client, nil
}
