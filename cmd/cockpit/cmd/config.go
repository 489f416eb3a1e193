package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/cockpit/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or inspect configuration files",
	Long: `Manage cockpit configuration files.

Subcommands:
  init - Generate a default configuration file
  show - Load, validate and display a configuration file

Examples:
  cockpit config init -o cockpit.yaml
  cockpit config show -f cockpit.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with paper-trading defaults.

Example:
  cockpit config init -o cockpit.yaml`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Load, validate and display a configuration file",
	Long: `Check that a configuration file is valid and print the
effective settings, including environment overrides.

Example:
  cockpit config show -f cockpit.yaml`,
	RunE: runConfigShow,
}

var (
	configInitOutput string
	configShowPath   string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "cockpit.yaml", "output config file path")
	configShowCmd.Flags().StringVarP(&configShowPath, "file", "f", "", "path to config file (required)")
	configShowCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Created default configuration: %s\n", configInitOutput)
	fmt.Println("\nSet OPENROUTER_API_KEY in your environment or a .env file,")
	fmt.Println("edit the watchlist, then run with:")
	fmt.Printf("  cockpit run -f %s\n", configInitOutput)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configShowPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Printf("✓ Configuration valid: %s\n", configShowPath)
	fmt.Printf("  Gateway: %s (paper=%t, ports %d/%d, client %d)\n",
		cfg.Gateway.Host, cfg.Gateway.PaperMode, cfg.Gateway.PaperPort, cfg.Gateway.LivePort, cfg.Gateway.ClientID)
	fmt.Printf("  Model: %s (fallbacks: %s)\n",
		cfg.OpenRouter.DefaultModel, strings.Join(cfg.OpenRouter.FallbackModels, ", "))
	fmt.Printf("  Watchlist: %s\n", strings.Join(cfg.Trading.Watchlist, ", "))
	fmt.Printf("  Sizing: $%.2f / %d shares, target %.1f%%, stop %.1f%%\n",
		cfg.Trading.DefaultPositionSizeUSD, cfg.Trading.DefaultPositionSizeShares,
		cfg.Trading.DefaultProfitTargetPct, cfg.Trading.DefaultStopLossPct)
	fmt.Printf("  Risk: max $%.2f daily loss, %d positions\n",
		cfg.Risk.MaxDailyLoss, cfg.Risk.MaxPositions)
	fmt.Printf("  Journal: %s\n", cfg.Journal.Type)
	if cfg.OpenRouter.APIKey != "" {
		fmt.Println("  OpenRouter key: set")
	} else {
		fmt.Println("  OpenRouter key: NOT SET (export OPENROUTER_API_KEY)")
	}
	return nil
}
