package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cockpit",
	Short: "An AI-assisted stock trading cockpit",
	Long: `Cockpit is an AI-assisted trading agent for US equities.

It provides tools for:
  - Watching a list of symbols and generating trade signals from
    short-horizon AI predictions
  - Risk-validated position sizing with stop/target levels
  - Paper and live trading through an Interactive Brokers gateway
  - Manual-approval, full-autonomy and observation-only execution modes
  - Journaling every trade to SQLite or CSV

Complete documentation is available at https://github.com/rustyeddy/cockpit`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
