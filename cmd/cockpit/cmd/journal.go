package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/cockpit/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the trade journal",
	Long: `Query and display trade records from the SQLite journal.

Subcommands:
  list  - List recent trades
  stats - Aggregate closed-trade performance

Examples:
  cockpit journal list
  cockpit journal stats`,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent trades, newest first",
	Args:  cobra.NoArgs,
	RunE:  runJournalList,
}

var journalStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Aggregate closed-trade performance",
	Args:  cobra.NoArgs,
	RunE:  runJournalStats,
}

var (
	journalDBPath string
	journalLimit  int
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalStatsCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./trades.db", "path to SQLite journal DB")
	journalCmd.PersistentFlags().IntVarP(&journalLimit, "limit", "n", 50, "maximum number of trades to read")
}

func runJournalList(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	recs, err := j.ListTrades(journalLimit)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	if len(recs) == 0 {
		fmt.Println("No trades recorded.")
		return nil
	}

	fmt.Printf("%-28s %-6s %-12s %6s %10s %8s %10s\n",
		"TRADE", "SYMBOL", "ACTION", "QTY", "ENTRY", "STATUS", "P&L")
	for _, rec := range recs {
		fmt.Printf("%-28s %-6s %-12s %6d %10.2f %8s %10.2f\n",
			rec.TradeID, rec.Symbol, rec.Action, rec.Quantity,
			rec.EntryPrice, rec.Status, rec.PnL)
	}
	return nil
}

func runJournalStats(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	stats, err := journal.TradeStats(j, journalLimit)
	if err != nil {
		return fmt.Errorf("compute stats: %w", err)
	}

	fmt.Println("Closed-trade performance:")
	fmt.Printf("  Trades:        %d (%d wins / %d losses)\n",
		stats.TotalTrades, stats.WinningTrades, stats.LosingTrades)
	fmt.Printf("  Win rate:      %.1f%%\n", stats.WinRate)
	fmt.Printf("  Total P&L:     $%.2f\n", stats.TotalPnL)
	fmt.Printf("  Gross profit:  $%.2f\n", stats.GrossProfit)
	fmt.Printf("  Gross loss:    $%.2f\n", stats.GrossLoss)
	fmt.Printf("  Profit factor: %.2f\n", stats.ProfitFactor)
	fmt.Printf("  Avg P&L:       $%.2f\n", stats.AvgPnL)
	return nil
}
