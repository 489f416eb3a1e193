package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rustyeddy/cockpit/pkg/id"
)

// CSV is an append-only trade journal for quick inspection with
// spreadsheet tools. UpdateExit appends a separate exit row rather than
// rewriting the file.
type CSV struct {
	w *csv.Writer
	f *os.File
}

var csvHeader = []string{
	"trade_id", "symbol", "action", "quantity", "order_type", "entry_price",
	"stop_loss", "take_profit", "order_id", "trading_mode", "agent_generated",
	"confidence", "reasoning", "entry_time", "status",
	"exit_price", "pnl", "pnl_pct", "exit_time",
}

func NewCSV(path string) (*CSV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return &CSV{w: w, f: f}, nil
}

func (j *CSV) LogTrade(rec TradeRecord) (string, error) {
	if rec.TradeID == "" {
		rec.TradeID = id.New()
	}
	if rec.EntryTime.IsZero() {
		rec.EntryTime = time.Now().UTC()
	}
	if rec.TradingMode == "" {
		rec.TradingMode = "PAPER"
	}

	err := j.w.Write([]string{
		rec.TradeID,
		rec.Symbol,
		rec.Action,
		strconv.Itoa(rec.Quantity),
		rec.OrderType,
		formatFloat(rec.EntryPrice),
		formatFloat(rec.StopLoss),
		formatFloat(rec.TakeProfit),
		rec.OrderID,
		rec.TradingMode,
		strconv.FormatBool(rec.AgentGenerated),
		formatFloat(rec.Confidence),
		rec.Reasoning,
		rec.EntryTime.Format(time.RFC3339),
		"OPEN",
		"", "", "", "",
	})
	if err != nil {
		return "", err
	}

	j.w.Flush()
	if err := j.w.Error(); err != nil {
		return "", err
	}
	return rec.TradeID, nil
}

func (j *CSV) UpdateExit(tradeID string, exit ExitUpdate) error {
	if exit.ExitTime.IsZero() {
		exit.ExitTime = time.Now().UTC()
	}

	err := j.w.Write([]string{
		tradeID, "", "", "", "", "", "", "", "", "", "", "", "", "",
		"CLOSED",
		formatFloat(exit.ExitPrice),
		formatFloat(exit.PnL),
		formatFloat(exit.PnLPct),
		exit.ExitTime.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	j.w.Flush()
	return j.w.Error()
}

// ListTrades is not supported by the CSV journal; use SQLite for
// analytics.
func (j *CSV) ListTrades(limit int) ([]TradeRecord, error) {
	return nil, fmt.Errorf("csv journal does not support queries")
}

func (j *CSV) Close() error {
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		j.f.Close()
		return err
	}
	return j.f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var _ Journal = (*CSV)(nil)
