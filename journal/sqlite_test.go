package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	j, err := NewSQLite(filepath.Join(t.TempDir(), "trades.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestSQLite_LogAndListTrade(t *testing.T) {
	j := newTestSQLite(t)

	tradeID, err := j.LogTrade(TradeRecord{
		Symbol:         "AAPL",
		Action:         "BUY",
		Quantity:       66,
		OrderType:      "MKT",
		EntryPrice:     150.25,
		StopLoss:       147.25,
		TakeProfit:     157.76,
		OrderID:        "IB-42",
		AgentGenerated: true,
		Confidence:     0.75,
		Reasoning:      "bullish momentum on volume",
	})
	require.NoError(t, err)
	require.NotEmpty(t, tradeID)

	trades, err := j.ListTrades(10)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	got := trades[0]
	assert.Equal(t, tradeID, got.TradeID)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, "BUY", got.Action)
	assert.Equal(t, 66, got.Quantity)
	assert.InDelta(t, 150.25, got.EntryPrice, 1e-9)
	assert.True(t, got.AgentGenerated)
	assert.InDelta(t, 0.75, got.Confidence, 1e-9)
	assert.Equal(t, "OPEN", got.Status)
	assert.Equal(t, "PAPER", got.TradingMode)
	assert.False(t, got.EntryTime.IsZero())
}

func TestSQLite_UpdateExit(t *testing.T) {
	j := newTestSQLite(t)

	tradeID, err := j.LogTrade(TradeRecord{
		Symbol: "MSFT", Action: "BUY", Quantity: 10,
		OrderType: "MKT", EntryPrice: 400,
	})
	require.NoError(t, err)

	err = j.UpdateExit(tradeID, ExitUpdate{
		ExitPrice: 410,
		PnL:       100,
		PnLPct:    2.5,
		ExitTime:  time.Now().UTC(),
	})
	require.NoError(t, err)

	trades, err := j.ListTrades(10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "CLOSED", trades[0].Status)
	assert.InDelta(t, 100.0, trades[0].PnL, 1e-9)
	assert.InDelta(t, 410.0, trades[0].ExitPrice, 1e-9)
}

func TestSQLite_ListTradesMixedOpenAndClosed(t *testing.T) {
	j := newTestSQLite(t)

	base := time.Now().UTC().Add(-time.Hour)
	openID, err := j.LogTrade(TradeRecord{
		Symbol: "AAPL", Action: "BUY", Quantity: 1, OrderType: "MKT",
		EntryPrice: 150, EntryTime: base,
	})
	require.NoError(t, err)

	closedID, err := j.LogTrade(TradeRecord{
		Symbol: "MSFT", Action: "BUY", Quantity: 1, OrderType: "MKT",
		EntryPrice: 400, EntryTime: base.Add(time.Minute),
	})
	require.NoError(t, err)

	closedAt := time.Now().UTC()
	require.NoError(t, j.UpdateExit(closedID, ExitUpdate{
		ExitPrice: 410, PnL: 10, PnLPct: 2.5, ExitTime: closedAt,
	}))

	// The open row's NULL exit_time must not break the scan.
	trades, err := j.ListTrades(10)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, closedID, trades[0].TradeID)
	assert.Equal(t, "CLOSED", trades[0].Status)
	assert.False(t, trades[0].ExitTime.IsZero())
	assert.WithinDuration(t, closedAt, trades[0].ExitTime, time.Second)

	assert.Equal(t, openID, trades[1].TradeID)
	assert.Equal(t, "OPEN", trades[1].Status)
	assert.True(t, trades[1].ExitTime.IsZero())
}

func TestSQLite_UpdateExitUnknownTrade(t *testing.T) {
	j := newTestSQLite(t)

	err := j.UpdateExit("NOPE", ExitUpdate{ExitPrice: 1})
	assert.Error(t, err)
}

func TestSQLite_ListTradesNewestFirst(t *testing.T) {
	j := newTestSQLite(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i, sym := range []string{"AAPL", "MSFT", "TSLA"} {
		_, err := j.LogTrade(TradeRecord{
			Symbol: sym, Action: "BUY", Quantity: 1, OrderType: "MKT",
			EntryPrice: 100, EntryTime: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	trades, err := j.ListTrades(2)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "TSLA", trades[0].Symbol)
	assert.Equal(t, "MSFT", trades[1].Symbol)
}
