package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/cockpit/gateway"
	"github.com/rustyeddy/cockpit/market"
)

func marketSignal(symbol string, qty int) Signal {
	return Signal{
		ID:              "SIG-1",
		Symbol:          symbol,
		Action:          "BUY",
		Quantity:        qty,
		OrderType:       gateway.Market,
		TIF:             gateway.Day,
		Confidence:      0.75,
		Reasoning:       "test",
		ProfitTargetPct: 5.0,
		StopLossPct:     2.0,
	}
}

func TestExecute_ObservationOnlyNeverPlacesOrders(t *testing.T) {
	t.Parallel()

	a, gw, jnl := newTestAgent(t, &fakePredictor{})
	a.SetMode(ObservationOnly)

	result, err := a.Execute(context.Background(), marketSignal("AAPL", 10))
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Empty(t, gw.Orders())
	assert.Empty(t, jnl.records)
}

func TestExecute_PlacesOrderAndJournals(t *testing.T) {
	t.Parallel()

	a, gw, jnl := newTestAgent(t, &fakePredictor{})
	a.SetMode(FullAutonomy)

	result, err := a.Execute(context.Background(), marketSignal("AAPL", 66))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.OrderID)

	orders := gw.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, "AAPL", orders[0].Symbol)
	assert.Equal(t, 66, orders[0].Quantity)
	assert.Equal(t, gateway.Market, orders[0].Type)

	require.Len(t, jnl.records, 1)
	rec := jnl.records[0]
	assert.Equal(t, "AAPL", rec.Symbol)
	assert.True(t, rec.AgentGenerated)
	assert.InDelta(t, 0.75, rec.Confidence, 1e-9)
	// Entry re-fetched at $150; 2% stop, 5% target.
	assert.InDelta(t, 150.0, rec.EntryPrice, 1e-9)
	assert.InDelta(t, 147.0, rec.StopLoss, 1e-9)
	assert.InDelta(t, 157.5, rec.TakeProfit, 1e-9)
}

func TestExecute_JournalFailureDoesNotUndoOrder(t *testing.T) {
	t.Parallel()

	a, gw, jnl := newTestAgent(t, &fakePredictor{})
	a.SetMode(FullAutonomy)
	jnl.err = errors.New("database unavailable")

	result, err := a.Execute(context.Background(), marketSignal("AAPL", 10))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Len(t, gw.Orders(), 1)
}

func TestExecute_PlacementFailure(t *testing.T) {
	t.Parallel()

	a, gw, jnl := newTestAgent(t, &fakePredictor{})
	a.SetMode(FullAutonomy)
	gw.OrderErr = errors.New("rejected")

	result, err := a.Execute(context.Background(), marketSignal("AAPL", 10))
	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Empty(t, jnl.records)
}

func TestExecute_InvalidSignalRejected(t *testing.T) {
	t.Parallel()

	a, gw, _ := newTestAgent(t, &fakePredictor{})
	a.SetMode(FullAutonomy)

	sig := marketSignal("AAPL", 0) // zero quantity
	_, err := a.Execute(context.Background(), sig)
	assert.Error(t, err)
	assert.Empty(t, gw.Orders())

	sig = marketSignal("AAPL", 10)
	sig.OrderType = gateway.Limit // limit order without a limit price
	_, err = a.Execute(context.Background(), sig)
	assert.Error(t, err)
}

func TestSubmit_ManualApprovalQueues(t *testing.T) {
	t.Parallel()

	a, gw, _ := newTestAgent(t, &fakePredictor{})
	a.SetMode(ManualApproval)

	result, err := a.Submit(context.Background(), marketSignal("AAPL", 10))
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Empty(t, gw.Orders())

	pending := a.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "SIG-1", pending[0].ID)

	// Approving executes the queued signal.
	result, err = a.Approve(context.Background(), "SIG-1")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Len(t, gw.Orders(), 1)
	assert.Empty(t, a.Pending())

	// A consumed signal cannot be approved again.
	_, err = a.Approve(context.Background(), "SIG-1")
	assert.Error(t, err)
}

func TestSubmit_ManualApprovalReplacesPerSymbol(t *testing.T) {
	t.Parallel()

	a, gw, _ := newTestAgent(t, &fakePredictor{})
	a.SetMode(ManualApproval)

	first := marketSignal("AAPL", 10)
	second := marketSignal("AAPL", 20)
	second.ID = "SIG-2"
	other := marketSignal("MSFT", 5)
	other.ID = "SIG-3"

	_, err := a.Submit(context.Background(), first)
	require.NoError(t, err)
	_, err = a.Submit(context.Background(), second)
	require.NoError(t, err)
	_, err = a.Submit(context.Background(), other)
	require.NoError(t, err)

	// One slot per symbol; the newer AAPL signal supersedes the older.
	pending := a.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "SIG-2", pending[0].ID)
	assert.Equal(t, 20, pending[0].Quantity)
	assert.Equal(t, "SIG-3", pending[1].ID)

	// The superseded signal is gone and cannot be approved.
	_, err = a.Approve(context.Background(), "SIG-1")
	assert.Error(t, err)
	assert.Empty(t, gw.Orders())
}

func TestRunCycle_ManualApprovalDoesNotAccumulatePending(t *testing.T) {
	t.Parallel()

	p := &fakePredictor{pred: bullish(80)}
	a, gw, _ := newTestAgent(t, p)
	a.SetMode(ManualApproval)

	a.runCycle(context.Background())
	a.runCycle(context.Background())
	a.runCycle(context.Background())

	require.Len(t, a.Pending(), 1)
	assert.Equal(t, "AAPL", a.Pending()[0].Symbol)
	assert.Empty(t, gw.Orders())
}

func TestSubmit_RejectDiscards(t *testing.T) {
	t.Parallel()

	a, gw, _ := newTestAgent(t, &fakePredictor{})
	a.SetMode(ManualApproval)

	_, err := a.Submit(context.Background(), marketSignal("AAPL", 10))
	require.NoError(t, err)

	assert.True(t, a.Reject("SIG-1"))
	assert.Empty(t, a.Pending())
	assert.Empty(t, gw.Orders())
	assert.False(t, a.Reject("SIG-1"))
}

func TestSubmit_FullAutonomyExecutesImmediately(t *testing.T) {
	t.Parallel()

	a, gw, _ := newTestAgent(t, &fakePredictor{})
	a.SetMode(FullAutonomy)

	result, err := a.Submit(context.Background(), marketSignal("AAPL", 10))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Len(t, gw.Orders(), 1)
	assert.Empty(t, a.Pending())
}

func TestRunCycle_CircuitBreakerBlocksCycle(t *testing.T) {
	t.Parallel()

	p := &fakePredictor{pred: bullish(80)}
	a, gw, _ := newTestAgent(t, p)
	a.SetMode(FullAutonomy)

	// A position bleeding past the daily loss limit blocks the cycle.
	gw.SetPositions([]market.Position{{Symbol: "AAPL", UnrealizedPL: -2000}})

	a.runCycle(context.Background())
	assert.Empty(t, gw.Orders())
	assert.Zero(t, p.calls)
}

func TestRunCycle_GeneratesValidatesAndExecutes(t *testing.T) {
	t.Parallel()

	p := &fakePredictor{pred: bullish(80)}
	a, gw, jnl := newTestAgent(t, p)
	a.SetMode(FullAutonomy)

	a.runCycle(context.Background())

	orders := gw.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, "AAPL", orders[0].Symbol)
	assert.Equal(t, 66, orders[0].Quantity)
	assert.Len(t, jnl.records, 1)
}
