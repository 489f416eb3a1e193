package market

// AccountSnapshot holds the account-level figures used for risk checks.
// It is fetched fresh from the gateway on every decision and never cached.
type AccountSnapshot struct {
	TotalEquity        float64
	AvailableCash      float64
	BuyingPower        float64
	MaintenanceMargin  float64
	ExcessLiquidity    float64
	GrossPositionValue float64
}

// Position is a view of one open position as reported by the gateway.
type Position struct {
	Symbol        string
	Quantity      float64
	AvgCost       float64
	CurrentPrice  float64
	MarketValue   float64
	UnrealizedPL  float64
	UnrealizedPct float64
}
