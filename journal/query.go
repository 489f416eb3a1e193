package journal

// Stats summarizes closed-trade performance.
type Stats struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64 // percent
	TotalPnL      float64
	GrossProfit   float64
	GrossLoss     float64
	ProfitFactor  float64
	AvgPnL        float64
}

// ComputeStats aggregates the closed trades in recs.
func ComputeStats(recs []TradeRecord) Stats {
	var s Stats
	for _, rec := range recs {
		if rec.Status != "CLOSED" {
			continue
		}
		s.TotalTrades++
		s.TotalPnL += rec.PnL
		if rec.PnL > 0 {
			s.WinningTrades++
			s.GrossProfit += rec.PnL
		} else if rec.PnL < 0 {
			s.LosingTrades++
			s.GrossLoss += -rec.PnL
		}
	}

	if s.TotalTrades > 0 {
		s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades) * 100
		s.AvgPnL = s.TotalPnL / float64(s.TotalTrades)
	}
	if s.GrossLoss > 0 {
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	}
	return s
}

// TradeStats loads recent trades from the journal and aggregates them.
func TradeStats(j Journal, limit int) (Stats, error) {
	recs, err := j.ListTrades(limit)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(recs), nil
}
