package strategy

import "coinpilot/internal/models"

// Aggregate fuses per-interval signals for one user×symbol. Per-side
// confidence sums are divided by the number of *configured* intervals, not
// the number that contributed — a signal seen on one timeframe out of three
// is deliberately dampened to a third of its strength.
func Aggregate(symbol string, signals []models.Signal, configuredIntervals int) models.AggregatedSignal {
	out := models.AggregatedSignal{Symbol: symbol, Action: models.ActionNone}
	if configuredIntervals <= 0 {
		return out
	}

	var buySum, sellSum float64
	for _, s := range signals {
		if s.Confidence < models.ActionThreshold {
			continue
		}
		switch s.Action {
		case models.ActionBuy:
			buySum += s.Confidence
		case models.ActionSell:
			sellSum += s.Confidence
		}
	}

	buyAvg := buySum / float64(configuredIntervals)
	sellAvg := sellSum / float64(configuredIntervals)

	switch {
	case buyAvg >= models.ActionThreshold && buyAvg > sellAvg:
		out.Action = models.ActionBuy
		out.Confidence = buyAvg
	case sellAvg >= models.ActionThreshold && sellAvg > buyAvg:
		out.Action = models.ActionSell
		out.Confidence = sellAvg
	default:
		out.Confidence = max(buyAvg, sellAvg)
	}
	return out
}
