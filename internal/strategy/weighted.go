package strategy

import (
	"coinpilot/internal/indicator"
	"coinpilot/internal/models"
)

// Rule weights. They sum to 1.0, so the per-side totals are already
// normalized confidences.
const (
	trendWeight = 0.40
	rsiWeight   = 0.30
	macdWeight  = 0.30
)

// RSI bands. Extremes contribute the full momentum weight against the
// extreme's direction (oversold is bullish); the inner lean bands contribute
// half weight.
const (
	rsiOversold   = 30.0
	rsiOverbought = 70.0
	rsiLeanLow    = 45.0
	rsiLeanHigh   = 55.0
)

// Weighted is the default rule set: trend direction, RSI band, MACD
// histogram sign and slope, each voting bullish or bearish.
type Weighted struct{}

func (w *Weighted) Evaluate(symbol, interval string, snap indicator.Snapshot) models.Signal {
	sig := models.Signal{Symbol: symbol, Interval: interval, Action: models.ActionNone}

	ema7, ok7 := indicator.Latest(snap.EMA7)
	ema21, ok21 := indicator.Latest(snap.EMA21)
	rsi, okRSI := indicator.Latest(snap.RSI)
	hist, okHist := indicator.Latest(snap.MACDHist)
	if !ok7 || !ok21 || !okRSI || !okHist {
		// history too short, nothing to say
		return sig
	}

	var bull, bear float64

	switch {
	case ema7 > ema21:
		bull += trendWeight
	case ema7 < ema21:
		bear += trendWeight
	}

	switch {
	case rsi < rsiOversold:
		bull += rsiWeight
	case rsi > rsiOverbought:
		bear += rsiWeight
	case rsi < rsiLeanLow:
		bull += rsiWeight / 2
	case rsi > rsiLeanHigh:
		bear += rsiWeight / 2
	}

	rising, okSlope := indicator.Slope(snap.MACDHist)
	switch {
	case hist > 0:
		if okSlope && rising {
			bull += macdWeight
		} else {
			bull += macdWeight / 2
		}
	case hist < 0:
		if okSlope && !rising {
			bear += macdWeight
		} else {
			bear += macdWeight / 2
		}
	}

	switch {
	case bull > bear && bull >= models.ActionThreshold:
		sig.Action = models.ActionBuy
		sig.Confidence = bull
	case bear > bull && bear >= models.ActionThreshold:
		sig.Action = models.ActionSell
		sig.Confidence = bear
	default:
		// tie or sub-threshold: report the dominant weight, stay flat
		sig.Confidence = max(bull, bear)
	}
	return sig
}
