package indicator

import "github.com/markcheno/go-talib"

const (
	EMAFastPeriod = 7
	EMASlowPeriod = 21
	RSIPeriod     = 14
	MACDFast      = 12
	MACDSlow      = 26
	MACDSignal    = 9
)

// Snapshot holds the indicator series for one symbol×interval, each aligned
// to the tail of the input closes: the last element of every slice
// corresponds to the newest candle. Slices are shorter than the input by
// their warm-up length, possibly empty when history is too short.
type Snapshot struct {
	Closes []float64
	EMA7   []float64
	EMA21  []float64
	RSI    []float64

	MACD       []float64
	MACDSignal []float64
	MACDHist   []float64
}

// Compute is pure and never fails: whatever the input, it returns a snapshot
// with whatever series the history supports.
func Compute(closes []float64) Snapshot {
	s := Snapshot{Closes: closes}
	s.EMA7 = ema(closes, EMAFastPeriod)
	s.EMA21 = ema(closes, EMASlowPeriod)
	s.RSI = rsi(closes, RSIPeriod)
	s.MACD, s.MACDSignal, s.MACDHist = macd(closes)
	return s
}

// Latest returns the newest value of a series.
func Latest(series []float64) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}
	return series[len(series)-1], true
}

// Slope reports whether the newest value is above the one before it.
func Slope(series []float64) (rising bool, ok bool) {
	if len(series) < 2 {
		return false, false
	}
	return series[len(series)-1] > series[len(series)-2], true
}

// ema is talib's SMA-seeded EMA (k = 2/(n+1)), with the zero-padded warm-up
// prefix trimmed off so the result is tail-aligned.
func ema(closes []float64, period int) []float64 {
	if len(closes) < period || period <= 0 {
		return nil
	}
	return talib.Ema(closes, period)[period-1:]
}

// rsi is Wilder's RSI; talib needs period+1 points for the first value.
func rsi(closes []float64, period int) []float64 {
	if len(closes) <= period {
		return nil
	}
	return talib.Rsi(closes, period)[period:]
}

func macd(closes []float64) (line, signal, hist []float64) {
	// First defined histogram point needs the slow EMA plus the signal EMA
	// warm-up on top of it.
	warmup := MACDSlow + MACDSignal - 2
	if len(closes) <= warmup {
		return nil, nil, nil
	}
	l, s, h := talib.Macd(closes, MACDFast, MACDSlow, MACDSignal)
	return l[warmup:], s[warmup:], h[warmup:]
}
