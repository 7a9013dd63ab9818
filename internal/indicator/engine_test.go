package indicator

import (
	"math"
	"testing"
)

func TestComputeNeverPanicsAndBoundsLength(t *testing.T) {
	for _, n := range []int{0, 1, 5, 7, 14, 21, 26, 33, 34, 35, 100} {
		closes := make([]float64, n)
		for i := range closes {
			closes[i] = 100 + float64(i)
		}

		snap := Compute(closes)

		for name, series := range map[string][]float64{
			"EMA7":       snap.EMA7,
			"EMA21":      snap.EMA21,
			"RSI":        snap.RSI,
			"MACD":       snap.MACD,
			"MACDSignal": snap.MACDSignal,
			"MACDHist":   snap.MACDHist,
		} {
			if len(series) > n {
				t.Errorf("n=%d: %s longer than input: %d", n, name, len(series))
			}
		}
	}
}

func TestComputeEmptyInput(t *testing.T) {
	snap := Compute(nil)
	if len(snap.EMA7) != 0 || len(snap.RSI) != 0 || len(snap.MACDHist) != 0 {
		t.Fatalf("expected empty series for empty input, got %+v", snap)
	}
}

func TestEMAWarmupLengths(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	snap := Compute(closes)

	if got, want := len(snap.EMA7), 50-EMAFastPeriod+1; got != want {
		t.Errorf("EMA7 length = %d, want %d", got, want)
	}
	if got, want := len(snap.EMA21), 50-EMASlowPeriod+1; got != want {
		t.Errorf("EMA21 length = %d, want %d", got, want)
	}
	if got, want := len(snap.RSI), 50-RSIPeriod; got != want {
		t.Errorf("RSI length = %d, want %d", got, want)
	}
}

func TestEMAConstantSeries(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 42.5
	}
	snap := Compute(closes)

	for _, v := range snap.EMA7 {
		if math.Abs(v-42.5) > 1e-9 {
			t.Fatalf("EMA of constant series should stay constant, got %v", v)
		}
	}
}

func TestTrendOrderingOnRisingSeries(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)*2
	}
	snap := Compute(closes)

	fast, ok := Latest(snap.EMA7)
	if !ok {
		t.Fatal("no EMA7")
	}
	slow, ok := Latest(snap.EMA21)
	if !ok {
		t.Fatal("no EMA21")
	}
	if fast <= slow {
		t.Errorf("on a steady uptrend EMA7 (%v) should exceed EMA21 (%v)", fast, slow)
	}

	rsi, ok := Latest(snap.RSI)
	if !ok {
		t.Fatal("no RSI")
	}
	if rsi < 99 {
		t.Errorf("RSI on gains-only series = %v, want ~100", rsi)
	}
}

func TestSlope(t *testing.T) {
	if _, ok := Slope([]float64{1}); ok {
		t.Error("slope of a single point should not be defined")
	}
	if rising, _ := Slope([]float64{1, 2}); !rising {
		t.Error("expected rising slope")
	}
	if rising, _ := Slope([]float64{2, 1}); rising {
		t.Error("expected falling slope")
	}
}
