package models

import "time"

// Candle is one kline, open time ascending when in a slice.
type Candle struct {
	Symbol    string
	Interval  string
	OpenTime  time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime time.Time
}

// Pair identifies one candle series. The scheduler dedupes fetches by Pair
// across every active user.
type Pair struct {
	Symbol   string
	Interval string
}

func (p Pair) String() string {
	return p.Symbol + "@" + p.Interval
}
