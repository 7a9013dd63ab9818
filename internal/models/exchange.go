package models

// SymbolInfo carries the exchange filters the risk manager quantizes against.
type SymbolInfo struct {
	Symbol      string
	BaseAsset   string
	QuoteAsset  string
	MinQty      float64
	StepSize    float64
	MinNotional float64
}

// Fill is one execution leg of a market order.
type Fill struct {
	Price           float64
	Quantity        float64
	Commission      float64
	CommissionAsset string
}

// OrderResult is the typed outcome of an order placement: either Success with
// Fills, or a failure with Error set. No loosely typed maps cross this
// boundary.
type OrderResult struct {
	Success bool
	OrderID int64
	Symbol  string
	Side    Action
	Fills   []Fill
	Error   string
}

// Balance is a single-asset free balance summary.
type Balance struct {
	Asset string
	Free  float64
}
