package risk

import "coinpilot/internal/models"

// Reason is the machine-readable cause of a rejected or failed trade
// attempt. Rejections are normal decision outcomes, not errors.
type Reason string

const (
	ReasonNone Reason = ""

	ReasonCooldown            Reason = "cooldown"
	ReasonPriceBand           Reason = "price_band"
	ReasonMaxInvestment       Reason = "max_investment"
	ReasonDuplicatePosition   Reason = "duplicate_position"
	ReasonInsufficientBalance Reason = "insufficient_balance"
	ReasonNoCandidates        Reason = "no_candidates"
	ReasonBelowMinQty         Reason = "below_min_qty"
	ReasonBelowMinNotional    Reason = "below_min_notional"
	ReasonNotProfitable       Reason = "not_profitable"

	// ReasonExchange covers transient market-data/order failures; the
	// attempt is skipped for the tick, not retried.
	ReasonExchange Reason = "exchange_error"
	// ReasonStorage covers persistence query failures during checks; the
	// engine fails closed.
	ReasonStorage Reason = "storage_error"
)

// Outcome is one buy attempt or one sell leg.
type Outcome struct {
	Symbol   string
	Side     models.Action
	Executed bool
	Reason   Reason
	Detail   string

	Position *models.Position // set on executed buy
	Sale     *models.Sale     // set on executed sell
}

func rejected(symbol string, side models.Action, reason Reason, detail string) Outcome {
	return Outcome{Symbol: symbol, Side: side, Reason: reason, Detail: detail}
}
