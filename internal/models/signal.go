package models

type Action string

const (
	ActionNone Action = "NONE"
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// ActionThreshold is the minimum confidence at which a signal is actionable,
// both per interval and after aggregation.
const ActionThreshold = 0.5

// Signal is one evaluator verdict for a symbol×interval. Confidence is the
// winning side's weight sum, always in [0,1].
type Signal struct {
	Symbol     string
	Interval   string
	Action     Action
	Confidence float64
}

// AggregatedSignal is the per user×symbol decision fused across every
// configured interval.
type AggregatedSignal struct {
	Symbol     string
	Action     Action
	Confidence float64
}
