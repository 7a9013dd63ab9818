package strategy

import (
	"coinpilot/internal/indicator"
	"coinpilot/internal/models"
)

// Evaluator turns one indicator snapshot into a verdict. Implementations are
// the tunable core of the strategy; orchestration only sees this interface.
type Evaluator interface {
	Evaluate(symbol, interval string, snap indicator.Snapshot) models.Signal
}

func NewEvaluator() Evaluator {
	return &Weighted{}
}
