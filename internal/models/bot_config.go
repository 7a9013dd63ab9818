package models

import "time"

// SymbolLimit is one traded symbol with optional price guards. A zero limit
// means "no bound on that side".
type SymbolLimit struct {
	Symbol          string  `json:"symbol"`
	LowerPriceLimit float64 `json:"lower_price_limit"`
	UpperPriceLimit float64 `json:"upper_price_limit"`
}

// BotConfig is the in-memory per-user trading configuration. It is created on
// activation and dropped on deactivation or process restart; nothing persists
// it, a restart requires re-activation.
type BotConfig struct {
	UserID int64 `json:"user_id"`

	TradeAmount     float64       `json:"trade_amount"` // quote currency per buy
	Intervals       []string      `json:"intervals"`
	Symbols         []SymbolLimit `json:"symbols"`
	CandleLimit     int           `json:"candle_limit"`
	CooldownMinutes int           `json:"cooldown_minutes"`
	MaxInvestment   float64       `json:"max_investment"`

	ActivatedAt time.Time `json:"activated_at"`
}

func (c *BotConfig) Limit(symbol string) (SymbolLimit, bool) {
	for _, s := range c.Symbols {
		if s.Symbol == symbol {
			return s, true
		}
	}
	return SymbolLimit{}, false
}
