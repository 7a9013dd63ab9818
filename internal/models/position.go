package models

import "time"

// Position is a persisted bot buy. Closed is the only field ever mutated;
// rows are never deleted by the engine.
type Position struct {
	ID         string
	UserID     int64
	Symbol     string
	EntryPrice float64
	Quantity   float64
	QuoteValue float64
	Commission float64
	OpenedAt   time.Time
	Closed     bool
	BotPlaced  bool
}

// Sale is immutable once written, one per executed sell leg.
type Sale struct {
	ID            string
	PositionID    string
	UserID        int64
	Symbol        string
	ExitPrice     float64
	Quantity      float64
	Commission    float64
	Profit        float64
	ProfitPercent float64
	ClosedAt      time.Time
}
