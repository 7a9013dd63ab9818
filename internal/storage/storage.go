package storage

import (
	"context"

	"coinpilot/internal/models"
)

// Positions is the persisted buy-record store. Rows are inserted once and
// only ever mutated by MarkClosed.
type Positions interface {
	Insert(ctx context.Context, p *models.Position) error
	MarkClosed(ctx context.Context, id string) error
	// OpenBotPositions returns open, bot-placed positions for a user,
	// optionally narrowed to one symbol (empty symbol = all), oldest first.
	OpenBotPositions(ctx context.Context, userID int64, symbol string) ([]models.Position, error)
	// ProfitableOpen returns open, bot-placed positions for (user, symbol)
	// with entry price strictly below maxEntry, oldest first.
	ProfitableOpen(ctx context.Context, userID int64, symbol string, maxEntry float64) ([]models.Position, error)
	// SumOpenQuoteValue totals the quote value of the user's open,
	// bot-placed positions.
	SumOpenQuoteValue(ctx context.Context, userID int64) (float64, error)
}

// Sales records executed sell legs; rows are immutable once written.
type Sales interface {
	Insert(ctx context.Context, s *models.Sale) error
}
