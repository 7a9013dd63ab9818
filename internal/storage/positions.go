package storage

import (
	"context"
	"fmt"

	"coinpilot/internal/models"
	"coinpilot/pkg/db"

	"github.com/jackc/pgx/v5"
)

// PgPositions implements Positions on postgres.
type PgPositions struct {
	tm db.TxManager
}

func NewPgPositions(tm db.TxManager) *PgPositions {
	return &PgPositions{tm: tm}
}

const insertPositionSQL = `
INSERT INTO positions (id, user_id, symbol, entry_price, quantity, quote_value, commission, opened_at, closed, bot_placed)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func (r *PgPositions) Insert(ctx context.Context, p *models.Position) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Positions.Insert: %w", err)
		}
	}()

	_, err = r.tm.Conn().Exec(ctx, insertPositionSQL,
		p.ID, p.UserID, p.Symbol, p.EntryPrice, p.Quantity, p.QuoteValue,
		p.Commission, p.OpenedAt, p.Closed, p.BotPlaced,
	)
	return
}

func (r *PgPositions) MarkClosed(ctx context.Context, id string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Positions.MarkClosed: %w", err)
		}
	}()

	tag, err := r.tm.Conn().Exec(ctx,
		`UPDATE positions SET closed = TRUE WHERE id = $1`, id)
	if err != nil {
		return
	}
	if tag.RowsAffected() == 0 {
		err = fmt.Errorf("position %s not found", id)
	}
	return
}

const openBotPositionsSQL = `
SELECT id, user_id, symbol, entry_price, quantity, quote_value, commission, opened_at, closed, bot_placed
FROM positions
WHERE user_id = $1 AND closed = FALSE AND bot_placed = TRUE
  AND ($2 = '' OR symbol = $2)
ORDER BY opened_at ASC`

func (r *PgPositions) OpenBotPositions(ctx context.Context, userID int64, symbol string) (ps []models.Position, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Positions.OpenBotPositions: %w", err)
		}
	}()

	rows, err := r.tm.Conn().Query(ctx, openBotPositionsSQL, userID, symbol)
	if err != nil {
		return nil, err
	}
	return scanPositions(rows)
}

const profitableOpenSQL = `
SELECT id, user_id, symbol, entry_price, quantity, quote_value, commission, opened_at, closed, bot_placed
FROM positions
WHERE user_id = $1 AND symbol = $2 AND closed = FALSE AND bot_placed = TRUE
  AND entry_price < $3
ORDER BY opened_at ASC`

func (r *PgPositions) ProfitableOpen(ctx context.Context, userID int64, symbol string, maxEntry float64) (ps []models.Position, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Positions.ProfitableOpen: %w", err)
		}
	}()

	rows, err := r.tm.Conn().Query(ctx, profitableOpenSQL, userID, symbol, maxEntry)
	if err != nil {
		return nil, err
	}
	return scanPositions(rows)
}

func (r *PgPositions) SumOpenQuoteValue(ctx context.Context, userID int64) (sum float64, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Positions.SumOpenQuoteValue: %w", err)
		}
	}()

	err = r.tm.Conn().QueryRow(ctx,
		`SELECT COALESCE(SUM(quote_value), 0) FROM positions
		 WHERE user_id = $1 AND closed = FALSE AND bot_placed = TRUE`,
		userID,
	).Scan(&sum)
	return
}

func scanPositions(rows pgx.Rows) ([]models.Position, error) {
	defer rows.Close()

	var out []models.Position
	for rows.Next() {
		var p models.Position
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Symbol, &p.EntryPrice, &p.Quantity,
			&p.QuoteValue, &p.Commission, &p.OpenedAt, &p.Closed, &p.BotPlaced,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
