package storage

import (
	"context"
	"fmt"

	"coinpilot/internal/models"
	"coinpilot/pkg/db"
)

// PgSales implements Sales on postgres.
type PgSales struct {
	tm db.TxManager
}

func NewPgSales(tm db.TxManager) *PgSales {
	return &PgSales{tm: tm}
}

const insertSaleSQL = `
INSERT INTO sales (id, position_id, user_id, symbol, exit_price, quantity, commission, profit, profit_percent, closed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func (r *PgSales) Insert(ctx context.Context, s *models.Sale) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Sales.Insert: %w", err)
		}
	}()

	_, err = r.tm.Conn().Exec(ctx, insertSaleSQL,
		s.ID, s.PositionID, s.UserID, s.Symbol, s.ExitPrice, s.Quantity,
		s.Commission, s.Profit, s.ProfitPercent, s.ClosedAt,
	)
	return
}
