package executor

import (
	"context"
	"time"

	"coinpilot/internal/exchange"
	"coinpilot/internal/models"
	"coinpilot/internal/storage"
	"coinpilot/pkg/logger"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Executor places market orders and reconciles fills into persisted
// position/sale records. A persistence failure after a successful exchange
// trade is logged as a critical inconsistency and never rolled back: the
// exchange-side trade stands.
type Executor struct {
	positions storage.Positions
	sales     storage.Sales
	now       func() time.Time
}

func New(positions storage.Positions, sales storage.Sales) *Executor {
	return &Executor{
		positions: positions,
		sales:     sales,
		now:       time.Now,
	}
}

// Buy places a market buy for quoteAmount and persists the resulting
// position. The returned error is exchange-side only; err == nil means the
// trade executed, whatever happened to the local record.
func (e *Executor) Buy(
	ctx context.Context,
	client exchange.Client,
	userID int64,
	info models.SymbolInfo,
	quoteAmount float64,
) (models.Position, error) {
	res, err := client.PlaceBuyOrder(ctx, info.Symbol, quoteAmount)
	if err != nil || !res.Success {
		if err == nil {
			err = errors.Errorf("buy rejected: %s", res.Error)
		}
		return models.Position{}, err
	}

	avgPrice, qty, commission := reconcile(res.Fills, info.QuoteAsset)
	pos := models.Position{
		ID:         uuid.NewString(),
		UserID:     userID,
		Symbol:     info.Symbol,
		EntryPrice: avgPrice,
		Quantity:   qty,
		QuoteValue: avgPrice * qty,
		Commission: commission,
		OpenedAt:   e.now(),
		Closed:     false,
		BotPlaced:  true,
	}

	if perr := e.positions.Insert(ctx, &pos); perr != nil {
		logger.Error("CRITICAL: buy order %d for user %d executed on exchange but position not persisted: %v",
			res.OrderID, userID, perr)
	}
	return pos, nil
}

// Sell places a market sell for the full position quantity (quantized by the
// caller), records the sale and marks the position closed.
func (e *Executor) Sell(
	ctx context.Context,
	client exchange.Client,
	pos models.Position,
	info models.SymbolInfo,
	quantity float64,
) (models.Sale, error) {
	res, err := client.PlaceSellOrder(ctx, info.Symbol, quantity)
	if err != nil || !res.Success {
		if err == nil {
			err = errors.Errorf("sell rejected: %s", res.Error)
		}
		return models.Sale{}, err
	}

	avgPrice, qty, commission := reconcile(res.Fills, info.QuoteAsset)
	gross := avgPrice * qty
	profit := gross - pos.QuoteValue - commission
	profitPct := 0.0
	if pos.QuoteValue > 0 {
		profitPct = profit / pos.QuoteValue * 100
	}

	sale := models.Sale{
		ID:            uuid.NewString(),
		PositionID:    pos.ID,
		UserID:        pos.UserID,
		Symbol:        pos.Symbol,
		ExitPrice:     avgPrice,
		Quantity:      qty,
		Commission:    commission,
		Profit:        profit,
		ProfitPercent: profitPct,
		ClosedAt:      e.now(),
	}

	if perr := e.sales.Insert(ctx, &sale); perr != nil {
		logger.Error("CRITICAL: sell order %d for user %d executed on exchange but sale not persisted: %v",
			res.OrderID, pos.UserID, perr)
	}
	if perr := e.positions.MarkClosed(ctx, pos.ID); perr != nil {
		logger.Error("CRITICAL: sell order %d executed but position %s not marked closed: %v",
			res.OrderID, pos.ID, perr)
	}
	return sale, nil
}

// reconcile derives the realized average price, executed quantity and total
// commission from fills. Only commission paid in the quote asset is summed;
// other commission assets stay on the fills, uncounted and unconverted.
func reconcile(fills []models.Fill, quoteAsset string) (avgPrice, qty, commission float64) {
	var notional float64
	for _, f := range fills {
		notional += f.Price * f.Quantity
		qty += f.Quantity
		if f.CommissionAsset == quoteAsset {
			commission += f.Commission
		}
	}
	if qty > 0 {
		avgPrice = notional / qty
	}
	return avgPrice, qty, commission
}
