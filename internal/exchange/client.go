package exchange

import (
	"context"

	"coinpilot/internal/models"
)

// Client is the market data boundary the engine trades through. One instance
// per user credential pair; implementations must be safe for concurrent use.
type Client interface {
	GetPrice(ctx context.Context, symbol string) (float64, error)
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)
	GetSymbolInfo(ctx context.Context, symbol string) (models.SymbolInfo, error)
	FreeBalance(ctx context.Context, asset string) (models.Balance, error)
	PlaceBuyOrder(ctx context.Context, symbol string, quoteAmount float64) (models.OrderResult, error)
	PlaceSellOrder(ctx context.Context, symbol string, quantity float64) (models.OrderResult, error)
}

// Factory builds a Client for one user's decrypted API keys.
type Factory func(apiKey, apiSecret string) Client
