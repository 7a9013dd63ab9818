package exchange

import (
	"context"
	"strconv"
	"time"

	"coinpilot/internal/models"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
)

// BinanceClient wraps the spot REST client behind the Client interface.
type BinanceClient struct {
	spot *binance.Client
}

func NewBinanceClient(apiKey, apiSecret string, testnet bool) *BinanceClient {
	binance.UseTestnet = testnet
	return &BinanceClient{
		spot: binance.NewClient(apiKey, apiSecret),
	}
}

func (c *BinanceClient) GetPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := c.spot.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "get price")
	}
	if len(prices) == 0 {
		return 0, errors.Errorf("no price for %s", symbol)
	}
	px, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse price %q", prices[0].Price)
	}
	return px, nil
}

func (c *BinanceClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	klines, err := c.spot.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "get klines")
	}

	candles := make([]models.Candle, 0, len(klines))
	for _, k := range klines {
		open, _ := strconv.ParseFloat(k.Open, 64)
		high, _ := strconv.ParseFloat(k.High, 64)
		low, _ := strconv.ParseFloat(k.Low, 64)
		cls, _ := strconv.ParseFloat(k.Close, 64)
		vol, _ := strconv.ParseFloat(k.Volume, 64)
		candles = append(candles, models.Candle{
			Symbol:    symbol,
			Interval:  interval,
			OpenTime:  time.UnixMilli(k.OpenTime),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     cls,
			Volume:    vol,
			CloseTime: time.UnixMilli(k.CloseTime),
		})
	}
	return candles, nil
}

func (c *BinanceClient) GetSymbolInfo(ctx context.Context, symbol string) (models.SymbolInfo, error) {
	info, err := c.spot.NewExchangeInfoService().Symbol(symbol).Do(ctx)
	if err != nil {
		return models.SymbolInfo{}, errors.Wrap(err, "exchange info")
	}
	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		out := models.SymbolInfo{
			Symbol:     s.Symbol,
			BaseAsset:  s.BaseAsset,
			QuoteAsset: s.QuoteAsset,
		}
		// Filters come back as loose maps; pick out the three the risk
		// manager quantizes against.
		for _, f := range s.Filters {
			switch f["filterType"] {
			case "LOT_SIZE":
				out.MinQty = filterFloat(f, "minQty")
				out.StepSize = filterFloat(f, "stepSize")
			case "NOTIONAL", "MIN_NOTIONAL":
				if v := filterFloat(f, "minNotional"); v > 0 {
					out.MinNotional = v
				}
			}
		}
		return out, nil
	}
	return models.SymbolInfo{}, errors.Errorf("symbol %s not found", symbol)
}

func filterFloat(f map[string]interface{}, key string) float64 {
	s, ok := f[key].(string)
	if !ok {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func (c *BinanceClient) FreeBalance(ctx context.Context, asset string) (models.Balance, error) {
	acc, err := c.spot.NewGetAccountService().Do(ctx)
	if err != nil {
		return models.Balance{}, errors.Wrap(err, "get account")
	}
	for _, b := range acc.Balances {
		if b.Asset == asset {
			free, _ := strconv.ParseFloat(b.Free, 64)
			return models.Balance{Asset: asset, Free: free}, nil
		}
	}
	return models.Balance{Asset: asset}, nil
}

func (c *BinanceClient) PlaceBuyOrder(ctx context.Context, symbol string, quoteAmount float64) (models.OrderResult, error) {
	resp, err := c.spot.NewCreateOrderService().
		Symbol(symbol).
		Side(binance.SideTypeBuy).
		Type(binance.OrderTypeMarket).
		QuoteOrderQty(strconv.FormatFloat(quoteAmount, 'f', -1, 64)).
		NewOrderRespType(binance.NewOrderRespTypeFULL).
		Do(ctx)
	if err != nil {
		return models.OrderResult{Success: false, Symbol: symbol, Side: models.ActionBuy, Error: err.Error()}, err
	}
	return orderResult(resp, models.ActionBuy), nil
}

func (c *BinanceClient) PlaceSellOrder(ctx context.Context, symbol string, quantity float64) (models.OrderResult, error) {
	resp, err := c.spot.NewCreateOrderService().
		Symbol(symbol).
		Side(binance.SideTypeSell).
		Type(binance.OrderTypeMarket).
		Quantity(strconv.FormatFloat(quantity, 'f', -1, 64)).
		NewOrderRespType(binance.NewOrderRespTypeFULL).
		Do(ctx)
	if err != nil {
		return models.OrderResult{Success: false, Symbol: symbol, Side: models.ActionSell, Error: err.Error()}, err
	}
	return orderResult(resp, models.ActionSell), nil
}

func orderResult(resp *binance.CreateOrderResponse, side models.Action) models.OrderResult {
	out := models.OrderResult{
		Success: true,
		OrderID: resp.OrderID,
		Symbol:  resp.Symbol,
		Side:    side,
		Fills:   make([]models.Fill, 0, len(resp.Fills)),
	}
	for _, f := range resp.Fills {
		price, _ := strconv.ParseFloat(f.Price, 64)
		qty, _ := strconv.ParseFloat(f.Quantity, 64)
		comm, _ := strconv.ParseFloat(f.Commission, 64)
		out.Fills = append(out.Fills, models.Fill{
			Price:           price,
			Quantity:        qty,
			Commission:      comm,
			CommissionAsset: f.CommissionAsset,
		})
	}
	return out
}
