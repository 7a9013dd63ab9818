package risk

import (
	"context"
	"testing"
	"time"

	"coinpilot/internal/executor"
	"coinpilot/internal/models"
	"coinpilot/pkg/logger"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger.Replace(zap.NewNop())
	m.Run()
}

type fakeClient struct {
	price    float64
	priceErr error
	info     models.SymbolInfo
	balances map[string]float64
	balErr   error

	buyFail  bool
	sellFail bool

	buys  []float64 // quote amounts
	sells []float64 // quantities
}

func (f *fakeClient) GetPrice(context.Context, string) (float64, error) {
	return f.price, f.priceErr
}
func (f *fakeClient) GetKlines(context.Context, string, string, int) ([]models.Candle, error) {
	return nil, nil
}
func (f *fakeClient) GetSymbolInfo(context.Context, string) (models.SymbolInfo, error) {
	return f.info, nil
}
func (f *fakeClient) FreeBalance(_ context.Context, asset string) (models.Balance, error) {
	if f.balErr != nil {
		return models.Balance{}, f.balErr
	}
	return models.Balance{Asset: asset, Free: f.balances[asset]}, nil
}
func (f *fakeClient) PlaceBuyOrder(_ context.Context, symbol string, quoteAmount float64) (models.OrderResult, error) {
	if f.buyFail {
		return models.OrderResult{Success: false, Error: "boom"}, errors.New("boom")
	}
	f.buys = append(f.buys, quoteAmount)
	qty := quoteAmount / f.price
	return models.OrderResult{
		Success: true,
		Symbol:  symbol,
		Side:    models.ActionBuy,
		Fills:   []models.Fill{{Price: f.price, Quantity: qty, CommissionAsset: f.info.QuoteAsset}},
	}, nil
}
func (f *fakeClient) PlaceSellOrder(_ context.Context, symbol string, qty float64) (models.OrderResult, error) {
	if f.sellFail {
		return models.OrderResult{Success: false, Error: "boom"}, errors.New("boom")
	}
	f.sells = append(f.sells, qty)
	return models.OrderResult{
		Success: true,
		Symbol:  symbol,
		Side:    models.ActionSell,
		Fills:   []models.Fill{{Price: f.price, Quantity: qty, CommissionAsset: f.info.QuoteAsset}},
	}, nil
}

type fakePositions struct {
	open       []models.Position
	openErr    error
	candidates []models.Position
	candErr    error
	sum        float64
	sumErr     error

	inserted []models.Position
	closed   []string
}

func (f *fakePositions) Insert(_ context.Context, p *models.Position) error {
	f.inserted = append(f.inserted, *p)
	return nil
}
func (f *fakePositions) MarkClosed(_ context.Context, id string) error {
	f.closed = append(f.closed, id)
	return nil
}
func (f *fakePositions) OpenBotPositions(context.Context, int64, string) ([]models.Position, error) {
	return f.open, f.openErr
}
func (f *fakePositions) ProfitableOpen(context.Context, int64, string, float64) ([]models.Position, error) {
	return f.candidates, f.candErr
}
func (f *fakePositions) SumOpenQuoteValue(context.Context, int64) (float64, error) {
	return f.sum, f.sumErr
}

type fakeSales struct{ inserted []models.Sale }

func (f *fakeSales) Insert(_ context.Context, s *models.Sale) error {
	f.inserted = append(f.inserted, *s)
	return nil
}

var info = models.SymbolInfo{
	Symbol:      "BTCUSDT",
	BaseAsset:   "BTC",
	QuoteAsset:  "USDT",
	MinQty:      0.0001,
	StepSize:    0.0001,
	MinNotional: 10,
}

func newManager(client *fakeClient, positions *fakePositions) (*Manager, *Cooldowns, *fakeSales) {
	sales := &fakeSales{}
	cd := NewCooldowns()
	m := NewManager(cd, positions, executor.New(positions, sales))
	return m, cd, sales
}

func baseConfig() *models.BotConfig {
	return &models.BotConfig{
		UserID:          42,
		TradeAmount:     50,
		Intervals:       []string{"1h"},
		Symbols:         []models.SymbolLimit{{Symbol: "BTCUSDT"}},
		CooldownMinutes: 60,
		MaxInvestment:   1000,
	}
}

func TestBuyCooldownAllowsExactlyOne(t *testing.T) {
	client := &fakeClient{price: 100, info: info, balances: map[string]float64{"USDT": 10000}}
	m, _, _ := newManager(client, &fakePositions{})
	cfg := baseConfig()

	first := m.EvaluateBuy(context.Background(), client, cfg, "BTCUSDT")
	second := m.EvaluateBuy(context.Background(), client, cfg, "BTCUSDT")

	if !first.Executed {
		t.Fatalf("first buy should execute, got %+v", first)
	}
	if second.Executed || second.Reason != ReasonCooldown {
		t.Fatalf("second buy should hit cooldown, got %+v", second)
	}
	if len(client.buys) != 1 {
		t.Fatalf("expected exactly one order, got %d", len(client.buys))
	}
}

func TestBuyPriceBand(t *testing.T) {
	client := &fakeClient{price: 100, info: info, balances: map[string]float64{"USDT": 10000}}
	m, _, _ := newManager(client, &fakePositions{})
	cfg := baseConfig()
	cfg.Symbols = []models.SymbolLimit{{Symbol: "BTCUSDT", LowerPriceLimit: 110}}

	out := m.EvaluateBuy(context.Background(), client, cfg, "BTCUSDT")
	if out.Executed || out.Reason != ReasonPriceBand {
		t.Fatalf("want price band rejection, got %+v", out)
	}
}

func TestBuyRaisesToMinNotional(t *testing.T) {
	client := &fakeClient{price: 100, info: info, balances: map[string]float64{"USDT": 10000}}
	m, _, _ := newManager(client, &fakePositions{})
	cfg := baseConfig()
	cfg.TradeAmount = 5 // below the 10 USDT minimum

	out := m.EvaluateBuy(context.Background(), client, cfg, "BTCUSDT")
	if !out.Executed {
		t.Fatalf("buy should execute, got %+v", out)
	}
	if len(client.buys) != 1 || client.buys[0] != 10 {
		t.Fatalf("spend should be raised to min notional 10, got %v", client.buys)
	}
}

func TestBuyMaxInvestment(t *testing.T) {
	tests := []struct {
		name     string
		invested float64
		wantBuy  bool
	}{
		{"equality is approved", 950, true},
		{"any excess is rejected", 950.01, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{price: 100, info: info, balances: map[string]float64{"USDT": 10000}}
			m, _, _ := newManager(client, &fakePositions{sum: tt.invested})
			cfg := baseConfig() // amount 50, cap 1000

			out := m.EvaluateBuy(context.Background(), client, cfg, "BTCUSDT")
			if out.Executed != tt.wantBuy {
				t.Fatalf("executed = %v, want %v (%+v)", out.Executed, tt.wantBuy, out)
			}
			if !tt.wantBuy && out.Reason != ReasonMaxInvestment {
				t.Fatalf("reason = %s, want %s", out.Reason, ReasonMaxInvestment)
			}
		})
	}
}

func TestBuyInvestmentQueryFailsClosed(t *testing.T) {
	client := &fakeClient{price: 100, info: info, balances: map[string]float64{"USDT": 10000}}
	m, _, _ := newManager(client, &fakePositions{sumErr: errors.New("db down")})

	out := m.EvaluateBuy(context.Background(), client, baseConfig(), "BTCUSDT")
	if out.Executed || out.Reason != ReasonMaxInvestment {
		t.Fatalf("query failure must fail closed as max investment, got %+v", out)
	}
}

func TestBuyDuplicateBand(t *testing.T) {
	tests := []struct {
		name    string
		entry   float64
		wantBuy bool
	}{
		{"inside band", 100.3, false},
		{"lower edge inside", 99.61, false},
		{"outside band", 104.2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{price: 100, info: info, balances: map[string]float64{"USDT": 10000}}
			positions := &fakePositions{open: []models.Position{{ID: "p0", EntryPrice: tt.entry}}}
			m, _, _ := newManager(client, positions)

			out := m.EvaluateBuy(context.Background(), client, baseConfig(), "BTCUSDT")
			if out.Executed != tt.wantBuy {
				t.Fatalf("executed = %v, want %v (%+v)", out.Executed, tt.wantBuy, out)
			}
			if !tt.wantBuy && out.Reason != ReasonDuplicatePosition {
				t.Fatalf("reason = %s, want %s", out.Reason, ReasonDuplicatePosition)
			}
		})
	}
}

func TestBuyInsufficientBalance(t *testing.T) {
	client := &fakeClient{price: 100, info: info, balances: map[string]float64{"USDT": 49}}
	m, _, _ := newManager(client, &fakePositions{})

	out := m.EvaluateBuy(context.Background(), client, baseConfig(), "BTCUSDT")
	if out.Executed || out.Reason != ReasonInsufficientBalance {
		t.Fatalf("want balance rejection, got %+v", out)
	}
}

func TestBuyExchangeFailureLeavesCooldownUntouched(t *testing.T) {
	client := &fakeClient{price: 100, info: info, balances: map[string]float64{"USDT": 10000}, buyFail: true}
	m, cd, _ := newManager(client, &fakePositions{})

	out := m.EvaluateBuy(context.Background(), client, baseConfig(), "BTCUSDT")
	if out.Executed || out.Reason != ReasonExchange {
		t.Fatalf("want exchange failure, got %+v", out)
	}
	if _, stamped := cd.Last("BTCUSDT"); stamped {
		t.Fatal("cooldown must not be stamped on a failed order")
	}
}

func TestSellNoBaseBalance(t *testing.T) {
	client := &fakeClient{price: 110, info: info, balances: map[string]float64{"BTC": 0}}
	m, _, _ := newManager(client, &fakePositions{})

	outs := m.EvaluateSell(context.Background(), client, baseConfig(), "BTCUSDT")
	if len(outs) != 1 || outs[0].Reason != ReasonInsufficientBalance {
		t.Fatalf("want single balance rejection, got %+v", outs)
	}
}

func TestSellNoCandidates(t *testing.T) {
	client := &fakeClient{price: 110, info: info, balances: map[string]float64{"BTC": 1}}
	m, _, _ := newManager(client, &fakePositions{})

	outs := m.EvaluateSell(context.Background(), client, baseConfig(), "BTCUSDT")
	if len(outs) != 1 || outs[0].Reason != ReasonNoCandidates {
		t.Fatalf("want no-candidates rejection, got %+v", outs)
	}
}

func TestSellBatchBalanceGateIsAllOrNothing(t *testing.T) {
	candidates := []models.Position{
		{ID: "p1", Symbol: "BTCUSDT", EntryPrice: 100, Quantity: 0.6, QuoteValue: 60},
		{ID: "p2", Symbol: "BTCUSDT", EntryPrice: 101, Quantity: 0.6, QuoteValue: 60.6},
	}
	client := &fakeClient{price: 110, info: info, balances: map[string]float64{"BTC": 1.0}} // < 1.2 total
	m, _, _ := newManager(client, &fakePositions{candidates: candidates})

	outs := m.EvaluateSell(context.Background(), client, baseConfig(), "BTCUSDT")
	if len(client.sells) != 0 {
		t.Fatalf("no sell may execute when balance cannot cover the whole batch, got %d", len(client.sells))
	}
	if len(outs) != 1 || outs[0].Reason != ReasonInsufficientBalance {
		t.Fatalf("want single batch rejection, got %+v", outs)
	}
}

func TestSellProfitabilityRecheckPerCandidate(t *testing.T) {
	// second candidate slipped through the query filter but fails the
	// per-candidate margin re-check
	candidates := []models.Position{
		{ID: "p1", Symbol: "BTCUSDT", EntryPrice: 100, Quantity: 0.5, QuoteValue: 50},
		{ID: "p2", Symbol: "BTCUSDT", EntryPrice: 109.8, Quantity: 0.5, QuoteValue: 54.9},
	}
	client := &fakeClient{price: 110, info: info, balances: map[string]float64{"BTC": 1.0}}
	positions := &fakePositions{candidates: candidates}
	m, _, _ := newManager(client, positions)

	outs := m.EvaluateSell(context.Background(), client, baseConfig(), "BTCUSDT")
	if len(outs) != 2 {
		t.Fatalf("want one outcome per candidate, got %d", len(outs))
	}
	if !outs[0].Executed {
		t.Fatalf("first candidate should sell, got %+v", outs[0])
	}
	if outs[1].Executed || outs[1].Reason != ReasonNotProfitable {
		t.Fatalf("second candidate should fail the margin re-check, got %+v", outs[1])
	}
	if len(positions.closed) != 1 || positions.closed[0] != "p1" {
		t.Fatalf("only p1 should be closed, got %v", positions.closed)
	}
}

func TestSellQuantizesAndEnforcesMinimums(t *testing.T) {
	tiny := models.Position{ID: "p1", Symbol: "BTCUSDT", EntryPrice: 100, Quantity: 0.00005, QuoteValue: 0.005}
	client := &fakeClient{price: 110, info: info, balances: map[string]float64{"BTC": 1.0}}
	m, _, _ := newManager(client, &fakePositions{candidates: []models.Position{tiny}})

	outs := m.EvaluateSell(context.Background(), client, baseConfig(), "BTCUSDT")
	if len(outs) != 1 || outs[0].Executed || outs[0].Reason != ReasonBelowMinQty {
		t.Fatalf("dust position must be rejected below min qty, got %+v", outs)
	}
}

func TestSellFailureDoesNotRollBackEarlierLegs(t *testing.T) {
	candidates := []models.Position{
		{ID: "p1", Symbol: "BTCUSDT", EntryPrice: 100, Quantity: 0.5, QuoteValue: 50},
		{ID: "p2", Symbol: "BTCUSDT", EntryPrice: 102, Quantity: 0.5, QuoteValue: 51},
	}
	client := &fakeClient{price: 110, info: info, balances: map[string]float64{"BTC": 1.0}}
	positions := &fakePositions{candidates: candidates}
	m, _, sales := newManager(client, positions)

	// fail the exchange after the first leg
	legs := 0
	clientWrapped := &flakySellClient{fakeClient: client, failAfter: 1, legs: &legs}

	outs := m.EvaluateSell(context.Background(), clientWrapped, baseConfig(), "BTCUSDT")
	if len(outs) != 2 {
		t.Fatalf("want 2 outcomes, got %d", len(outs))
	}
	if !outs[0].Executed || outs[1].Executed {
		t.Fatalf("first leg stands, second fails: %+v", outs)
	}
	if len(sales.inserted) != 1 {
		t.Fatalf("exactly one sale should be recorded, got %d", len(sales.inserted))
	}
}

type flakySellClient struct {
	*fakeClient
	failAfter int
	legs      *int
}

func (f *flakySellClient) PlaceSellOrder(ctx context.Context, symbol string, qty float64) (models.OrderResult, error) {
	if *f.legs >= f.failAfter {
		return models.OrderResult{Success: false, Error: "boom"}, errors.New("boom")
	}
	*f.legs++
	return f.fakeClient.PlaceSellOrder(ctx, symbol, qty)
}

func TestSellStampsCooldown(t *testing.T) {
	candidates := []models.Position{{ID: "p1", Symbol: "BTCUSDT", EntryPrice: 100, Quantity: 0.5, QuoteValue: 50}}
	client := &fakeClient{price: 110, info: info, balances: map[string]float64{"BTC": 1.0}}
	m, cd, _ := newManager(client, &fakePositions{candidates: candidates})

	before := time.Now()
	outs := m.EvaluateSell(context.Background(), client, baseConfig(), "BTCUSDT")
	if !outs[0].Executed {
		t.Fatalf("sell should execute, got %+v", outs[0])
	}
	if stamp, ok := cd.Last("BTCUSDT"); !ok || stamp.Before(before) {
		t.Fatal("cooldown should be stamped after a successful sell")
	}
}
