package risk

import (
	"context"
	"fmt"
	"time"

	"coinpilot/internal/exchange"
	"coinpilot/internal/executor"
	"coinpilot/internal/models"
	"coinpilot/internal/storage"
	"coinpilot/pkg/logger"

	"github.com/shopspring/decimal"
)

// Duplicate-position band: an open position with entry within ±0.4% of the
// current price blocks a new buy.
const duplicateBand = 0.004

// Profitability margin: positions sell only above entry×1.005; the candidate
// query mirrors it as entry < price×0.995.
const profitMargin = 0.005

// Manager enforces the ordered risk checks and drives the executor. One
// instance serves every user; per-user state arrives via cfg and client.
type Manager struct {
	cooldowns *Cooldowns
	positions storage.Positions
	exec      *executor.Executor
	now       func() time.Time
}

func NewManager(cooldowns *Cooldowns, positions storage.Positions, exec *executor.Executor) *Manager {
	return &Manager{
		cooldowns: cooldowns,
		positions: positions,
		exec:      exec,
		now:       time.Now,
	}
}

// EvaluateBuy runs the buy checks in order, short-circuiting on the first
// failure, and executes the buy when every check passes.
func (m *Manager) EvaluateBuy(ctx context.Context, client exchange.Client, cfg *models.BotConfig, symbol string) Outcome {
	now := m.now()

	// 1. cooldown
	cooldown := time.Duration(cfg.CooldownMinutes) * time.Minute
	if last, ok := m.cooldowns.Last(symbol); ok && now.Sub(last) < cooldown {
		return rejected(symbol, models.ActionBuy, ReasonCooldown,
			fmt.Sprintf("last trade %s ago", now.Sub(last).Round(time.Second)))
	}

	// 2. price band
	price, err := client.GetPrice(ctx, symbol)
	if err != nil {
		return rejected(symbol, models.ActionBuy, ReasonExchange, err.Error())
	}
	if limit, ok := cfg.Limit(symbol); ok {
		if limit.LowerPriceLimit > 0 && price < limit.LowerPriceLimit {
			return rejected(symbol, models.ActionBuy, ReasonPriceBand,
				fmt.Sprintf("price %.8f below lower limit %.8f", price, limit.LowerPriceLimit))
		}
		if limit.UpperPriceLimit > 0 && price > limit.UpperPriceLimit {
			return rejected(symbol, models.ActionBuy, ReasonPriceBand,
				fmt.Sprintf("price %.8f above upper limit %.8f", price, limit.UpperPriceLimit))
		}
	}

	// 3. minimum notional: raise the spend rather than reject
	info, err := client.GetSymbolInfo(ctx, symbol)
	if err != nil {
		return rejected(symbol, models.ActionBuy, ReasonExchange, err.Error())
	}
	amount := cfg.TradeAmount
	if info.MinNotional > 0 && amount < info.MinNotional {
		amount = info.MinNotional
	}

	// 4. max investment; a query failure fails closed
	invested, err := m.positions.SumOpenQuoteValue(ctx, cfg.UserID)
	if err != nil {
		logger.Error("risk: investment query failed for user %d, failing closed: %v", cfg.UserID, err)
		return rejected(symbol, models.ActionBuy, ReasonMaxInvestment, "investment query failed")
	}
	if invested+amount > cfg.MaxInvestment {
		return rejected(symbol, models.ActionBuy, ReasonMaxInvestment,
			fmt.Sprintf("open %.2f + candidate %.2f exceeds cap %.2f", invested, amount, cfg.MaxInvestment))
	}

	// 5. duplicate-position band
	open, err := m.positions.OpenBotPositions(ctx, cfg.UserID, symbol)
	if err != nil {
		return rejected(symbol, models.ActionBuy, ReasonStorage, err.Error())
	}
	for _, p := range open {
		if p.EntryPrice >= price*(1-duplicateBand) && p.EntryPrice <= price*(1+duplicateBand) {
			return rejected(symbol, models.ActionBuy, ReasonDuplicatePosition,
				fmt.Sprintf("open position %s entry %.8f within ±%.1f%% of %.8f", p.ID, p.EntryPrice, duplicateBand*100, price))
		}
	}

	// 6. balance
	bal, err := client.FreeBalance(ctx, info.QuoteAsset)
	if err != nil {
		return rejected(symbol, models.ActionBuy, ReasonExchange, err.Error())
	}
	if bal.Free < amount {
		return rejected(symbol, models.ActionBuy, ReasonInsufficientBalance,
			fmt.Sprintf("free %s %.8f < %.8f", info.QuoteAsset, bal.Free, amount))
	}

	// 7. execute; cooldown is stamped only on exchange success
	pos, err := m.exec.Buy(ctx, client, cfg.UserID, info, amount)
	if err != nil {
		return rejected(symbol, models.ActionBuy, ReasonExchange, err.Error())
	}
	m.cooldowns.Stamp(symbol, m.now())
	return Outcome{Symbol: symbol, Side: models.ActionBuy, Executed: true, Position: &pos}
}

// EvaluateSell evaluates every eligible position for (user, symbol). The
// balance gate is all-or-nothing; past it, candidates execute independently
// and one failure does not roll back earlier sells in the batch.
func (m *Manager) EvaluateSell(ctx context.Context, client exchange.Client, cfg *models.BotConfig, symbol string) []Outcome {
	info, err := client.GetSymbolInfo(ctx, symbol)
	if err != nil {
		return []Outcome{rejected(symbol, models.ActionSell, ReasonExchange, err.Error())}
	}
	price, err := client.GetPrice(ctx, symbol)
	if err != nil {
		return []Outcome{rejected(symbol, models.ActionSell, ReasonExchange, err.Error())}
	}

	// 1. base-asset balance must exist
	bal, err := client.FreeBalance(ctx, info.BaseAsset)
	if err != nil {
		return []Outcome{rejected(symbol, models.ActionSell, ReasonExchange, err.Error())}
	}
	if bal.Free <= 0 {
		return []Outcome{rejected(symbol, models.ActionSell, ReasonInsufficientBalance,
			fmt.Sprintf("no free %s", info.BaseAsset))}
	}

	// 2. candidates: open bot positions bought below price×(1-margin)
	candidates, err := m.positions.ProfitableOpen(ctx, cfg.UserID, symbol, price*(1-profitMargin))
	if err != nil {
		return []Outcome{rejected(symbol, models.ActionSell, ReasonStorage, err.Error())}
	}
	if len(candidates) == 0 {
		return []Outcome{rejected(symbol, models.ActionSell, ReasonNoCandidates, "no profitable open positions")}
	}

	// 3. all-or-nothing balance gate, no partial-balance splitting
	var totalQty float64
	for _, p := range candidates {
		totalQty += p.Quantity
	}
	if bal.Free < totalQty {
		return []Outcome{rejected(symbol, models.ActionSell, ReasonInsufficientBalance,
			fmt.Sprintf("free %s %.8f < candidates total %.8f", info.BaseAsset, bal.Free, totalQty))}
	}

	// 4. per candidate, independently
	outcomes := make([]Outcome, 0, len(candidates))
	for _, pos := range candidates {
		outcomes = append(outcomes, m.sellOne(ctx, client, pos, info, price))
	}
	return outcomes
}

func (m *Manager) sellOne(ctx context.Context, client exchange.Client, pos models.Position, info models.SymbolInfo, price float64) Outcome {
	qty := quantize(pos.Quantity, info.StepSize)
	if qty <= 0 || (info.MinQty > 0 && qty < info.MinQty) {
		return rejected(pos.Symbol, models.ActionSell, ReasonBelowMinQty,
			fmt.Sprintf("position %s qty %.8f below min %.8f", pos.ID, qty, info.MinQty))
	}
	if info.MinNotional > 0 && qty*price < info.MinNotional {
		return rejected(pos.Symbol, models.ActionSell, ReasonBelowMinNotional,
			fmt.Sprintf("position %s notional %.8f below min %.8f", pos.ID, qty*price, info.MinNotional))
	}
	// entry prices differ per candidate, so the margin is re-checked here
	if price < pos.EntryPrice*(1+profitMargin) {
		return rejected(pos.Symbol, models.ActionSell, ReasonNotProfitable,
			fmt.Sprintf("position %s entry %.8f needs price ≥ %.8f", pos.ID, pos.EntryPrice, pos.EntryPrice*(1+profitMargin)))
	}

	sale, err := m.exec.Sell(ctx, client, pos, info, qty)
	if err != nil {
		return rejected(pos.Symbol, models.ActionSell, ReasonExchange, err.Error())
	}
	m.cooldowns.Stamp(pos.Symbol, m.now())
	return Outcome{Symbol: pos.Symbol, Side: models.ActionSell, Executed: true, Sale: &sale}
}

// quantize floors qty to the lot step without float dust.
func quantize(qty, step float64) float64 {
	if step <= 0 {
		return qty
	}
	q := decimal.NewFromFloat(qty)
	s := decimal.NewFromFloat(step)
	out, _ := q.Div(s).Floor().Mul(s).Float64()
	return out
}
