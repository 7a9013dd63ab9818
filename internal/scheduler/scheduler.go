package scheduler

import (
	"context"
	"sync"
	"time"

	"coinpilot/internal/credentials"
	"coinpilot/internal/exchange"
	"coinpilot/internal/indicator"
	"coinpilot/internal/models"
	"coinpilot/internal/modules/config"
	"coinpilot/internal/notify"
	"coinpilot/internal/risk"
	"coinpilot/internal/strategy"
	"coinpilot/pkg/logger"

	"github.com/opentracing/opentracing-go"
)

// Scheduler drives the per-tick pipeline: snapshot active users, resolve
// credentials, fetch deduplicated candle series under bounded concurrency,
// compute indicators once per pair, then run aggregation, risk and execution
// per user×symbol. Failures are isolated per unit; no tick can prevent the
// next one.
type Scheduler struct {
	cfg       *config.Config
	registry  *Registry
	cooldowns *risk.Cooldowns
	creds     credentials.Store
	factory   exchange.Factory
	market    exchange.Client // unauthenticated-ok client for candle fetches
	evaluator strategy.Evaluator
	riskMgr   *risk.Manager
	notifier  notify.Notifier

	// runMu guards against tick overlap: an overdue tick is skipped, never
	// queued behind a slow one.
	runMu sync.Mutex
}

func New(
	cfg *config.Config,
	registry *Registry,
	cooldowns *risk.Cooldowns,
	creds credentials.Store,
	factory exchange.Factory,
	market exchange.Client,
	evaluator strategy.Evaluator,
	riskMgr *risk.Manager,
	notifier notify.Notifier,
) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		registry:  registry,
		cooldowns: cooldowns,
		creds:     creds,
		factory:   factory,
		market:    market,
		evaluator: evaluator,
		riskMgr:   riskMgr,
		notifier:  notifier,
	}
}

// ActivateBot registers a user's bot, filling omitted fields from the config
// defaults. Returns false when already active.
func (s *Scheduler) ActivateBot(userID int64, cfg models.BotConfig) bool {
	cfg.UserID = userID
	if cfg.TradeAmount <= 0 {
		cfg.TradeAmount = s.cfg.DefaultTradeAmount
	}
	if len(cfg.Intervals) == 0 {
		cfg.Intervals = append([]string{}, s.cfg.DefaultIntervals...)
	}
	if cfg.CandleLimit <= 0 {
		cfg.CandleLimit = s.cfg.DefaultCandleLimit
	}
	if cfg.CooldownMinutes <= 0 {
		cfg.CooldownMinutes = s.cfg.DefaultCooldownMinutes
	}
	if cfg.MaxInvestment <= 0 {
		cfg.MaxInvestment = s.cfg.DefaultMaxInvestment
	}
	cfg.ActivatedAt = time.Now()
	return s.registry.Activate(userID, &cfg)
}

func (s *Scheduler) DeactivateBot(userID int64) bool {
	return s.registry.Deactivate(userID)
}

func (s *Scheduler) GetBotState(userID int64) (*models.BotConfig, bool) {
	return s.registry.Get(userID)
}

// Run drives ticks until the context dies. Self-driving: it runs whether or
// not any bot is active; an empty tick is a no-op.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunTick(ctx)
		}
	}
}

type activeUser struct {
	cfg    *models.BotConfig
	client exchange.Client
}

// RunTick executes one tick. Safe against overlap and inner panics.
func (s *Scheduler) RunTick(ctx context.Context) {
	if !s.runMu.TryLock() {
		logger.Warn("tick overlapped previous tick, skipping")
		return
	}
	defer s.runMu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			logger.Error("tick panic recovered: %v", p)
		}
	}()

	bots := s.registry.Snapshot()
	if len(bots) == 0 {
		return
	}

	span := opentracing.StartSpan("tick")
	defer span.Finish()
	span.SetTag("users", len(bots))

	// resolve credentials; a failure excludes the user for this tick only
	users := make(map[int64]activeUser, len(bots))
	for userID, cfg := range bots {
		keys, err := s.creds.ForUser(ctx, userID)
		if err != nil {
			logger.Warn("tick: skipping user %d: %v", userID, err)
			continue
		}
		users[userID] = activeUser{cfg: cfg, client: s.factory(keys.APIKey, keys.APISecret)}
	}

	snaps, fetchFails := s.fetchSnapshots(ctx, users)
	span.SetTag("pairs", len(snaps))

	trades := 0
	for userID, u := range users {
		executed, symbols := s.runUser(ctx, u, snaps)
		trades += executed
		if executed > 0 {
			// best-effort, at most one per user per tick; false is not an error
			_ = s.notifier.Send(ctx, userID, notify.Payload{Trades: executed, Symbols: symbols})
		}
	}

	logger.Info("tick done: users=%d pairs=%d fetch_failures=%d trades=%d",
		len(users), len(snaps), fetchFails, trades)
}

// fetchSnapshots dedupes (symbol, interval) pairs across every active user,
// fetches each once under bounded concurrency and computes indicators once
// per pair. A failed fetch drops that pair for the tick, nothing more.
func (s *Scheduler) fetchSnapshots(ctx context.Context, users map[int64]activeUser) (map[models.Pair]indicator.Snapshot, int) {
	limits := make(map[models.Pair]int)
	for _, u := range users {
		for _, sym := range u.cfg.Symbols {
			for _, iv := range u.cfg.Intervals {
				p := models.Pair{Symbol: sym.Symbol, Interval: iv}
				if u.cfg.CandleLimit > limits[p] {
					limits[p] = u.cfg.CandleLimit
				}
			}
		}
	}

	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		fails int
		snaps = make(map[models.Pair]indicator.Snapshot, len(limits))
		sem   = make(chan struct{}, s.cfg.FetchConcurrency)
	)
	for pair, limit := range limits {
		wg.Add(1)
		go func(pair models.Pair, limit int) {
			defer wg.Done()
			// a panic in a child goroutine would bypass the tick recover
			// and kill the process, so the fetch unit isolates its own
			defer func() {
				if p := recover(); p != nil {
					logger.Error("tick: fetch %s panicked, pair excluded: %v", pair, p)
					mu.Lock()
					fails++
					mu.Unlock()
				}
			}()
			sem <- struct{}{}
			defer func() { <-sem }()

			candles, err := s.market.GetKlines(ctx, pair.Symbol, pair.Interval, limit)
			if err != nil {
				logger.Warn("tick: fetch %s failed, pair excluded: %v", pair, err)
				mu.Lock()
				fails++
				mu.Unlock()
				return
			}
			closes := make([]float64, len(candles))
			for i, c := range candles {
				closes[i] = c.Close
			}
			snap := indicator.Compute(closes)

			mu.Lock()
			snaps[pair] = snap
			mu.Unlock()
		}(pair, limit)
	}
	wg.Wait()

	return snaps, fails
}

// runUser processes every configured symbol for one user and returns the
// executed trade count plus the symbols traded.
func (s *Scheduler) runUser(ctx context.Context, u activeUser, snaps map[models.Pair]indicator.Snapshot) (int, []string) {
	executed := 0
	var symbols []string
	for _, sym := range u.cfg.Symbols {
		n := s.runSymbol(ctx, u, sym.Symbol, snaps)
		if n > 0 {
			executed += n
			symbols = append(symbols, sym.Symbol)
		}
	}
	return executed, symbols
}

// runSymbol is the per-(user, symbol) unit of work with its own panic
// boundary: a programmer error here is logged and isolated.
func (s *Scheduler) runSymbol(ctx context.Context, u activeUser, symbol string, snaps map[models.Pair]indicator.Snapshot) (executed int) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("tick: user %d symbol %s panicked, unit isolated: %v", u.cfg.UserID, symbol, p)
			executed = 0
		}
	}()

	signals := make([]models.Signal, 0, len(u.cfg.Intervals))
	for _, iv := range u.cfg.Intervals {
		snap, ok := snaps[models.Pair{Symbol: symbol, Interval: iv}]
		if !ok {
			continue // fetch failed this tick
		}
		signals = append(signals, s.evaluator.Evaluate(symbol, iv, snap))
	}

	agg := strategy.Aggregate(symbol, signals, len(u.cfg.Intervals))
	switch agg.Action {
	case models.ActionBuy:
		out := s.riskMgr.EvaluateBuy(ctx, u.client, u.cfg, symbol)
		logOutcome(u.cfg.UserID, out)
		if out.Executed {
			executed++
		}
	case models.ActionSell:
		for _, out := range s.riskMgr.EvaluateSell(ctx, u.client, u.cfg, symbol) {
			logOutcome(u.cfg.UserID, out)
			if out.Executed {
				executed++
			}
		}
	}
	return executed
}

func logOutcome(userID int64, out risk.Outcome) {
	if out.Executed {
		logger.Info("user %d %s %s executed", userID, out.Side, out.Symbol)
		return
	}
	logger.Info("user %d %s %s rejected: %s (%s)", userID, out.Side, out.Symbol, out.Reason, out.Detail)
}
