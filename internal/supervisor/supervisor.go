package supervisor

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nitinkhare/tradingorchestrator/internal/blacklist"
	"github.com/nitinkhare/tradingorchestrator/internal/broker"
	"github.com/nitinkhare/tradingorchestrator/internal/clock"
	"github.com/nitinkhare/tradingorchestrator/internal/fxrate"
	"github.com/nitinkhare/tradingorchestrator/internal/metrics"
	"github.com/nitinkhare/tradingorchestrator/internal/notifier"
	"github.com/nitinkhare/tradingorchestrator/internal/pipeline"
	"github.com/nitinkhare/tradingorchestrator/internal/signals"
)

// Config tunes the decision cycle; fields map 1:1 onto config.Config's
// equivalent JSON keys (spec.md §6 "Configuration").
type Config struct {
	PoliticianEnabled       bool
	PoliticianReservedSlots int
	ResearchTopN            int
	MaxPicksPerRun          int
	MinInsiderTickers       int
	RecentlyTradedDays      int
	PipelineTimeout         time.Duration
	BudgetCurrency          string // account/budget currency, e.g. "EUR"
	ConservativeBudget      decimal.Decimal
	AggressiveBudget        decimal.Decimal
	IsReal                  bool // true for a live broker, false for practice
}

// Supervisor wires every collaborator the decision cycle needs and
// drives spec.md §4.7's fixed sequence. Grounded on
// original_source/src/orchestrator/supervisor.py's Supervisor class.
type Supervisor struct {
	Calendar      *clock.Calendar
	Digest        *signals.Builder
	Blacklist     *blacklist.Store
	Broker        broker.Broker
	TradeExecutor *broker.TradeExecutor
	Prices        broker.PriceProvider
	FxClient      fxrate.Client
	Conservative  *pipeline.Coordinator
	Aggressive    *pipeline.Coordinator
	Notifier      notifier.Notifier
	Config        Config
	Logger        *log.Logger
	Audit         zerolog.Logger
}

// RunDecisionCycle executes one full decision cycle for runDate
// (spec.md §4.7). force bypasses the trading-day gate.
func (s *Supervisor) RunDecisionCycle(ctx context.Context, runDate time.Time, force bool) CycleResult {
	start := time.Now()
	correlationID := uuid.NewString()
	audit := s.Audit.With().Str("correlation_id", correlationID).Time("run_date", runDate).Logger()

	defer func() {
		metrics.ObserveCycleDuration("decision_cycle", time.Since(start).Seconds())
	}()

	if !force && !s.Calendar.IsTradingDay(runDate) {
		metrics.IncCycleSkipped("non_trading_day")
		audit.Info().Str("status", "skipped").Str("reason", "non-trading-day").Send()
		return CycleResult{Status: CycleSkipped, Reason: "non-trading-day", Date: runDate, CorrelationID: correlationID}
	}

	digest, err := s.Digest.Build(ctx)
	if err != nil {
		s.Logger.Printf("[supervisor] digest build failed: %v", err)
		digest = &signals.SignalDigest{}
	}

	if digest.InsiderCount < s.Config.MinInsiderTickers {
		reason := "low signal day"
		metrics.IncCycleSkipped("low_signal_day")
		audit.Info().Str("status", "skipped").Str("reason", reason).Int("insider_count", digest.InsiderCount).Send()
		return CycleResult{
			Status:        CycleSkipped,
			Reason:        reason,
			Date:          runDate,
			CorrelationID: correlationID,
			InsiderCount:  digest.InsiderCount,
		}
	}

	activeBlacklist, err := s.Blacklist.ActiveSet(s.Config.RecentlyTradedDays, runDate)
	if err != nil {
		s.Logger.Printf("[supervisor] blacklist lookup failed, proceeding without it: %v", err)
		activeBlacklist = map[signals.TickerSymbol]bool{}
	}

	filtered, blacklisted := filterBlacklist(digest.Candidates, activeBlacklist)
	if len(blacklisted) > 0 {
		s.Logger.Printf("[supervisor] filtered %d blacklisted tickers: %v", len(blacklisted), blacklisted)
	}

	capped := poolAwareCap(filtered, s.Config.PoliticianEnabled, s.Config.ResearchTopN, s.Config.PoliticianReservedSlots)

	portfolio := s.fetchPortfolio(ctx)

	conservativeResult, aggressiveResult := pipeline.RunStrategies(
		ctx, s.Config.PipelineTimeout, s.Conservative, s.Aggressive,
		&signals.SignalDigest{Candidates: capped, InsiderCount: digest.InsiderCount, LookbackDays: digest.LookbackDays, SourceCounts: digest.SourceCounts},
		nil, portfolio, s.Config.ConservativeBudget, s.Config.AggressiveBudget,
	)

	strategies := map[string]StrategyOutcome{
		"conservative": s.executeStrategy(ctx, conservativeResult, s.Config.ConservativeBudget),
		"aggressive":   s.executeStrategy(ctx, aggressiveResult, s.Config.AggressiveBudget),
	}

	boughtTickers := s.persistBlacklistAdditions(strategies, runDate)
	s.notifyOutcomes(ctx, strategies)

	audit.Info().
		Str("status", "ok").
		Int("insider_count", digest.InsiderCount).
		Int("blacklisted", len(blacklisted)).
		Int("newly_blacklisted", len(boughtTickers)).
		Send()

	return CycleResult{
		Status:        CycleOK,
		Date:          runDate,
		CorrelationID: correlationID,
		InsiderCount:  digest.InsiderCount,
		Blacklisted:   blacklisted,
		Strategies:    strategies,
	}
}

// executeStrategy turns one pipeline.Result's buy picks into an
// ExecutionSummary (spec.md §4.7 step 8-9). A failed or timed-out
// pipeline produces an empty execution summary rather than aborting
// the other strategy's execution.
func (s *Supervisor) executeStrategy(ctx context.Context, result pipeline.Result, budget decimal.Decimal) StrategyOutcome {
	if result.Status != pipeline.StatusOK || result.Review == nil {
		return StrategyOutcome{Pipeline: result}
	}

	candidates := s.picksToRankedCandidates(ctx, result.Review.Picks)
	summary := s.TradeExecutor.Execute(ctx, candidates, budget, s.Config.IsReal)

	metrics.SetPicksPerCycle(result.StrategyTag, len(candidates))
	if budget.IsPositive() {
		util, _ := summary.TotalSpent.Div(budget).Mul(decimal.NewFromInt(100)).Float64()
		metrics.SetBudgetUtilizationPct(result.StrategyTag, util)
	}

	return StrategyOutcome{Pipeline: result, Execution: summary}
}

// picksToRankedCandidates sorts buy picks by allocation desc, caps at
// MaxPicksPerRun, fetches a current price for each, and converts it
// into the budget currency (spec.md §4.7 step 8). Unpriced tickers are
// dropped.
func (s *Supervisor) picksToRankedCandidates(ctx context.Context, picks signals.DailyPicks) []broker.RankedCandidate {
	buys := make([]signals.StockPick, 0, len(picks.Picks))
	for _, p := range picks.Picks {
		if p.Action == signals.ActionBuy {
			buys = append(buys, p)
		}
	}
	sort.Slice(buys, func(i, j int) bool { return buys[i].AllocationPct.GreaterThan(buys[j].AllocationPct) })
	if len(buys) > s.Config.MaxPicksPerRun {
		buys = buys[:s.Config.MaxPicksPerRun]
	}

	out := make([]broker.RankedCandidate, 0, len(buys))
	for _, p := range buys {
		price, currency, err := s.Prices.GetPrice(ctx, string(p.Ticker))
		if err != nil || !price.IsPositive() {
			s.Logger.Printf("[supervisor] no price for %s — excluded from execution", p.Ticker)
			continue
		}
		localPrice, err := fxrate.Convert(ctx, s.FxClient, price, currency, s.Config.BudgetCurrency)
		if err != nil {
			s.Logger.Printf("[supervisor] fx conversion failed for %s: %v — excluded from execution", p.Ticker, err)
			continue
		}
		out = append(out, broker.RankedCandidate{
			Ticker:        p.Ticker,
			PriceLocalCcy: localPrice,
			AllocationPct: p.AllocationPct,
			Reasoning:     p.Reasoning,
		})
	}
	return out
}

// fetchPortfolio fetches current broker holdings. Failure yields an
// empty portfolio (spec.md §4.7 step 6 — best-effort).
func (s *Supervisor) fetchPortfolio(ctx context.Context) []signals.Position {
	holdings, err := s.Broker.GetHoldings(ctx)
	if err != nil {
		s.Logger.Printf("[supervisor] failed to fetch portfolio, proceeding with empty: %v", err)
		return nil
	}
	out := make([]signals.Position, 0, len(holdings))
	for _, h := range holdings {
		out = append(out, signals.Position{
			Ticker:      signals.TickerSymbol(h.Ticker),
			Quantity:    h.Quantity,
			AvgBuyPrice: h.AveragePrice,
			IsReal:      s.Config.IsReal,
		})
	}
	return out
}

// persistBlacklistAdditions marks every filled buy across both
// strategies as recently traded (spec.md §4.7 step 9). Failures are
// logged, never fatal.
func (s *Supervisor) persistBlacklistAdditions(strategies map[string]StrategyOutcome, runDate time.Time) []signals.TickerSymbol {
	var bought []signals.TickerSymbol
	for _, outcome := range strategies {
		for _, r := range outcome.Execution.Bought {
			if r.Success {
				bought = append(bought, r.Ticker)
			}
		}
	}
	if len(bought) == 0 {
		return nil
	}
	if err := s.Blacklist.AddMany(bought, runDate); err != nil {
		s.Logger.Printf("[supervisor] failed to persist blacklist additions: %v", err)
	}
	return bought
}

// notifyOutcomes sends a best-effort cycle summary for each strategy
// that actually executed.
func (s *Supervisor) notifyOutcomes(ctx context.Context, strategies map[string]StrategyOutcome) {
	if s.Notifier == nil {
		return
	}
	for _, outcome := range strategies {
		if outcome.Pipeline.Status == pipeline.StatusOK {
			s.Notifier.NotifyCycleSummary(ctx, outcome.Execution)
		}
	}
}

// filterBlacklist splits candidates into those not on the active
// blacklist and the tickers that were dropped.
func filterBlacklist(candidates []signals.EnrichedCandidate, active map[signals.TickerSymbol]bool) ([]signals.EnrichedCandidate, []signals.TickerSymbol) {
	kept := make([]signals.EnrichedCandidate, 0, len(candidates))
	var dropped []signals.TickerSymbol
	for _, c := range candidates {
		if active[c.Ticker] {
			dropped = append(dropped, c.Ticker)
			continue
		}
		kept = append(kept, c)
	}
	return kept, dropped
}

// poolAwareCap reserves reservedSlots of researchTopN for
// politician-sourced candidates and fills the remainder from the
// insider pool, both retaining their conviction ordering (spec.md
// §4.7 step 5). A candidate merged from both sources
// (SourceInsiderPoliticians) counts toward the insider pool, mirroring
// original_source/src/orchestrator/supervisor.py's run_decision_cycle
// ("!= capitol_trades" selects the insider pool, not "== openinsider").
func poolAwareCap(candidates []signals.EnrichedCandidate, politicianEnabled bool, researchTopN, reservedSlots int) []signals.EnrichedCandidate {
	if !politicianEnabled {
		return capSlice(candidates, researchTopN)
	}

	var insiderPool, politicianPool []signals.EnrichedCandidate
	for _, c := range candidates {
		if c.Source == signals.SourcePoliticians {
			politicianPool = append(politicianPool, c)
		} else {
			insiderPool = append(insiderPool, c)
		}
	}

	politicianSlots := reservedSlots
	if len(politicianPool) < politicianSlots {
		politicianSlots = len(politicianPool)
	}
	insiderSlots := researchTopN - politicianSlots
	if insiderSlots < 0 {
		insiderSlots = 0
	}

	out := make([]signals.EnrichedCandidate, 0, researchTopN)
	out = append(out, politicianPool[:politicianSlots]...)
	out = append(out, capSlice(insiderPool, insiderSlots)...)
	return out
}

// EODSnapshot summarizes the account's invested capital, mark-to-market
// value, and unrealized PnL at end of day (spec.md §6's report surface).
type EODSnapshot struct {
	Date          time.Time
	TotalInvested decimal.Decimal
	TotalValue    decimal.Decimal
	UnrealizedPnL decimal.Decimal
	Positions     []signals.Position
}

// RunEndOfDay fetches current holdings and prices and computes a
// mark-to-market snapshot, grounded on
// original_source/src/orchestrator/supervisor.py's run_end_of_day.
// Price lookup failures fall back to the position's average buy price,
// mirroring the original's `current if current > 0 else avg`.
func (s *Supervisor) RunEndOfDay(ctx context.Context, runDate time.Time) EODSnapshot {
	positions := s.fetchPortfolio(ctx)

	totalInvested := decimal.Zero
	totalValue := decimal.Zero
	for _, p := range positions {
		invested := p.Quantity.Mul(p.AvgBuyPrice)
		totalInvested = totalInvested.Add(invested)

		markPrice := p.AvgBuyPrice
		if price, _, err := s.Prices.GetPrice(ctx, string(p.Ticker)); err == nil && price.IsPositive() {
			markPrice = price
		}
		totalValue = totalValue.Add(p.Quantity.Mul(markPrice))
	}

	return EODSnapshot{
		Date:          runDate,
		TotalInvested: totalInvested,
		TotalValue:    totalValue,
		UnrealizedPnL: totalValue.Sub(totalInvested),
		Positions:     positions,
	}
}

func capSlice(s []signals.EnrichedCandidate, n int) []signals.EnrichedCandidate {
	if n < 0 {
		n = 0
	}
	if len(s) <= n {
		return s
	}
	return s[:n]
}
