package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nitinkhare/tradingorchestrator/internal/clock"
	"github.com/nitinkhare/tradingorchestrator/internal/pipeline"
	"github.com/nitinkhare/tradingorchestrator/internal/sell"
	"github.com/nitinkhare/tradingorchestrator/internal/signals"
	"github.com/nitinkhare/tradingorchestrator/internal/storage"
)

// PriceSource supplies the historical prices a backtest run needs to
// value and execute simulated trades on a given date. A concrete
// financial-data transport is an out-of-scope external collaborator
// (spec.md §6), same as broker.PriceProvider is for live trading.
type PriceSource interface {
	PricesOnDate(ctx context.Context, tickers []signals.TickerSymbol, date time.Time) (map[signals.TickerSymbol]decimal.Decimal, error)
}

// PriceRegistry maps historical-data provider names to factory
// functions, mirroring internal/broker.PriceRegistry for the same
// out-of-scope-transport reason.
var PriceRegistry = map[string]func(configJSON []byte) (PriceSource, error){}

// NewPriceSource looks up a registered PriceSource factory by name.
func NewPriceSource(name string, configJSON []byte) (PriceSource, error) {
	factory, ok := PriceRegistry[name]
	if !ok {
		return nil, fmt.Errorf("backtest: unknown price source %q", name)
	}
	return factory(configJSON)
}

// StrategyConfig binds one backtest strategy to the coordinator stages
// it replays and the budget it trades with.
type StrategyConfig struct {
	Tag         string
	Coordinator *pipeline.Coordinator
	Budget      decimal.Decimal
	IsReal      bool
}

// StrategyResult is one strategy's final tally across a backtest run.
type StrategyResult struct {
	TotalInvested decimal.Decimal
	RealizedPnL   decimal.Decimal
	OpenPositions int
	TotalTrades   int
	Wins          int
	Losses        int
}

// RunSummary is the Backtest Engine's full report for one run.
type RunSummary struct {
	RunID      string
	Name       string
	StartDate  time.Time
	EndDate    time.Time
	DaysTraded int
	Strategies map[string]StrategyResult
}

// Engine replays the decision pipeline day-by-day over stored
// sentiment snapshots, grounded on
// original_source/src/backtesting/engine.py's BacktestEngine.run.
type Engine struct {
	Store       storage.Store
	Sell        *sell.Engine
	Calendar    *clock.Calendar
	Prices      PriceSource
	TickerLimit int // 0 means unlimited
	Logger      *log.Logger
}

// NewEngine wires a backtest Engine. logger may be nil.
func NewEngine(store storage.Store, sellEngine *sell.Engine, calendar *clock.Calendar, prices PriceSource, tickerLimit int, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{Store: store, Sell: sellEngine, Calendar: calendar, Prices: prices, TickerLimit: tickerLimit, Logger: logger}
}

// Run replays every trading day between startDate and endDate
// (inclusive) that has a stored sentiment snapshot, applying sell
// rules then each strategy's research/trader/risk_review stages in
// turn. One date's pipeline failure is logged and that strategy skips
// the day rather than aborting the run (spec.md §4.8 isolation).
func (e *Engine) Run(ctx context.Context, startDate, endDate time.Time, runName string, strategies []StrategyConfig) (*RunSummary, error) {
	totalBudget := decimal.Zero
	for _, sc := range strategies {
		totalBudget = totalBudget.Add(sc.Budget)
	}

	runID, err := e.Store.CreateBacktestRun(ctx, storage.BacktestRun{
		Name:      runName,
		StartDate: startDate,
		EndDate:   endDate,
		Budget:    totalBudget,
		Status:    "running",
	})
	if err != nil {
		return nil, fmt.Errorf("backtest: create run: %w", err)
	}

	portfolios := make(map[string]*SimulatedPortfolio, len(strategies))
	for _, sc := range strategies {
		portfolios[sc.Tag] = NewSimulatedPortfolio()
	}

	daysTraded := 0
	for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		if !e.Calendar.IsTradingDay(d) {
			continue
		}

		snapshot, ok, err := e.Store.GetSentiment(ctx, d)
		if err != nil {
			e.Logger.Printf("backtest: sentiment lookup failed for %s: %v", d.Format("2006-01-02"), err)
			continue
		}
		if !ok {
			continue
		}

		var report pipeline.SentimentReport
		if err := json.Unmarshal(snapshot.ReportJSON, &report); err != nil {
			e.Logger.Printf("backtest: malformed sentiment snapshot for %s: %v", d.Format("2006-01-02"), err)
			continue
		}

		tickers := e.tickersFromReport(report)
		if len(tickers) == 0 {
			e.Logger.Printf("backtest: no tickers in sentiment snapshot for %s, skipping", d.Format("2006-01-02"))
			continue
		}

		prices, err := e.Prices.PricesOnDate(ctx, tickers, d)
		if err != nil {
			e.Logger.Printf("backtest: price fetch failed for %s: %v", d.Format("2006-01-02"), err)
			prices = map[signals.TickerSymbol]decimal.Decimal{}
		}

		for _, sc := range strategies {
			e.applySellRules(portfolios[sc.Tag], prices, d)
		}

		for _, sc := range strategies {
			e.runStrategyForDate(ctx, sc, portfolios[sc.Tag], report, prices, d)
		}

		daysTraded++
		for _, sc := range strategies {
			e.saveDailyResult(ctx, runID, sc.Tag, portfolios[sc.Tag], prices, d)
		}
	}

	if err := e.Store.UpdateBacktestRunStatus(ctx, runID, "completed"); err != nil {
		e.Logger.Printf("backtest: failed to mark run %s completed: %v", runID, err)
	}

	results := make(map[string]StrategyResult, len(strategies))
	for _, sc := range strategies {
		results[sc.Tag] = summarize(portfolios[sc.Tag])
	}

	return &RunSummary{
		RunID:      runID,
		Name:       runName,
		StartDate:  startDate,
		EndDate:    endDate,
		DaysTraded: daysTraded,
		Strategies: results,
	}, nil
}

// runStrategyForDate replays research → trader → risk_review for one
// strategy on one date — the sentiment stage is skipped entirely since
// the sentiment report already came from storage rather than a live
// subreddit fetch.
func (e *Engine) runStrategyForDate(ctx context.Context, sc StrategyConfig, portfolio *SimulatedPortfolio, sentiment pipeline.SentimentReport, prices map[signals.TickerSymbol]decimal.Decimal, tradeDate time.Time) {
	positions := portfolio.AsPositions(sc.IsReal)

	var research pipeline.ResearchReport
	var err error
	if sc.Coordinator.Research != nil {
		research, err = sc.Coordinator.Research(ctx, sentiment)
		if err != nil {
			e.Logger.Printf("backtest: research stage failed for %s on %s: %v", sc.Tag, tradeDate.Format("2006-01-02"), err)
			return
		}
	}

	picks, err := sc.Coordinator.Trader(ctx, research, pipeline.MarketAnalysis{}, positions, sc.Budget)
	if err != nil {
		e.Logger.Printf("backtest: trader stage failed for %s on %s: %v", sc.Tag, tradeDate.Format("2006-01-02"), err)
		return
	}

	review, err := sc.Coordinator.Risk(ctx, picks, research, positions)
	if err != nil {
		e.Logger.Printf("backtest: risk review failed for %s on %s: %v", sc.Tag, tradeDate.Format("2006-01-02"), err)
		return
	}

	e.executePicks(portfolio, review.DailyPicks, sc.Budget, prices, tradeDate)
}

// executePicks turns buy/sell recommendations into simulated trades,
// mirroring original_source/src/backtesting/engine.py's _execute_picks.
func (e *Engine) executePicks(portfolio *SimulatedPortfolio, picks signals.DailyPicks, budget decimal.Decimal, prices map[signals.TickerSymbol]decimal.Decimal, tradeDate time.Time) {
	for _, pick := range picks.Picks {
		if pick.Action != signals.ActionBuy {
			continue
		}
		amount := budget.Mul(pick.AllocationPct).Div(decimal.NewFromInt(100))
		price := prices[pick.Ticker]
		if amount.IsPositive() && price.IsPositive() {
			portfolio.Buy(pick.Ticker, amount, price, tradeDate)
		}
	}

	for _, pick := range picks.SellRecommendations {
		price := prices[pick.Ticker]
		if price.IsPositive() {
			portfolio.Sell(pick.Ticker, price, tradeDate, "llm_recommendation")
		}
	}
}

// applySellRules runs the sell engine's rules against every open
// position and executes whichever fire, mirroring
// original_source/src/backtesting/engine.py's _apply_sell_rules.
func (e *Engine) applySellRules(portfolio *SimulatedPortfolio, prices map[signals.TickerSymbol]decimal.Decimal, tradeDate time.Time) {
	if e.Sell == nil {
		return
	}
	signalsFired := e.Sell.EvaluatePositions(portfolio.AsPositions(false), prices, tradeDate)
	for _, s := range signalsFired {
		portfolio.Sell(s.Ticker, s.TriggerPrice, tradeDate, string(s.SignalType))
	}
}

// saveDailyResult persists one strategy's end-of-day snapshot. A save
// failure is logged, never fatal to the rest of the run.
func (e *Engine) saveDailyResult(ctx context.Context, runID, strategyTag string, portfolio *SimulatedPortfolio, prices map[signals.TickerSymbol]decimal.Decimal, tradeDate time.Time) {
	value := portfolio.Value(prices)
	unrealized := value.Sub(portfolio.TotalInvested).Add(portfolio.RealizedPnL)

	tradesJSON, err := json.Marshal(tradesOn(portfolio.Trades, tradeDate))
	if err != nil {
		e.Logger.Printf("backtest: failed to marshal trades for %s on %s: %v", strategyTag, tradeDate.Format("2006-01-02"), err)
		tradesJSON = []byte("[]")
	}

	if err := e.Store.SaveDailyResult(ctx, storage.DailyResult{
		RunID:         runID,
		Date:          tradeDate,
		StrategyTag:   strategyTag,
		Invested:      portfolio.TotalInvested,
		Value:         value,
		RealizedPnL:   portfolio.RealizedPnL,
		UnrealizedPnL: unrealized,
		TradesJSON:    tradesJSON,
	}); err != nil {
		e.Logger.Printf("backtest: failed to save daily result for %s on %s: %v", strategyTag, tradeDate.Format("2006-01-02"), err)
	}
}

// tickersFromReport extracts every ticker mentioned in a sentiment
// report, capped at TickerLimit when set.
func (e *Engine) tickersFromReport(report pipeline.SentimentReport) []signals.TickerSymbol {
	seen := map[signals.TickerSymbol]bool{}
	var out []signals.TickerSymbol
	for ticker := range report.Mentions {
		t := signals.TickerSymbol(ticker)
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	if e.TickerLimit > 0 && len(out) > e.TickerLimit {
		out = out[:e.TickerLimit]
	}
	return out
}

func summarize(p *SimulatedPortfolio) StrategyResult {
	wins, losses := 0, 0
	for _, t := range p.Trades {
		if t.Action != "sell" {
			continue
		}
		if t.PnL.IsPositive() {
			wins++
		} else {
			losses++
		}
	}
	return StrategyResult{
		TotalInvested: p.TotalInvested,
		RealizedPnL:   p.RealizedPnL,
		OpenPositions: len(p.Positions),
		TotalTrades:   len(p.Trades),
		Wins:          wins,
		Losses:        losses,
	}
}
