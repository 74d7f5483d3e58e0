// Package main is the entry point for the trading orchestrator.
//
// A single binary exposes every operator-facing surface named in
// spec.md §6 as a subcommand:
//
//	run_daily        one decision cycle, then an optional EOD snapshot
//	run_scheduler    long-running daemon; handles SIGINT/SIGTERM gracefully
//	run_sell_checks  evaluate open positions against the sell rules
//	backtest         replay the pipeline against stored sentiment
//	dry_run          build a digest, run the pipeline, print picks, place no orders
//	report           print the current account's EOD snapshot
//
// This replaces the teacher's family of small binaries (cmd/engine,
// cmd/dashboard, cmd/daily-stats, cmd/clear-trades) with the one CLI
// surface spec.md §6 specifies.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nitinkhare/tradingorchestrator/internal/backtest"
	"github.com/nitinkhare/tradingorchestrator/internal/blacklist"
	"github.com/nitinkhare/tradingorchestrator/internal/broker"
	"github.com/nitinkhare/tradingorchestrator/internal/clock"
	"github.com/nitinkhare/tradingorchestrator/internal/config"
	"github.com/nitinkhare/tradingorchestrator/internal/enrich"
	"github.com/nitinkhare/tradingorchestrator/internal/llm"
	"github.com/nitinkhare/tradingorchestrator/internal/notifier"
	"github.com/nitinkhare/tradingorchestrator/internal/pipeline"
	"github.com/nitinkhare/tradingorchestrator/internal/risk"
	"github.com/nitinkhare/tradingorchestrator/internal/sell"
	"github.com/nitinkhare/tradingorchestrator/internal/signals"
	"github.com/nitinkhare/tradingorchestrator/internal/sources"
	"github.com/nitinkhare/tradingorchestrator/internal/storage"
	"github.com/nitinkhare/tradingorchestrator/internal/supervisor"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: orchestrator <command> [flags]")
	fmt.Fprintln(os.Stderr, "commands: run_daily, run_scheduler, run_sell_checks, backtest, dry_run, report")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	command := os.Args[1]

	fs := flag.NewFlagSet(command, flag.ExitOnError)
	configPath := fs.String("config", "config/config.json", "path to configuration file")
	confirmLive := fs.Bool("confirm-live", false, "required safety flag to run in live trading mode")
	dateFlag := fs.String("date", "", "override run date (YYYY-MM-DD), defaults to today")
	force := fs.Bool("force", false, "bypass the weekend/holiday gate")
	skipEOD := fs.Bool("skip-eod", false, "skip the end-of-day snapshot after run_daily")
	realOnly := fs.Bool("real-only", false, "run_sell_checks: only evaluate if the active broker is live")
	virtualOnly := fs.Bool("virtual-only", false, "run_sell_checks: only evaluate if the active broker is practice")
	startFlag := fs.String("start", "", "backtest start date (YYYY-MM-DD)")
	endFlag := fs.String("end", "", "backtest end date (YYYY-MM-DD)")
	runName := fs.String("name", "", "backtest run name")
	backtestBudget := fs.Float64("budget", 0, "backtest: per-day total budget in EUR, overrides config default")
	dryRunBudget := fs.Float64("budget-eur", 0, "dry_run: total budget in EUR, overrides config default")
	account := fs.String("account", "both", "report: live | demo | both")
	tick := fs.Duration("tick", time.Minute, "run_scheduler: poll interval")
	_ = fs.Parse(os.Args[2:])

	logger := log.New(os.Stdout, "[orchestrator] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Printf("config loaded: trading_mode=%s timezone=%s", cfg.TradingMode, cfg.OrchestratorTimezone)

	// ── Live mode safety gate ──
	// Both --confirm-live flag AND ORCH_LIVE_CONFIRMED=true env var are
	// required to wire a live broker. This prevents accidental live
	// trading from a bare `orchestrator run_daily`.
	if cfg.TradingMode == config.ModeLive {
		envConfirmed := os.Getenv("ORCH_LIVE_CONFIRMED") == "true"
		if !*confirmLive || !envConfirmed {
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "  ╔═══════════════════════════════════════════════════════════╗")
			fmt.Fprintln(os.Stderr, "  ║                    LIVE MODE BLOCKED                       ║")
			fmt.Fprintln(os.Stderr, "  ╠═══════════════════════════════════════════════════════════╣")
			fmt.Fprintln(os.Stderr, "  ║  Live trading requires TWO explicit confirmations:         ║")
			fmt.Fprintln(os.Stderr, "  ║                                                             ║")
			fmt.Fprintln(os.Stderr, "  ║  1. CLI flag:   --confirm-live                             ║")
			fmt.Fprintln(os.Stderr, "  ║  2. Env var:    ORCH_LIVE_CONFIRMED=true                   ║")
			fmt.Fprintln(os.Stderr, "  ╚═══════════════════════════════════════════════════════════╝")
			fmt.Fprintln(os.Stderr, "")
			if !*confirmLive {
				fmt.Fprintln(os.Stderr, "  MISSING: --confirm-live flag")
			}
			if !envConfirmed {
				fmt.Fprintln(os.Stderr, "  MISSING: ORCH_LIVE_CONFIRMED=true environment variable")
			}
			fmt.Fprintln(os.Stderr, "")
			os.Exit(1)
		}
		logger.Println("LIVE MODE ACTIVE — real orders will be placed with the broker")
	} else {
		logger.Println("PRACTICE MODE — simulated orders only, no real money at risk")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := wire(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("failed to wire orchestrator: %v", err)
	}
	defer app.Close()

	runDate := time.Now().In(app.Calendar.Location())
	if *dateFlag != "" {
		parsed, err := time.ParseInLocation("2006-01-02", *dateFlag, app.Calendar.Location())
		if err != nil {
			logger.Fatalf("invalid --date %q: %v", *dateFlag, err)
		}
		runDate = parsed
	}

	switch command {
	case "run_daily":
		os.Exit(runDaily(ctx, app, runDate, *force, *skipEOD))
	case "run_scheduler":
		os.Exit(runScheduler(ctx, app, *tick))
	case "run_sell_checks":
		os.Exit(runSellChecks(ctx, app, runDate, *realOnly, *virtualOnly))
	case "backtest":
		os.Exit(runBacktest(ctx, app, *startFlag, *endFlag, *runName, *backtestBudget))
	case "dry_run":
		os.Exit(runDryRun(ctx, app, *dryRunBudget))
	case "report":
		os.Exit(runReport(ctx, app, runDate, *account))
	default:
		usage()
		os.Exit(1)
	}
}

// app holds every wired collaborator, built once per process invocation.
type app struct {
	Config     *config.Config
	Calendar   *clock.Calendar
	Scheduler  *clock.Scheduler
	Store      storage.Store
	Blacklist  *blacklist.Store
	Supervisor *supervisor.Supervisor
	Logger     *log.Logger
}

func (a *app) Close() {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Printf("error closing store: %v", err)
		}
	}
	if a.Blacklist != nil {
		if err := a.Blacklist.Close(); err != nil {
			a.Logger.Printf("error closing blacklist: %v", err)
		}
	}
}

// unconfiguredPriceProvider is the wiring-time fallback when no
// concrete price feed is registered with broker.PriceRegistry (an
// out-of-scope external collaborator, spec.md §6). Every lookup fails
// cleanly so the Supervisor drops the candidate instead of pricing it
// with stale or fabricated data.
type unconfiguredPriceProvider struct{}

func (unconfiguredPriceProvider) GetPrice(_ context.Context, ticker string) (decimal.Decimal, string, error) {
	return decimal.Zero, "", fmt.Errorf("no price provider registered for %q", ticker)
}

// wire builds every collaborator the Supervisor and Scheduler need,
// grounded on cmd/engine/main.go's construction order (config →
// storage → calendar → broker → strategies → scheduler).
func wire(ctx context.Context, cfg *config.Config, logger *log.Logger) (*app, error) {
	calendar, err := clock.NewCalendar(cfg.OrchestratorTimezone, "")
	if err != nil {
		return nil, fmt.Errorf("wire calendar: %w", err)
	}

	store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("wire storage: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate storage: %w", err)
	}

	blacklistStore := blacklist.Open(cfg.BlacklistPath, logger)

	brk, isReal, err := wireBroker(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("wire broker: %w", err)
	}

	prices, err := broker.NewPriceProvider("default", nil)
	if err != nil {
		logger.Printf("%v — pricing fails closed until a price provider is registered", err)
		prices = unconfiguredPriceProvider{}
	}

	insiderSource, err := sources.NewInsiderSource("default", nil)
	if err != nil {
		logger.Printf("%v — the signal digest will be built from politician filings only, if any", err)
	}
	var politicianSource sources.PoliticianSource
	if cfg.CapitolTradesEnabled {
		politicianSource, err = sources.NewPoliticianSource("default", nil)
		if err != nil {
			logger.Printf("%v — politician signals disabled for this run", err)
		}
	}

	enricher, err := wireEnricher(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("wire enricher: %w", err)
	}

	digestBuilder := signals.NewBuilder(insiderSource, politicianSource, enricher, signals.BuilderConfig{
		InsiderLookbackDays:       cfg.InsiderLookbackDays,
		InsiderTopN:               cfg.InsiderTopN,
		PoliticianEnabled:         cfg.CapitolTradesEnabled,
		PoliticianTopN:            cfg.PoliticianTopN,
		CapitolTradesMaxMarketCap: decimal.NewFromFloat(cfg.CapitolTradesMaxMarketCap),
	}, logger)

	conservative, aggressive, err := wireCoordinators(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("wire pipeline coordinators: %w", err)
	}

	notify := wireNotifier(cfg, logger)

	dailyBudget := cfg.PracticeDailyBudgetEUR
	if isReal {
		dailyBudget = cfg.DailyBudgetEUR
	}
	conservativeBudget, aggressiveBudget := splitBudget(dailyBudget)

	sup := &supervisor.Supervisor{
		Calendar:      calendar,
		Digest:        digestBuilder,
		Blacklist:     blacklistStore,
		Broker:        brk,
		TradeExecutor: broker.NewTradeExecutor(brk, logger),
		Prices:        prices,
		FxClient:      nil, // every priced ticker quotes in the account currency; fxrate.Convert short-circuits on from==to
		Conservative:  conservative,
		Aggressive:    aggressive,
		Notifier:      notify,
		Config: supervisor.Config{
			PoliticianEnabled:       cfg.CapitolTradesEnabled,
			PoliticianReservedSlots: cfg.PoliticianReservedSlots,
			ResearchTopN:            cfg.ResearchTopN,
			MaxPicksPerRun:          cfg.MaxPicksPerRun,
			MinInsiderTickers:       cfg.MinInsiderTickers,
			RecentlyTradedDays:      cfg.RecentlyTradedDays,
			PipelineTimeout:         time.Duration(cfg.PipelineTimeoutSeconds) * time.Second,
			BudgetCurrency:          "EUR",
			ConservativeBudget:      conservativeBudget,
			AggressiveBudget:        aggressiveBudget,
			IsReal:                  isReal,
		},
		Logger: logger,
	}

	scheduler := clock.New(calendar, logger)

	return &app{
		Config:     cfg,
		Calendar:   calendar,
		Scheduler:  scheduler,
		Store:      store,
		Blacklist:  blacklistStore,
		Supervisor: sup,
		Logger:     logger,
	}, nil
}

// splitBudget divides the account's total daily budget evenly between
// the conservative and aggressive strategies. original_source/src/config.py
// carries a single budget_per_run_eur with no strategy split at all;
// an even split is this project's own choice, recorded as an
// open-question decision in DESIGN.md.
func splitBudget(totalEUR float64) (decimal.Decimal, decimal.Decimal) {
	total := decimal.NewFromFloat(totalEUR)
	half := total.Div(decimal.NewFromInt(2))
	return half, total.Sub(half)
}

// wireBroker picks the live or practice broker by trading mode,
// falling back to the in-process paper broker in practice mode when no
// concrete broker implementation is registered — live mode never
// falls back silently to paper trading.
func wireBroker(cfg *config.Config, logger *log.Logger) (broker.Broker, bool, error) {
	var brk broker.Broker
	var isReal bool

	if cfg.TradingMode == config.ModeLive {
		configJSON, _ := json.Marshal(map[string]string{"api_key": cfg.BrokerAPIKey, "api_secret": cfg.BrokerAPISecret})
		b, err := broker.New("live", configJSON)
		if err != nil {
			return nil, false, fmt.Errorf("live trading requires a registered broker implementation: %w", err)
		}
		brk, isReal = b, true
	} else {
		configJSON, _ := json.Marshal(map[string]string{"api_key": cfg.PracticeBrokerAPIKey, "api_secret": cfg.PracticeBrokerAPISecret})
		if b, err := broker.New("practice", configJSON); err == nil {
			brk = b
		} else {
			logger.Printf("%v — falling back to the in-process paper broker", err)
			brk = broker.NewPaperBroker(decimal.NewFromFloat(cfg.PracticeDailyBudgetEUR))
		}
	}

	breaker := risk.NewCircuitBreaker(cfg.CircuitBreaker, logger)
	return broker.NewCircuitBreakingBroker(brk, breaker), isReal, nil
}

// wireEnricher builds the Enricher with only its news-fetch concurrency
// cap and news circuit breaker set. Every provider is an out-of-scope
// external collaborator (spec.md §6) and none is looked up or attached
// here, so every provider is nil and the corresponding fields are absent
// on every Enrichment.
func wireEnricher(cfg *config.Config, logger *log.Logger) (*enrich.Enricher, error) {
	breaker := risk.NewCircuitBreaker(cfg.CircuitBreaker, logger)
	return enrich.NewEnricher(5, breaker, logger), nil
}

// wireCoordinators builds the conservative and aggressive pipeline
// coordinators around the configured LLM provider, differing only by
// model tier: conservative runs the cheaper/faster tier for sentiment,
// research and trading and the middle tier for risk review; aggressive
// runs the middle tier for sentiment and research and reserves the
// strongest tier for trading and risk review.
func wireCoordinators(cfg *config.Config, logger *log.Logger) (*pipeline.Coordinator, *pipeline.Coordinator, error) {
	llmConfigJSON, _ := json.Marshal(map[string]string{
		"api_key":   cfg.AnthropicAPIKey,
		"base_url":  cfg.MinimaxBaseURL,
		"alt_model": cfg.MinimaxModel,
	})
	gen, err := llm.New("anthropic", llmConfigJSON)
	if err != nil {
		return nil, nil, fmt.Errorf("no LLM provider registered: %w", err)
	}
	genTools, ok := gen.(llm.GeneratorWithTools)
	if !ok {
		return nil, nil, fmt.Errorf("registered LLM provider %T does not implement tool calling, required for the research stage", gen)
	}

	toolExec := llm.NewToolExecutor(nil) // concrete tool implementations register their ToolFuncs before this point
	maxRounds := cfg.MaxToolRounds

	haiku, sonnet, opus := cfg.ClaudeHaikuModel, cfg.ClaudeSonnetModel, cfg.ClaudeOpusModel
	if sonnet == "" {
		sonnet = haiku
	}
	if opus == "" {
		opus = sonnet
	}

	conservative := &pipeline.Coordinator{
		StrategyTag: "conservative",
		Sentiment:   pipeline.NewSentimentStage(gen, haiku),
		Research:    pipeline.NewResearchStage(genTools, haiku, toolExec, maxRounds),
		Trader:      pipeline.NewTraderStage(gen, haiku),
		Risk:        pipeline.NewRiskStage(gen, sonnet),
	}
	aggressive := &pipeline.Coordinator{
		StrategyTag: "aggressive",
		Sentiment:   pipeline.NewSentimentStage(gen, sonnet),
		Research:    pipeline.NewResearchStage(genTools, sonnet, toolExec, maxRounds),
		Trader:      pipeline.NewTraderStage(gen, opus),
		Risk:        pipeline.NewRiskStage(gen, opus),
	}
	return conservative, aggressive, nil
}

func wireNotifier(cfg *config.Config, logger *log.Logger) notifier.Notifier {
	if !cfg.Notifier.Enabled {
		return notifier.NewLogNotifier(logger)
	}
	return notifier.NewMulti(
		notifier.NewLogNotifier(logger),
		notifier.NewTelegramNotifier(cfg.Notifier.TelegramToken, cfg.Notifier.TelegramChatID, logger),
	)
}

// runDaily forces one decision cycle for runDate through the
// Scheduler's ForceRun, which bypasses both the scheduled-time gate and
// the trading-day gate (spec.md §4.1's "forced runs bypass the weekend
// gate"). --force additionally asks RunDecisionCycle itself to bypass
// its own independent trading-day re-check.
func runDaily(ctx context.Context, a *app, runDate time.Time, force, skipEOD bool) int {
	job := &clock.Job{
		Name: "run_daily",
		Type: clock.JobTypeDecide,
		RunFunc: func(ctx context.Context) error {
			result := a.Supervisor.RunDecisionCycle(ctx, runDate, force)
			printCycleResult(a.Logger, result)
			if result.Status == supervisor.CycleError {
				return fmt.Errorf("decision cycle failed at stage %q: %s", result.Stage, result.Reason)
			}
			return nil
		},
	}
	if err := a.Scheduler.ForceRun(ctx, job); err != nil {
		a.Logger.Printf("run_daily failed: %v", err)
		return 1
	}

	if !skipEOD {
		snapshot := a.Supervisor.RunEndOfDay(ctx, runDate)
		printEODSnapshot(a.Logger, snapshot)
	}
	return 0
}

// runScheduler registers the three job classes from spec.md §4.1 and
// blocks in the Scheduler's tick loop until SIGINT/SIGTERM. Scheduler.Run
// returns without waiting for an in-flight job, which sees the cancelled
// context, and runScheduler then returns and the process exits.
func runScheduler(ctx context.Context, a *app, tick time.Duration) int {
	collectTimes, err := parseTimes(a.Config.SchedulerCollectTimes)
	if err != nil {
		a.Logger.Printf("invalid scheduler_collect_times: %v", err)
		return 1
	}
	executeTime, err := clock.ParseTimeOfDay(a.Config.SchedulerExecuteTime)
	if err != nil {
		a.Logger.Printf("invalid scheduler_execute_time: %v", err)
		return 1
	}
	eodTime, err := clock.ParseTimeOfDay(a.Config.SchedulerEODTime)
	if err != nil {
		a.Logger.Printf("invalid scheduler_eod_time: %v", err)
		return 1
	}

	a.Scheduler.RegisterJob(&clock.Job{
		Name:  "collect",
		Type:  clock.JobTypeCollect,
		Times: collectTimes,
		RunFunc: func(ctx context.Context) error {
			a.Logger.Println("[scheduler] collect tick — digest warms on the next decide_and_execute run")
			return nil
		},
	})
	a.Scheduler.RegisterJob(&clock.Job{
		Name:  "decide_and_execute",
		Type:  clock.JobTypeDecide,
		Times: []clock.TimeOfDay{executeTime},
		RunFunc: func(ctx context.Context) error {
			result := a.Supervisor.RunDecisionCycle(ctx, time.Now().In(a.Calendar.Location()), false)
			printCycleResult(a.Logger, result)
			return nil
		},
	})
	a.Scheduler.RegisterJob(&clock.Job{
		Name:  "end_of_day",
		Type:  clock.JobTypeEOD,
		Times: []clock.TimeOfDay{eodTime},
		RunFunc: func(ctx context.Context) error {
			snapshot := a.Supervisor.RunEndOfDay(ctx, time.Now().In(a.Calendar.Location()))
			printEODSnapshot(a.Logger, snapshot)
			return nil
		},
	})

	a.Logger.Println("[scheduler] running; Ctrl-C to stop")
	a.Scheduler.Run(ctx, tick)
	a.Logger.Println("[scheduler] shut down cleanly")
	return 0
}

func parseTimes(csv string) ([]clock.TimeOfDay, error) {
	var out []clock.TimeOfDay
	start := 0
	for i := 0; i <= len(csv); i++ {
		if i == len(csv) || csv[i] == ',' {
			part := csv[start:i]
			start = i + 1
			if part == "" {
				continue
			}
			t, err := clock.ParseTimeOfDay(part)
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		}
	}
	return out, nil
}

// runSellChecks evaluates every open position against the sell rules
// for runDate. --real-only/--virtual-only filter against the single
// active broker's mode (broker.go's "only one broker is active at a
// time" rule means this is a whole-run gate, not a per-position one).
func runSellChecks(ctx context.Context, a *app, runDate time.Time, realOnly, virtualOnly bool) int {
	if realOnly && !a.Supervisor.Config.IsReal {
		a.Logger.Println("run_sell_checks: --real-only requested but the active broker is practice, nothing to do")
		return 0
	}
	if virtualOnly && a.Supervisor.Config.IsReal {
		a.Logger.Println("run_sell_checks: --virtual-only requested but the active broker is live, nothing to do")
		return 0
	}

	snapshot := a.Supervisor.RunEndOfDay(ctx, runDate)
	prices := make(map[signals.TickerSymbol]decimal.Decimal, len(snapshot.Positions))
	for _, p := range snapshot.Positions {
		if price, _, err := a.Supervisor.Prices.GetPrice(ctx, string(p.Ticker)); err == nil {
			prices[p.Ticker] = price
		}
	}

	sellEngine := sell.NewEngine(a.Config.Sell)
	fired := sellEngine.EvaluatePositions(snapshot.Positions, prices, runDate)
	for _, s := range fired {
		a.Logger.Printf("sell signal: ticker=%s type=%s return=%s%% price=%s reason=%q",
			s.Ticker, s.SignalType, s.ReturnPct, s.TriggerPrice, s.Reasoning)
	}
	if len(fired) > 0 {
		a.Supervisor.Notifier.NotifySellSignals(ctx, fired)
	} else {
		a.Logger.Println("run_sell_checks: no sell rules fired")
	}
	return 0
}

// runBacktest replays the pipeline over [start, end] using the
// backtest Engine, re-using the same strategy coordinators run_daily
// uses so backtest and live behavior never diverge.
func runBacktest(ctx context.Context, a *app, startStr, endStr, name string, budgetOverride float64) int {
	if startStr == "" || endStr == "" {
		a.Logger.Println("backtest requires --start and --end (YYYY-MM-DD)")
		return 1
	}
	start, err := time.ParseInLocation("2006-01-02", startStr, a.Calendar.Location())
	if err != nil {
		a.Logger.Printf("invalid --start: %v", err)
		return 1
	}
	end, err := time.ParseInLocation("2006-01-02", endStr, a.Calendar.Location())
	if err != nil {
		a.Logger.Printf("invalid --end: %v", err)
		return 1
	}
	if name == "" {
		name = fmt.Sprintf("backtest-%s-to-%s", startStr, endStr)
	}

	totalBudget := a.Config.BacktestDailyBudgetEUR
	if budgetOverride > 0 {
		totalBudget = budgetOverride
	}
	conservativeBudget, aggressiveBudget := splitBudget(totalBudget)

	priceSource, err := backtest.NewPriceSource("default", nil)
	if err != nil {
		a.Logger.Printf("backtest: %v — every day will price with an empty map and skip all fills", err)
		priceSource = emptyPriceSource{}
	}

	engine := backtest.NewEngine(a.Store, sell.NewEngine(a.Config.Sell), a.Calendar, priceSource, a.Config.MarketDataTickerLimit, a.Logger)

	summary, err := engine.Run(ctx, start, end, name, []backtest.StrategyConfig{
		{Tag: "conservative", Coordinator: a.Supervisor.Conservative, Budget: conservativeBudget, IsReal: false},
		{Tag: "aggressive", Coordinator: a.Supervisor.Aggressive, Budget: aggressiveBudget, IsReal: false},
	})
	if err != nil {
		a.Logger.Printf("backtest failed: %v", err)
		return 1
	}

	a.Logger.Printf("backtest %q complete: %d trading days replayed", summary.Name, summary.DaysTraded)
	for tag, result := range summary.Strategies {
		a.Logger.Printf("  %-12s invested=%s realized_pnl=%s trades=%d wins=%d losses=%d open=%d",
			tag, result.TotalInvested, result.RealizedPnL, result.TotalTrades, result.Wins, result.Losses, result.OpenPositions)
	}
	return 0
}

type emptyPriceSource struct{}

func (emptyPriceSource) PricesOnDate(_ context.Context, _ []signals.TickerSymbol, _ time.Time) (map[signals.TickerSymbol]decimal.Decimal, error) {
	return map[signals.TickerSymbol]decimal.Decimal{}, nil
}

// runDryRun builds a digest and runs both strategy coordinators
// without ever invoking the Trade Executor — the pipeline's recommended
// picks are printed, not acted on (spec.md §6).
func runDryRun(ctx context.Context, a *app, budgetOverride float64) int {
	digest, err := a.Supervisor.Digest.Build(ctx)
	if err != nil {
		a.Logger.Printf("dry_run: digest build failed: %v", err)
		return 1
	}
	a.Logger.Printf("dry_run: digest has %d candidates (%d insider-sourced)", len(digest.Candidates), digest.InsiderCount)

	conservativeBudget := a.Supervisor.Config.ConservativeBudget
	aggressiveBudget := a.Supervisor.Config.AggressiveBudget
	if budgetOverride > 0 {
		conservativeBudget, aggressiveBudget = splitBudget(budgetOverride)
	}

	conservativeResult, aggressiveResult := pipeline.RunStrategies(
		ctx, a.Supervisor.Config.PipelineTimeout, a.Supervisor.Conservative, a.Supervisor.Aggressive,
		digest, nil, nil, conservativeBudget, aggressiveBudget,
	)

	printDryRunResult(a.Logger, conservativeResult)
	printDryRunResult(a.Logger, aggressiveResult)
	return 0
}

func printDryRunResult(logger *log.Logger, result pipeline.Result) {
	if result.Status != pipeline.StatusOK {
		logger.Printf("[%s] pipeline error at stage %q: %s", result.StrategyTag, result.Stage, result.Error)
		return
	}
	logger.Printf("[%s] picks:", result.StrategyTag)
	for _, p := range result.Review.Picks {
		logger.Printf("  BUY  %-6s alloc=%s%% confidence=%s reason=%q", p.Ticker, p.AllocationPct, p.Confidence, p.Reasoning)
	}
	for _, p := range result.Review.SellRecommendations {
		logger.Printf("  SELL %-6s reason=%q", p.Ticker, p.Reasoning)
	}
	for _, note := range result.Review.RiskNotes {
		logger.Printf("  risk note: %s", note)
	}
	for _, t := range result.Review.VetoedTickers {
		logger.Printf("  vetoed: %s", t)
	}
}

// runReport prints the requested account's end-of-day snapshot. Since
// only one broker is active per process (broker.go), --account live and
// --account demo both report the same wired broker; --account both is
// the default and behaves identically, kept only to match spec.md §6's
// CLI surface for an eventual dual-account deployment.
func runReport(ctx context.Context, a *app, runDate time.Time, account string) int {
	snapshot := a.Supervisor.RunEndOfDay(ctx, runDate)
	printEODSnapshot(a.Logger, snapshot)
	if account != "both" && (account == "live") != a.Supervisor.Config.IsReal {
		a.Logger.Printf("note: --account %s requested but the active broker is %s", account, modeLabel(a.Supervisor.Config.IsReal))
	}
	return 0
}

func modeLabel(isReal bool) string {
	if isReal {
		return "live"
	}
	return "demo"
}

func printCycleResult(logger *log.Logger, result supervisor.CycleResult) {
	logger.Printf("cycle %s: status=%s reason=%q stage=%q insider_count=%d blacklisted=%d",
		result.CorrelationID, result.Status, result.Reason, result.Stage, result.InsiderCount, len(result.Blacklisted))
	for tag, outcome := range result.Strategies {
		logger.Printf("  [%s] pipeline=%s spent=%s bought=%d failed=%d",
			tag, outcome.Pipeline.Status, outcome.Execution.TotalSpent, len(outcome.Execution.Bought), len(outcome.Execution.Failed))
	}
}

func printEODSnapshot(logger *log.Logger, snapshot supervisor.EODSnapshot) {
	logger.Printf("EOD %s: invested=%s value=%s unrealized_pnl=%s positions=%d",
		snapshot.Date.Format("2006-01-02"), snapshot.TotalInvested, snapshot.TotalValue, snapshot.UnrealizedPnL, len(snapshot.Positions))
}
