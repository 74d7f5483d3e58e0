package supervisor

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nitinkhare/tradingorchestrator/internal/blacklist"
	"github.com/nitinkhare/tradingorchestrator/internal/broker"
	"github.com/nitinkhare/tradingorchestrator/internal/clock"
	"github.com/nitinkhare/tradingorchestrator/internal/pipeline"
	"github.com/nitinkhare/tradingorchestrator/internal/signals"
	"github.com/nitinkhare/tradingorchestrator/internal/sources"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func candidate(ticker string, source signals.Source) signals.EnrichedCandidate {
	return signals.EnrichedCandidate{Candidate: signals.Candidate{Ticker: signals.TickerSymbol(ticker), Source: source}}
}

func TestPoolAwareCap_ReservesPoliticianSlots(t *testing.T) {
	candidates := []signals.EnrichedCandidate{
		candidate("AAA", signals.SourceInsider),
		candidate("BBB", signals.SourceInsider),
		candidate("CCC", signals.SourcePoliticians),
		candidate("DDD", signals.SourceInsiderPoliticians),
	}

	out := poolAwareCap(candidates, true, 3, 1)

	if len(out) != 3 {
		t.Fatalf("expected 3 candidates, got %d: %+v", len(out), out)
	}
	if out[0].Ticker != "CCC" {
		t.Errorf("expected the reserved politician slot first, got %s", out[0].Ticker)
	}
	if out[1].Ticker != "AAA" || out[2].Ticker != "BBB" {
		t.Errorf("expected insider pool to fill the remaining slots in order, got %+v", out)
	}
}

func TestPoolAwareCap_MergedSourceCountsAsInsiderPool(t *testing.T) {
	candidates := []signals.EnrichedCandidate{
		candidate("AAA", signals.SourceInsiderPoliticians),
	}
	out := poolAwareCap(candidates, true, 5, 2)
	if len(out) != 1 || out[0].Ticker != "AAA" {
		t.Fatalf("expected the merged candidate to survive via the insider pool, got %+v", out)
	}
}

func TestPoolAwareCap_DisabledPoliticianSourceJustCaps(t *testing.T) {
	candidates := []signals.EnrichedCandidate{
		candidate("AAA", signals.SourceInsider),
		candidate("BBB", signals.SourcePoliticians),
		candidate("CCC", signals.SourceInsider),
	}
	out := poolAwareCap(candidates, false, 2, 1)
	if len(out) != 2 || out[0].Ticker != "AAA" || out[1].Ticker != "BBB" {
		t.Fatalf("expected a plain cap preserving order, got %+v", out)
	}
}

func TestFilterBlacklist_SplitsKeptAndDropped(t *testing.T) {
	candidates := []signals.EnrichedCandidate{
		candidate("AAA", signals.SourceInsider),
		candidate("BBB", signals.SourceInsider),
	}
	active := map[signals.TickerSymbol]bool{"BBB": true}

	kept, dropped := filterBlacklist(candidates, active)

	if len(kept) != 1 || kept[0].Ticker != "AAA" {
		t.Fatalf("expected only AAA kept, got %+v", kept)
	}
	if len(dropped) != 1 || dropped[0] != "BBB" {
		t.Fatalf("expected BBB dropped, got %+v", dropped)
	}
}

// --- fakes for the end-to-end cycle test ---

type fakeInsiderSource struct{ candidates []sources.RawCandidate }

func (f fakeInsiderSource) FetchTopBuys(context.Context, int, int) ([]sources.RawCandidate, error) {
	return f.candidates, nil
}

type fakeBroker struct{ holdings []broker.Holding }

func (f fakeBroker) GetFunds(context.Context) (*broker.Fund, error) {
	return &broker.Fund{AvailableCash: d("10000")}, nil
}
func (f fakeBroker) GetHoldings(context.Context) ([]broker.Holding, error) { return f.holdings, nil }
func (f fakeBroker) ResolveInstrument(_ context.Context, ticker string) (string, bool, error) {
	return ticker, true, nil
}
func (f fakeBroker) PlaceMarketOrder(_ context.Context, instrument string, side broker.OrderSide, amount decimal.Decimal) (*broker.OrderResult, error) {
	return &broker.OrderResult{OrderID: "T1", Status: broker.OrderStatusFilled, AmountSpent: amount, FilledQty: amount}, nil
}

type fakePrices struct{ price decimal.Decimal }

func (f fakePrices) GetPrice(context.Context, string) (decimal.Decimal, string, error) {
	return f.price, "EUR", nil
}

func okCoordinator(tag string) *pipeline.Coordinator {
	return &pipeline.Coordinator{
		StrategyTag: tag,
		Sentiment: func(ctx context.Context, digest *signals.SignalDigest, extras map[string]any) (pipeline.SentimentReport, error) {
			return pipeline.SentimentReport{}, nil
		},
		Research: func(ctx context.Context, sentiment pipeline.SentimentReport) (pipeline.ResearchReport, error) {
			return pipeline.ResearchReport{}, nil
		},
		Trader: func(ctx context.Context, research pipeline.ResearchReport, market pipeline.MarketAnalysis, portfolio []signals.Position, budget decimal.Decimal) (signals.DailyPicks, error) {
			return signals.DailyPicks{Picks: []signals.StockPick{
				{Ticker: "AAA", Action: signals.ActionBuy, AllocationPct: d("50")},
			}, StrategyTag: tag}, nil
		},
		Risk: func(ctx context.Context, picks signals.DailyPicks, research pipeline.ResearchReport, portfolio []signals.Position) (pipeline.PickReview, error) {
			return pipeline.PickReview{DailyPicks: picks}, nil
		},
	}
}

func TestRunDecisionCycle_EndToEnd(t *testing.T) {
	calendar, err := clock.NewCalendarFromHolidays("UTC", nil)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	// Pick a known weekday so the test isn't calendar-date-sensitive.
	runDate := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC) // a Monday

	builder := signals.NewBuilder(
		fakeInsiderSource{candidates: []sources.RawCandidate{
			{Ticker: "AAA", Company: "AAA Inc", ConvictionScore: d("5")},
			{Ticker: "BBB", Company: "BBB Inc", ConvictionScore: d("3")},
		}},
		nil, nil,
		signals.BuilderConfig{InsiderTopN: 10},
		log.New(io.Discard, "", 0),
	)

	bl := blacklist.Open(":memory:", log.New(io.Discard, "", 0))
	defer bl.Close()

	b := fakeBroker{}
	sup := &Supervisor{
		Calendar:      calendar,
		Digest:        builder,
		Blacklist:     bl,
		Broker:        b,
		TradeExecutor: broker.NewTradeExecutor(b, log.New(io.Discard, "", 0)),
		Prices:        fakePrices{price: d("100")},
		FxClient:      nil,
		Conservative:  okCoordinator("conservative"),
		Aggressive:    okCoordinator("aggressive"),
		Notifier:      nil,
		Config: Config{
			ResearchTopN:       10,
			MaxPicksPerRun:     5,
			MinInsiderTickers:  1,
			RecentlyTradedDays: 30,
			PipelineTimeout:    5 * time.Second,
			BudgetCurrency:     "EUR",
			ConservativeBudget: d("500"),
			AggressiveBudget:   d("500"),
		},
		Logger: log.New(io.Discard, "", 0),
		Audit:  zerolog.New(io.Discard),
	}

	result := sup.RunDecisionCycle(context.Background(), runDate, false)

	if result.Status != CycleOK {
		t.Fatalf("expected CycleOK, got %+v", result)
	}
	cons := result.Strategies["conservative"]
	if len(cons.Execution.Bought) != 1 || cons.Execution.Bought[0].Ticker != "AAA" {
		t.Fatalf("expected AAA bought under conservative strategy, got %+v", cons.Execution)
	}
}

func TestRunDecisionCycle_SkipsNonTradingDay(t *testing.T) {
	calendar, err := clock.NewCalendarFromHolidays("UTC", nil)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	saturday := time.Date(2026, time.March, 7, 0, 0, 0, 0, time.UTC)

	sup := &Supervisor{
		Calendar: calendar,
		Logger:   log.New(io.Discard, "", 0),
		Audit:    zerolog.New(io.Discard),
	}

	result := sup.RunDecisionCycle(context.Background(), saturday, false)
	if result.Status != CycleSkipped || result.Reason != "non-trading-day" {
		t.Fatalf("expected a non-trading-day skip, got %+v", result)
	}
}

func TestRunDecisionCycle_SkipsLowSignalDay(t *testing.T) {
	calendar, err := clock.NewCalendarFromHolidays("UTC", nil)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	runDate := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

	builder := signals.NewBuilder(fakeInsiderSource{}, nil, nil, signals.BuilderConfig{InsiderTopN: 10}, log.New(io.Discard, "", 0))

	sup := &Supervisor{
		Calendar: calendar,
		Digest:   builder,
		Config:   Config{MinInsiderTickers: 1},
		Logger:   log.New(io.Discard, "", 0),
		Audit:    zerolog.New(io.Discard),
	}

	result := sup.RunDecisionCycle(context.Background(), runDate, false)
	if result.Status != CycleSkipped || result.Reason != "low signal day" {
		t.Fatalf("expected a low-signal-day skip, got %+v", result)
	}
}
