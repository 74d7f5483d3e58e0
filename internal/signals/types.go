// Package signals holds the core data model (spec.md §3) and the Signal
// Digest Builder (spec.md §4.3): the fan-out fetch, cross-source merge,
// enrichment, and filter pipeline that turns raw source candidates into
// an ordered SignalDigest ready for the pipeline coordinator.
package signals

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nitinkhare/tradingorchestrator/internal/enrich"
)

// TickerSymbol is an opaque, uppercase ticker key, optionally suffixed
// with an exchange code (".AS", ".DE", ".L", ...). The suffix is carried
// but never parsed by this package.
type TickerSymbol string

// Source identifies which external provider(s) contributed a candidate.
type Source string

const (
	SourceInsider            Source = "insider"
	SourcePoliticians        Source = "politicians"
	SourceInsiderPoliticians Source = "insider+politicians"
)

// Transaction is a single disclosed buy, surfaced on a Candidate after
// cross-source merge.
type Transaction struct {
	InsiderName  string
	Role         string
	ValueUSD     decimal.Decimal
	DeltaOwnPct  decimal.Decimal
	TransactedAt string
}

// Candidate is a merged, source-tagged buy signal, prior to enrichment.
// Immutable once produced by the digest builder.
type Candidate struct {
	Ticker            TickerSymbol
	Company           string
	Source            Source
	Insiders          []string // ordered, deduped by insertion
	IsCluster         bool
	IsCSuitePresent   bool
	HasPoliticianBuy  bool
	TotalValueUSD     decimal.Decimal
	ConvictionScore   decimal.Decimal
	MaxDeltaOwnPct    decimal.Decimal
	Transactions      []Transaction
}

// EnrichedCandidate is a Candidate plus optional enrichment context.
// Any field may be absent (Present == false); consumers must treat
// absence as "unknown", never as the type's zero value.
type EnrichedCandidate struct {
	Candidate
	Returns        enrich.Optional[enrich.Returns]
	Fundamentals   enrich.Optional[enrich.Fundamentals]
	Technicals     enrich.Optional[enrich.Technicals]
	Earnings       enrich.Optional[enrich.Earnings]
	InsiderHistory enrich.Optional[enrich.InsiderHistory]
	News           enrich.Optional[enrich.News]
}

// SignalDigest is the output of the Digest Builder for one decision cycle.
type SignalDigest struct {
	Candidates   []EnrichedCandidate
	InsiderCount int
	LookbackDays int
	SourceCounts map[Source]int
}

// Action is the action a pipeline recommends for a ticker.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// StockPick is one ticker-level recommendation from a pipeline run.
type StockPick struct {
	Ticker        TickerSymbol
	Action        Action
	AllocationPct decimal.Decimal // invariant: sum of buy picks' AllocationPct <= 100
	Reasoning     string
	Confidence    decimal.Decimal // [0,1]
}

// DailyPicks is the full output of one strategy's pipeline run.
type DailyPicks struct {
	Picks              []StockPick
	SellRecommendations []StockPick
	Confidence         decimal.Decimal
	MarketSummary      string
	RunDate            time.Time
	StrategyTag        string // "conservative" | "aggressive"
}

// Position is an open, broker- or simulation-owned holding.
type Position struct {
	Ticker      TickerSymbol
	Quantity    decimal.Decimal // >= 0
	AvgBuyPrice decimal.Decimal // > 0
	OpenedAt    time.Time
	IsReal      bool
}

// TradeResult is the outcome of one attempted execution against a candidate.
type TradeResult struct {
	Ticker        TickerSymbol
	Success       bool
	AmountSpent   decimal.Decimal
	Quantity      decimal.Decimal
	BrokerTicker  string
	Error         string
}

// ExecutionSummary is the Trade Executor's full report for one run.
type ExecutionSummary struct {
	IsReal        bool
	Budget        decimal.Decimal
	AvailableCash decimal.Decimal
	TotalSpent    decimal.Decimal
	Bought        []TradeResult
	Failed        []TradeResult
}

// SellSignalType identifies which sell rule fired.
type SellSignalType string

const (
	SellStopLoss   SellSignalType = "stop_loss"
	SellTakeProfit SellSignalType = "take_profit"
	SellHoldPeriod SellSignalType = "hold_period"
)

// SellSignal is the Sell Strategy Engine's verdict for one position.
type SellSignal struct {
	Ticker      TickerSymbol
	SignalType  SellSignalType
	TriggerPrice decimal.Decimal
	ReturnPct   decimal.Decimal
	Reasoning   string
}

// BlacklistEntry is one ticker's TTL-tracked recently-traded marker.
type BlacklistEntry struct {
	Ticker  TickerSymbol
	AddedOn time.Time
}
