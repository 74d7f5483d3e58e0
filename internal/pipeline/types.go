// Package pipeline implements the Pipeline Coordinator (spec.md §4.4):
// the fixed sentiment → (research | market) → trader → risk_review
// stage sequence, bound by a single pipeline-wide deadline, run in
// parallel for the conservative and aggressive strategies.
package pipeline

import (
	"github.com/shopspring/decimal"

	"github.com/nitinkhare/tradingorchestrator/internal/signals"
)

// SentimentReport is the sentiment stage's output: per-ticker mention
// counts, a score in [-1,1], and which subreddits mentioned it.
type SentimentReport struct {
	Mentions     map[string]int
	Scores       map[string]decimal.Decimal
	SubredditMap map[string][]string
	Extras       map[string]any
}

// ResearchEntry is one ticker's research-stage findings.
type ResearchEntry struct {
	Score       decimal.Decimal
	Pros        []string
	Cons        []string
	Catalyst    string
	SectorPeers []string
}

// ResearchReport is the research stage's output.
type ResearchReport struct {
	PerTicker map[string]ResearchEntry
	Extras    map[string]any
}

// MarketEntry is one ticker's precomputed-market-data analysis.
type MarketEntry struct {
	Score  decimal.Decimal
	Notes  string
	Extras map[string]any
}

// MarketAnalysis is the market stage's output — the alternative to the
// research stage when a precomputed market-data source is used instead
// of tool-calling research.
type MarketAnalysis struct {
	PerTicker map[string]MarketEntry
	Extras    map[string]any
}

// PickReview is the risk_review stage's output: DailyPicks plus the
// risk manager's notes, adjustments, and vetoes (spec.md §4.4).
type PickReview struct {
	signals.DailyPicks
	RiskNotes     []string
	Adjustments   []string
	VetoedTickers []signals.TickerSymbol
}

// Status is the terminal state of one pipeline run.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Result is what a single strategy's pipeline run produces: either a
// completed PickReview, or a structured error naming the stage that
// failed (spec.md §4.4, §7 — the pipeline never propagates a raw error
// upward; it reports one).
type Result struct {
	Status      Status
	Stage       string
	Error       string
	Review      *PickReview
	StrategyTag string
}
