package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nitinkhare/tradingorchestrator/internal/signals"
)

// SentimentStage consumes a digest (and an optional reddit digest,
// carried in extras) and produces a SentimentReport.
type SentimentStage func(ctx context.Context, digest *signals.SignalDigest, extras map[string]any) (SentimentReport, error)

// ResearchStage consumes the sentiment report and may invoke the tool
// executor internally; it is the "research" branch of the alt stage.
type ResearchStage func(ctx context.Context, sentiment SentimentReport) (ResearchReport, error)

// MarketStage consumes the sentiment report plus precomputed market
// data; it is the "market" branch of the alt stage, used instead of
// ResearchStage when configured.
type MarketStage func(ctx context.Context, sentiment SentimentReport, marketData map[string]any) (MarketAnalysis, error)

// TraderStage produces ranked picks from whichever of research/market
// ran, plus the current portfolio and budget.
type TraderStage func(ctx context.Context, research ResearchReport, market MarketAnalysis, portfolio []signals.Position, budget decimal.Decimal) (signals.DailyPicks, error)

// RiskStage is the final veto/adjustment pass over the trader's picks.
type RiskStage func(ctx context.Context, picks signals.DailyPicks, research ResearchReport, portfolio []signals.Position) (PickReview, error)

// Coordinator runs one strategy's fixed stage sequence under a single
// deadline. Exactly one of Research or Market should be set; if both
// are set, Research takes precedence (spec.md §4.4's "(research |
// market)" alternative).
type Coordinator struct {
	StrategyTag string
	Sentiment   SentimentStage
	Research    ResearchStage
	Market      MarketStage
	Trader      TraderStage
	Risk        RiskStage
	MarketData  map[string]any // used only when Market is the active branch
}

// Run executes sentiment → (research | market) → trader → risk_review
// against digest/portfolio/budget, bound by deadline. It never returns a
// Go error: every failure mode — stage error, schema failure after
// retry, or deadline expiry — becomes a Result with Status ==
// StatusError and the failing Stage named (spec.md §4.4, §7).
func (c *Coordinator) Run(ctx context.Context, deadline time.Duration, digest *signals.SignalDigest, redditDigest map[string]any, portfolio []signals.Position, budget decimal.Decimal) Result {
	cctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	sentiment, err := c.Sentiment(cctx, digest, redditDigest)
	if err != nil {
		return c.errorResult("sentiment", err, cctx)
	}

	var research ResearchReport
	var market MarketAnalysis
	switch {
	case c.Research != nil:
		research, err = c.Research(cctx, sentiment)
		if err != nil {
			return c.errorResult("research", err, cctx)
		}
	case c.Market != nil:
		market, err = c.Market(cctx, sentiment, c.MarketData)
		if err != nil {
			return c.errorResult("market", err, cctx)
		}
	default:
		return Result{Status: StatusError, Stage: "research", Error: "no research or market stage configured", StrategyTag: c.StrategyTag}
	}

	picks, err := c.Trader(cctx, research, market, portfolio, budget)
	if err != nil {
		return c.errorResult("trader", err, cctx)
	}

	review, err := c.Risk(cctx, picks, research, portfolio)
	if err != nil {
		return c.errorResult("risk_review", err, cctx)
	}

	return Result{Status: StatusOK, Review: &review, StrategyTag: c.StrategyTag}
}

func (c *Coordinator) errorResult(stage string, err error, ctx context.Context) Result {
	if ctx.Err() != nil {
		return Result{Status: StatusError, Stage: "pipeline", Error: "timeout", StrategyTag: c.StrategyTag}
	}
	return Result{Status: StatusError, Stage: stage, Error: fmt.Sprintf("%v", err), StrategyTag: c.StrategyTag}
}
