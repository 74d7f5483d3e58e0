package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/nitinkhare/tradingorchestrator/internal/llm"
	"github.com/nitinkhare/tradingorchestrator/internal/signals"
)

// Prompts for each stage, grounded on
// original_source/src/agents/prompts/*.md's per-stage system prompts —
// generalized here from subreddit-only sentiment to the full
// insider/politician SignalDigest, and from single-provider tone to the
// provider-agnostic wording both strategies share (spec.md §9).
const (
	sentimentSystemPrompt = "You analyze a daily signal digest of insider and politician stock " +
		"buy activity and produce a sentiment report: per-ticker mention counts, a score in " +
		"[-1, 1], and which sources mentioned each ticker. Respond with a single JSON object " +
		"matching the requested shape — no prose outside the JSON."

	researchSystemPrompt = "You are a research analyst. Given a sentiment report, use the " +
		"available tools to investigate the most promising tickers (focus on the top 8-10 " +
		"strongest signals) and produce a research report scoring each with pros, cons, and " +
		"any near-term catalyst. Respond with a single JSON object matching the requested " +
		"shape once your research is complete — no prose outside the JSON."

	traderSystemPrompt = "You are a portfolio trader. Given a research report, the current " +
		"portfolio, and today's budget, decide which tickers to buy (with an allocation " +
		"percentage of the budget each, summing to at most 100) and which held positions to " +
		"sell. Respond with a single JSON object matching the requested shape — no prose " +
		"outside the JSON."

	riskSystemPrompt = "You are the risk reviewer, the final veto pass over a trader's picks. " +
		"Adjust or reject picks that are too concentrated, too large relative to the budget, " +
		"or contradicted by the research report, and record your reasoning. Respond with a " +
		"single JSON object matching the requested shape — no prose outside the JSON."
)

var (
	sentimentSchema = llm.Schema{Name: "sentiment_report", Required: []string{"mentions", "scores"}}
	researchSchema  = llm.Schema{Name: "research_report", Required: []string{"per_ticker"}}
	traderSchema    = llm.Schema{Name: "daily_picks", Required: []string{"picks"}}
	riskSchema      = llm.Schema{Name: "pick_review", Required: []string{"picks"}}
)

// researchTools is the JSON-schema description of the eleven tools the
// research stage may call, advertised to the provider alongside the
// allow-list the Tool Executor itself enforces (spec.md §4.4).
var researchTools = []llm.ToolSpec{
	{Name: "get_stock_price", Description: "Current quote for a ticker.", Parameters: tickerParam()},
	{Name: "get_fundamentals", Description: "Fundamental metrics for a ticker.", Parameters: tickerParam()},
	{Name: "get_technical_indicators", Description: "RSI/MACD/Bollinger bands for a ticker.", Parameters: tickerParam()},
	{Name: "get_stock_history", Description: "Historical OHLCV candles for a ticker.", Parameters: tickerParam()},
	{Name: "get_news", Description: "Recent news headlines for a ticker.", Parameters: tickerParam()},
	{Name: "get_earnings", Description: "Most recent earnings report for a ticker.", Parameters: tickerParam()},
	{Name: "get_earnings_calendar", Description: "Upcoming earnings dates for a ticker.", Parameters: tickerParam()},
	{Name: "get_analyst_revisions", Description: "Recent analyst rating/target changes for a ticker.", Parameters: tickerParam()},
	{Name: "get_insider_activity", Description: "Recent insider buy/sell activity for a ticker.", Parameters: tickerParam()},
	{Name: "search_stocks", Description: "Free-text search over the tradable universe.", Parameters: map[string]any{"type": "object", "properties": map[string]any{"query": map[string]any{"type": "string"}}, "required": []string{"query"}}},
	{Name: "screen_global_markets", Description: "Screen for tickers matching simple filters.", Parameters: map[string]any{"type": "object", "properties": map[string]any{"filters": map[string]any{"type": "object"}}}},
}

func tickerParam() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"ticker": map[string]any{"type": "string"}},
		"required":   []string{"ticker"},
	}
}

// NewSentimentStage builds the sentiment stage around any Generator
// back-end, generalized from
// original_source/src/agents/sentiment_agent.py's SentimentAgent.run:
// the candidate digest (and, when present, a raw reddit digest carried
// through extras) is serialized as the user message verbatim.
func NewSentimentStage(gen llm.Generator, model string) SentimentStage {
	return func(ctx context.Context, digest *signals.SignalDigest, extras map[string]any) (SentimentReport, error) {
		payload := map[string]any{"digest": digest}
		if len(extras) > 0 {
			payload["reddit_digest"] = extras
		}
		body, err := json.Marshal(payload)
		if err != nil {
			return SentimentReport{}, fmt.Errorf("pipeline: marshal sentiment input: %w", err)
		}

		raw, err := gen.Generate(ctx, llm.Request{
			Model:  model,
			System: sentimentSystemPrompt,
			User:   string(body),
			Schema: sentimentSchema,
		})
		if err != nil {
			return SentimentReport{}, fmt.Errorf("pipeline: sentiment generate: %w", err)
		}

		var report SentimentReport
		if err := llm.ParseWithSchema(string(raw), sentimentSchema, &report); err != nil {
			return SentimentReport{}, fmt.Errorf("pipeline: sentiment parse: %w", err)
		}
		return report, nil
	}
}

// NewResearchStage builds the research stage around a tool-calling
// Generator, generalized from
// original_source/src/agents/research_agent.py's ResearchAgent.run.
func NewResearchStage(gen llm.GeneratorWithTools, model string, exec *llm.ToolExecutor, maxRounds int) ResearchStage {
	return func(ctx context.Context, sentiment SentimentReport) (ResearchReport, error) {
		body, err := json.Marshal(map[string]any{
			"sentiment": sentiment,
			"instructions": "Use the available tools to research the most promising tickers from this report. " +
				"Focus on the top 8-10 candidates with the strongest signals.",
		})
		if err != nil {
			return ResearchReport{}, fmt.Errorf("pipeline: marshal research input: %w", err)
		}

		raw, _, err := gen.GenerateWithTools(ctx, llm.Request{
			Model:  model,
			System: researchSystemPrompt,
			User:   string(body),
			Schema: researchSchema,
		}, researchTools, exec, maxRounds)
		if err != nil {
			return ResearchReport{}, fmt.Errorf("pipeline: research generate: %w", err)
		}

		var report ResearchReport
		if err := llm.ParseWithSchema(string(raw), researchSchema, &report); err != nil {
			return ResearchReport{}, fmt.Errorf("pipeline: research parse: %w", err)
		}
		return report, nil
	}
}

// NewTraderStage builds the trader stage, generalized from
// original_source/src/agents/trader_agent.py's TraderAgent.run — the
// research report, market analysis, current portfolio, and budget are
// all serialized into the user message; the sentiment report is not
// passed to this stage.
func NewTraderStage(gen llm.Generator, model string) TraderStage {
	return func(ctx context.Context, research ResearchReport, market MarketAnalysis, portfolio []signals.Position, budget decimal.Decimal) (signals.DailyPicks, error) {
		body, err := json.Marshal(map[string]any{
			"research":  research,
			"market":    market,
			"portfolio": portfolio,
			"budget":    budget,
		})
		if err != nil {
			return signals.DailyPicks{}, fmt.Errorf("pipeline: marshal trader input: %w", err)
		}

		raw, err := gen.Generate(ctx, llm.Request{
			Model:  model,
			System: traderSystemPrompt,
			User:   string(body),
			Schema: traderSchema,
		})
		if err != nil {
			return signals.DailyPicks{}, fmt.Errorf("pipeline: trader generate: %w", err)
		}

		var picks signals.DailyPicks
		if err := llm.ParseWithSchema(string(raw), traderSchema, &picks); err != nil {
			return signals.DailyPicks{}, fmt.Errorf("pipeline: trader parse: %w", err)
		}
		return picks, nil
	}
}

// NewRiskStage builds the risk_review stage, generalized from
// original_source/src/agents/risk_agent.py's RiskAgent.run. PickReview
// embeds signals.DailyPicks, so the provider's JSON object can answer
// both the picks shape and the risk-specific fields (risk_notes,
// adjustments, vetoed_tickers) at one top level.
func NewRiskStage(gen llm.Generator, model string) RiskStage {
	return func(ctx context.Context, picks signals.DailyPicks, research ResearchReport, portfolio []signals.Position) (PickReview, error) {
		body, err := json.Marshal(map[string]any{
			"picks":     picks,
			"research":  research,
			"portfolio": portfolio,
		})
		if err != nil {
			return PickReview{}, fmt.Errorf("pipeline: marshal risk input: %w", err)
		}

		raw, err := gen.Generate(ctx, llm.Request{
			Model:  model,
			System: riskSystemPrompt,
			User:   string(body),
			Schema: riskSchema,
		})
		if err != nil {
			return PickReview{}, fmt.Errorf("pipeline: risk generate: %w", err)
		}

		var review PickReview
		if err := llm.ParseWithSchema(string(raw), riskSchema, &review); err != nil {
			return PickReview{}, fmt.Errorf("pipeline: risk parse: %w", err)
		}
		return review, nil
	}
}
