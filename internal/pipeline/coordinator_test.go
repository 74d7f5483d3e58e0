package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nitinkhare/tradingorchestrator/internal/signals"
)

func okSentiment(ctx context.Context, digest *signals.SignalDigest, extras map[string]any) (SentimentReport, error) {
	return SentimentReport{Scores: map[string]decimal.Decimal{}}, nil
}

func okResearch(ctx context.Context, sentiment SentimentReport) (ResearchReport, error) {
	return ResearchReport{PerTicker: map[string]ResearchEntry{}}, nil
}

func okTrader(ctx context.Context, research ResearchReport, market MarketAnalysis, portfolio []signals.Position, budget decimal.Decimal) (signals.DailyPicks, error) {
	return signals.DailyPicks{StrategyTag: "test"}, nil
}

func okRisk(ctx context.Context, picks signals.DailyPicks, research ResearchReport, portfolio []signals.Position) (PickReview, error) {
	return PickReview{DailyPicks: picks}, nil
}

func TestCoordinator_HappyPath(t *testing.T) {
	c := &Coordinator{
		StrategyTag: "conservative",
		Sentiment:   okSentiment,
		Research:    okResearch,
		Trader:      okTrader,
		Risk:        okRisk,
	}
	result := c.Run(context.Background(), 5*time.Second, &signals.SignalDigest{}, nil, nil, decimal.NewFromInt(100))
	if result.Status != StatusOK {
		t.Fatalf("expected ok, got %+v", result)
	}
}

func TestCoordinator_StageErrorNamesStage(t *testing.T) {
	c := &Coordinator{
		Sentiment: func(ctx context.Context, digest *signals.SignalDigest, extras map[string]any) (SentimentReport, error) {
			return SentimentReport{}, errors.New("schema validation failed twice")
		},
		Research: okResearch,
		Trader:   okTrader,
		Risk:     okRisk,
	}
	result := c.Run(context.Background(), 5*time.Second, &signals.SignalDigest{}, nil, nil, decimal.NewFromInt(100))
	if result.Status != StatusError || result.Stage != "sentiment" {
		t.Fatalf("expected sentiment stage error, got %+v", result)
	}
}

func TestCoordinator_DeadlineExceededReportsTimeout(t *testing.T) {
	c := &Coordinator{
		Sentiment: func(ctx context.Context, digest *signals.SignalDigest, extras map[string]any) (SentimentReport, error) {
			<-ctx.Done()
			return SentimentReport{}, ctx.Err()
		},
		Research: okResearch,
		Trader:   okTrader,
		Risk:     okRisk,
	}
	result := c.Run(context.Background(), 10*time.Millisecond, &signals.SignalDigest{}, nil, nil, decimal.NewFromInt(100))
	if result.Status != StatusError || result.Stage != "pipeline" || result.Error != "timeout" {
		t.Fatalf("expected pipeline timeout, got %+v", result)
	}
}

func TestCoordinator_NoStageConfiguredErrors(t *testing.T) {
	c := &Coordinator{Sentiment: okSentiment, Trader: okTrader, Risk: okRisk}
	result := c.Run(context.Background(), 5*time.Second, &signals.SignalDigest{}, nil, nil, decimal.NewFromInt(100))
	if result.Status != StatusError {
		t.Fatalf("expected error when neither research nor market configured, got %+v", result)
	}
}

func TestRunStrategies_OneFailureDoesNotAffectOther(t *testing.T) {
	failing := &Coordinator{
		Sentiment: func(ctx context.Context, digest *signals.SignalDigest, extras map[string]any) (SentimentReport, error) {
			return SentimentReport{}, errors.New("boom")
		},
		Research: okResearch, Trader: okTrader, Risk: okRisk,
	}
	succeeding := &Coordinator{Sentiment: okSentiment, Research: okResearch, Trader: okTrader, Risk: okRisk}

	conservative, aggressive := RunStrategies(context.Background(), 5*time.Second, failing, succeeding, &signals.SignalDigest{}, nil, nil, decimal.NewFromInt(50), decimal.NewFromInt(50))
	if conservative.Status != StatusError {
		t.Errorf("expected conservative to fail, got %+v", conservative)
	}
	if aggressive.Status != StatusOK {
		t.Errorf("expected aggressive to succeed independently, got %+v", aggressive)
	}
}
