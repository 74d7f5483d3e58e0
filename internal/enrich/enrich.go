// Package enrich defines the price/fundamental/technical/news enrichment
// collaborators the Signal Digest Builder fans out to, and the bounded,
// circuit-broken orchestration that drives them (spec.md §4.3 point 4).
//
// Every sub-fetch has its own deadline. A failing sub-fetch leaves its
// field absent on the resulting Enrichment; it never fails the candidate.
package enrich

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/nitinkhare/tradingorchestrator/internal/risk"
)

// Optional wraps a value that may be unknown. Consumers must check
// Present before reading Value — an absent field means "unknown", never
// the type's zero value.
type Optional[T any] struct {
	Value   T
	Present bool
}

// Some wraps a known value.
func Some[T any](v T) Optional[T] { return Optional[T]{Value: v, Present: true} }

// Returns holds trailing price returns.
type Returns struct {
	OneMonth decimal.Decimal
	SixMonth decimal.Decimal
	OneYear  decimal.Decimal
}

// Fundamentals holds a ticker's classification and balance-sheet metrics.
type Fundamentals struct {
	QuoteType string // EQUITY, ETF, MUTUALFUND, INDEX, FUTURE, CURRENCY
	MarketCap decimal.Decimal
	Sector    string
	PE        decimal.Decimal
	Margins   decimal.Decimal
}

// Technicals holds computed technical indicators.
type Technicals struct {
	RSI            decimal.Decimal
	MACD           decimal.Decimal
	BollingerUpper decimal.Decimal
	BollingerLower decimal.Decimal
	SMA50          decimal.Decimal
	EMA20          decimal.Decimal
}

// Earnings describes the next known earnings event.
type Earnings struct {
	NextDate    time.Time
	EPSEstimate decimal.Decimal
}

// InsiderHistory summarizes historical insider buying for a ticker.
type InsiderHistory struct {
	Buys30d      int
	Buys60d      int
	Buys90d      int
	Accelerating bool
}

// News holds recent headlines for a ticker.
type News struct {
	Headlines []string
	Source    string
}

// Enrichment is the set of optional enrichment fields attached to a candidate.
type Enrichment struct {
	Returns        Optional[Returns]
	Fundamentals   Optional[Fundamentals]
	Technicals     Optional[Technicals]
	Earnings       Optional[Earnings]
	InsiderHistory Optional[InsiderHistory]
	News           Optional[News]
}

// ReturnsProvider, FundamentalsProvider, etc. are the narrow external
// collaborators the Enricher fans out to. Concrete financial-data-provider
// transports are out of scope for the core (spec.md §6).
type ReturnsProvider interface {
	GetReturns(ctx context.Context, ticker string) (Returns, error)
}
type FundamentalsProvider interface {
	GetFundamentals(ctx context.Context, ticker string) (Fundamentals, error)
}
type TechnicalsProvider interface {
	GetTechnicals(ctx context.Context, ticker string) (Technicals, error)
}
type EarningsProvider interface {
	GetEarnings(ctx context.Context, ticker string) (Earnings, error)
}
type InsiderHistoryProvider interface {
	GetInsiderHistory(ctx context.Context, ticker string, lookbackDays int) (InsiderHistory, error)
}
type NewsProvider interface {
	GetNews(ctx context.Context, ticker string) (News, error)
}

// Enricher fans out to every configured provider for a single ticker.
// Any provider left nil is treated as permanently absent for that field.
type Enricher struct {
	Returns        ReturnsProvider
	Fundamentals   FundamentalsProvider
	Technicals     TechnicalsProvider
	Earnings       EarningsProvider
	InsiderHistory InsiderHistoryProvider
	PrimaryNews    NewsProvider
	FallbackNews   NewsProvider // optional; used when PrimaryNews is breaker-tripped or fails

	NewsBreaker *risk.CircuitBreaker
	NewsSem     *semaphore.Weighted

	PerCallTimeout time.Duration // default 20s
	Logger         *log.Logger
}

// NewEnricher builds an Enricher with sane defaults. newsConcurrency bounds
// simultaneous news fetches across all candidates (spec.md default: 5).
func NewEnricher(newsConcurrency int64, breaker *risk.CircuitBreaker, logger *log.Logger) *Enricher {
	if newsConcurrency <= 0 {
		newsConcurrency = 5
	}
	if logger == nil {
		logger = log.New(log.Writer(), "", log.LstdFlags)
	}
	return &Enricher{
		NewsBreaker:    breaker,
		NewsSem:        semaphore.NewWeighted(newsConcurrency),
		PerCallTimeout: 20 * time.Second,
		Logger:         logger,
	}
}

// Enrich fans out to every configured provider for ticker, applying a
// per-call deadline to each. It never returns an error: a failing
// sub-fetch simply leaves its field absent.
func (e *Enricher) Enrich(ctx context.Context, ticker string) Enrichment {
	var out Enrichment
	deadline := e.PerCallTimeout
	if deadline <= 0 {
		deadline = 20 * time.Second
	}

	g, gctx := errgroup.WithContext(ctx)

	if e.Returns != nil {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, deadline)
			defer cancel()
			v, err := e.Returns.GetReturns(cctx, ticker)
			if err != nil {
				e.Logger.Printf("[enrich] %s: returns fetch failed: %v", ticker, err)
				return nil
			}
			out.Returns = Some(v)
			return nil
		})
	}
	if e.Fundamentals != nil {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, deadline)
			defer cancel()
			v, err := e.Fundamentals.GetFundamentals(cctx, ticker)
			if err != nil {
				e.Logger.Printf("[enrich] %s: fundamentals fetch failed: %v", ticker, err)
				return nil
			}
			out.Fundamentals = Some(v)
			return nil
		})
	}
	if e.Technicals != nil {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, deadline)
			defer cancel()
			v, err := e.Technicals.GetTechnicals(cctx, ticker)
			if err != nil {
				e.Logger.Printf("[enrich] %s: technicals fetch failed: %v", ticker, err)
				return nil
			}
			out.Technicals = Some(v)
			return nil
		})
	}
	if e.Earnings != nil {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, deadline)
			defer cancel()
			v, err := e.Earnings.GetEarnings(cctx, ticker)
			if err != nil {
				e.Logger.Printf("[enrich] %s: earnings fetch failed: %v", ticker, err)
				return nil
			}
			out.Earnings = Some(v)
			return nil
		})
	}
	if e.InsiderHistory != nil {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, deadline)
			defer cancel()
			v, err := e.InsiderHistory.GetInsiderHistory(cctx, ticker, 90)
			if err != nil {
				e.Logger.Printf("[enrich] %s: insider history fetch failed: %v", ticker, err)
				return nil
			}
			out.InsiderHistory = Some(v)
			return nil
		})
	}
	if e.PrimaryNews != nil || e.FallbackNews != nil {
		g.Go(func() error {
			v, ok := e.fetchNews(gctx, ticker, deadline)
			if ok {
				out.News = Some(v)
			}
			return nil
		})
	}

	_ = g.Wait() // sub-fetches never return error; this only waits for completion
	return out
}

// fetchNews applies the concurrency semaphore and circuit breaker in front
// of the primary news provider, falling back to the secondary provider
// when the primary is tripped or fails.
func (e *Enricher) fetchNews(ctx context.Context, ticker string, deadline time.Duration) (News, bool) {
	if e.NewsSem != nil {
		if err := e.NewsSem.Acquire(ctx, 1); err != nil {
			return News{}, false
		}
		defer e.NewsSem.Release(1)
	}

	if e.PrimaryNews != nil && (e.NewsBreaker == nil || !e.NewsBreaker.IsTripped()) {
		cctx, cancel := context.WithTimeout(ctx, deadline)
		v, err := e.PrimaryNews.GetNews(cctx, ticker)
		cancel()
		if err == nil {
			if e.NewsBreaker != nil {
				e.NewsBreaker.RecordSuccess()
			}
			v.Source = "primary"
			return v, true
		}
		e.Logger.Printf("[enrich] %s: primary news fetch failed: %v", ticker, err)
		if e.NewsBreaker != nil {
			e.NewsBreaker.RecordFailure(err.Error())
		}
	}

	if e.FallbackNews != nil {
		cctx, cancel := context.WithTimeout(ctx, deadline)
		v, err := e.FallbackNews.GetNews(cctx, ticker)
		cancel()
		if err != nil {
			e.Logger.Printf("[enrich] %s: fallback news fetch failed: %v", ticker, err)
			return News{}, false
		}
		v.Source = "fallback"
		return v, true
	}

	return News{}, false
}
