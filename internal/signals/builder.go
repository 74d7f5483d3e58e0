package signals

import (
	"context"
	"log"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/nitinkhare/tradingorchestrator/internal/enrich"
	"github.com/nitinkhare/tradingorchestrator/internal/sources"
)

var droppedQuoteTypes = map[string]bool{
	"MUTUALFUND": true,
	"ETF":        true,
	"INDEX":      true,
	"FUTURE":     true,
	"CURRENCY":   true,
}

// BuilderConfig tunes the digest builder's source/enrichment parameters.
type BuilderConfig struct {
	InsiderLookbackDays       int
	InsiderTopN               int
	PoliticianEnabled         bool
	PoliticianTopN            int
	CapitolTradesMaxMarketCap decimal.Decimal
	EnrichConcurrency         int64 // bounds simultaneously-enriching candidates; default 10
}

// Builder produces a SignalDigest for one decision cycle (spec.md §4.3).
type Builder struct {
	Insider    sources.InsiderSource
	Politician sources.PoliticianSource
	Enricher   *enrich.Enricher
	Config     BuilderConfig
	Logger     *log.Logger
}

// NewBuilder wires a Builder. Politician may be nil if disabled.
func NewBuilder(insider sources.InsiderSource, politician sources.PoliticianSource, enricher *enrich.Enricher, cfg BuilderConfig, logger *log.Logger) *Builder {
	if cfg.EnrichConcurrency <= 0 {
		cfg.EnrichConcurrency = 10
	}
	if logger == nil {
		logger = log.New(log.Writer(), "", log.LstdFlags)
	}
	return &Builder{
		Insider:    insider,
		Politician: politician,
		Enricher:   enricher,
		Config:     cfg,
		Logger:     logger,
	}
}

// Build runs the fetch → normalize → merge → enrich → filter → order
// pipeline described in spec.md §4.3. It never returns an error for
// source-fetch failures: a total failure of both sources yields an
// empty digest, leaving the low-signal-day decision to the caller.
func (b *Builder) Build(ctx context.Context) (*SignalDigest, error) {
	insiderRaw, politicianRaw := b.fetchSources(ctx)

	merged := b.mergeByTicker(insiderRaw, politicianRaw)
	enriched := b.enrichAll(ctx, merged)
	filtered := b.filter(enriched)

	sort.Slice(filtered, func(i, j int) bool {
		if !filtered[i].ConvictionScore.Equal(filtered[j].ConvictionScore) {
			return filtered[i].ConvictionScore.GreaterThan(filtered[j].ConvictionScore)
		}
		return filtered[i].Ticker < filtered[j].Ticker
	})

	digest := &SignalDigest{
		Candidates:   filtered,
		LookbackDays: b.Config.InsiderLookbackDays,
		SourceCounts: map[Source]int{},
	}
	for _, c := range filtered {
		digest.SourceCounts[c.Source]++
		if c.Source == SourceInsider || c.Source == SourceInsiderPoliticians {
			digest.InsiderCount++
		}
	}
	return digest, nil
}

// fetchSources fetches insider and politician candidates in parallel.
// Each is best-effort: a failure logs and yields an empty list.
func (b *Builder) fetchSources(ctx context.Context) ([]sources.RawCandidate, []sources.RawCandidate) {
	var insiderRaw, politicianRaw []sources.RawCandidate

	var g errgroup.Group
	if b.Insider != nil {
		g.Go(func() error {
			raw, err := b.Insider.FetchTopBuys(ctx, b.Config.InsiderLookbackDays, b.Config.InsiderTopN)
			if err != nil {
				b.Logger.Printf("[signals] insider source fetch failed: %v", err)
				return nil
			}
			insiderRaw = raw
			return nil
		})
	}
	if b.Politician != nil && b.Config.PoliticianEnabled {
		g.Go(func() error {
			raw, err := b.Politician.FetchTopBuys(ctx, b.Config.InsiderLookbackDays, b.Config.PoliticianTopN)
			if err != nil {
				b.Logger.Printf("[signals] politician source fetch failed: %v", err)
				return nil
			}
			politicianRaw = raw
			return nil
		})
	}
	_ = g.Wait()
	return insiderRaw, politicianRaw
}

// mergeByTicker tags each source's candidates, then merges tickers present
// in both into a single "insider+politicians" candidate (spec.md §4.3
// point 3). The combined entry preserves the insider candidate's
// IsCSuitePresent and MaxDeltaOwnPct.
func (b *Builder) mergeByTicker(insiderRaw, politicianRaw []sources.RawCandidate) []Candidate {
	byTicker := map[TickerSymbol]*Candidate{}
	order := []TickerSymbol{}

	// Insider candidates always land first: is_csuite_present and
	// max_delta_own_pct on a merged entry come from the insider side.
	for _, raw := range insiderRaw {
		ticker := TickerSymbol(raw.Ticker)
		c := fromRaw(raw, SourceInsider)
		byTicker[ticker] = &c
		order = append(order, ticker)
	}

	for _, raw := range politicianRaw {
		ticker := TickerSymbol(raw.Ticker)
		existing, ok := byTicker[ticker]
		if !ok {
			c := fromRaw(raw, SourcePoliticians)
			byTicker[ticker] = &c
			order = append(order, ticker)
			continue
		}
		existing.Source = SourceInsiderPoliticians
		existing.HasPoliticianBuy = true
		existing.Insiders = unionInsertionOrder(existing.Insiders, raw.Insiders)
		existing.ConvictionScore = existing.ConvictionScore.Add(raw.ConvictionScore)
		existing.TotalValueUSD = existing.TotalValueUSD.Add(raw.TotalValueUSD)
		existing.Transactions = append(existing.Transactions, convertTransactions(raw.Transactions)...)
		existing.IsCluster = existing.IsCluster || raw.IsCluster
	}

	out := make([]Candidate, 0, len(order))
	for _, t := range order {
		out = append(out, *byTicker[t])
	}
	return out
}

func fromRaw(raw sources.RawCandidate, src Source) Candidate {
	return Candidate{
		Ticker:          TickerSymbol(raw.Ticker),
		Company:         raw.Company,
		Source:          src,
		Insiders:        append([]string(nil), raw.Insiders...),
		IsCluster:       raw.IsCluster,
		IsCSuitePresent: raw.IsCSuitePresent,
		TotalValueUSD:   raw.TotalValueUSD,
		ConvictionScore: raw.ConvictionScore,
		MaxDeltaOwnPct:  raw.MaxDeltaOwnPct,
		Transactions:    convertTransactions(raw.Transactions),
	}
}

func convertTransactions(raw []sources.RawTransaction) []Transaction {
	out := make([]Transaction, 0, len(raw))
	for _, t := range raw {
		out = append(out, Transaction{
			InsiderName:  t.InsiderName,
			Role:         t.Role,
			ValueUSD:     t.ValueUSD,
			DeltaOwnPct:  t.DeltaOwnPct,
			TransactedAt: t.TransactedAt,
		})
	}
	return out
}

// unionInsertionOrder appends items from b that aren't already in a,
// preserving a's order then b's first-seen order.
func unionInsertionOrder(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// enrichAll fans out enrichment across merged candidates, bounded by
// Config.EnrichConcurrency. A candidate whose context is cancelled still
// yields a result (with whatever fields the Enricher managed to fill).
func (b *Builder) enrichAll(ctx context.Context, candidates []Candidate) []EnrichedCandidate {
	if b.Enricher == nil {
		out := make([]EnrichedCandidate, len(candidates))
		for i, c := range candidates {
			out[i] = EnrichedCandidate{Candidate: c}
		}
		return out
	}

	out := make([]EnrichedCandidate, len(candidates))
	sem := semaphore.NewWeighted(b.Config.EnrichConcurrency)
	var wg errgroup.Group

	for i := range candidates {
		i := i
		wg.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				out[i] = EnrichedCandidate{Candidate: candidates[i]}
				return nil
			}
			defer sem.Release(1)
			result := b.Enricher.Enrich(ctx, string(candidates[i].Ticker))
			out[i] = EnrichedCandidate{
				Candidate:      candidates[i],
				Returns:        result.Returns,
				Fundamentals:   result.Fundamentals,
				Technicals:     result.Technicals,
				Earnings:       result.Earnings,
				InsiderHistory: result.InsiderHistory,
				News:           result.News,
			}
			return nil
		})
	}
	_ = wg.Wait()
	return out
}

// filter drops non-equity instruments and politician-sourced mega-caps
// (spec.md §4.3 point 5).
func (b *Builder) filter(candidates []EnrichedCandidate) []EnrichedCandidate {
	out := make([]EnrichedCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Fundamentals.Present && droppedQuoteTypes[c.Fundamentals.Value.QuoteType] {
			continue
		}
		if c.Source == SourcePoliticians &&
			c.Fundamentals.Present &&
			!b.Config.CapitolTradesMaxMarketCap.IsZero() &&
			c.Fundamentals.Value.MarketCap.GreaterThan(b.Config.CapitolTradesMaxMarketCap) {
			continue
		}
		out = append(out, c)
	}
	return out
}
