// Package sources defines the narrow adapter interfaces through which the
// Signal Digest Builder consumes external buy-signal providers (company
// insider filings, politician disclosures). The concrete HTTP/scraper
// clients behind these interfaces are out of scope for the core (spec.md
// §1, §6): only the shapes the core depends on live here.
package sources

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// RawTransaction is a single disclosed buy transaction, as reported by a
// source, before any cross-source merging.
type RawTransaction struct {
	InsiderName  string
	Role         string
	ValueUSD     decimal.Decimal
	DeltaOwnPct  decimal.Decimal // percentage change in stake; a new stake is 100%.
	TransactedAt string          // ISO date, opaque to the core
}

// RawCandidate is a single ticker's aggregated buy signal from one source,
// before tagging, merging, or enrichment.
type RawCandidate struct {
	Ticker          string
	Company         string
	Insiders        []string // ordered, deduped by insertion within this source
	IsCluster       bool
	IsCSuitePresent bool
	TotalValueUSD   decimal.Decimal
	ConvictionScore decimal.Decimal
	MaxDeltaOwnPct  decimal.Decimal
	Transactions    []RawTransaction
}

// InsiderSource supplies company-insider buy filings, ranked by
// conviction score, capped at topN.
type InsiderSource interface {
	FetchTopBuys(ctx context.Context, lookbackDays, topN int) ([]RawCandidate, error)
}

// PoliticianSource supplies politician buy-only disclosures, capped at topN.
// Implementations filter out sells before returning.
type PoliticianSource interface {
	FetchTopBuys(ctx context.Context, lookbackDays, topN int) ([]RawCandidate, error)
}

// InsiderRegistry and PoliticianRegistry map source names to factory
// functions, mirroring internal/broker.Registry — the concrete HTTP
// clients behind InsiderSource/PoliticianSource live outside the core
// and register themselves here at init time.
var (
	InsiderRegistry    = map[string]func(configJSON []byte) (InsiderSource, error){}
	PoliticianRegistry = map[string]func(configJSON []byte) (PoliticianSource, error){}
)

// NewInsiderSource looks up a registered InsiderSource factory by name.
func NewInsiderSource(name string, configJSON []byte) (InsiderSource, error) {
	factory, ok := InsiderRegistry[name]
	if !ok {
		return nil, fmt.Errorf("sources: unknown insider source %q", name)
	}
	return factory(configJSON)
}

// NewPoliticianSource looks up a registered PoliticianSource factory by name.
func NewPoliticianSource(name string, configJSON []byte) (PoliticianSource, error) {
	factory, ok := PoliticianRegistry[name]
	if !ok {
		return nil, fmt.Errorf("sources: unknown politician source %q", name)
	}
	return factory(configJSON)
}
