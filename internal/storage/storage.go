// Package storage defines the persistence contract for the orchestrator
// (spec.md §6 "Persisted state"): the backtest run table, the daily
// results table, and the historical sentiment table. The blacklist
// document is not stored here — see internal/blacklist, which owns its
// own embedded SQLite store.
package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/google/uuid"
)

// BacktestRun is one invocation of the Backtest Engine (spec.md §4.8).
type BacktestRun struct {
	ID         string
	Name       string
	StartDate  time.Time
	EndDate    time.Time
	Budget     decimal.Decimal
	Status     string // "running", "completed", "failed"
	CreatedAt  time.Time
}

// DailyResult is one simulated trading day's outcome within a backtest
// run, keyed by (RunID, Date, StrategyTag).
type DailyResult struct {
	RunID         string
	Date          time.Time
	StrategyTag   string
	Invested      decimal.Decimal
	Value         decimal.Decimal
	RealizedPnL   decimal.Decimal
	UnrealizedPnL decimal.Decimal
	TradesJSON    json.RawMessage
}

// SentimentSnapshot is one day's stored sentiment digest, replayed by
// the Backtest Engine instead of re-fetching from the live sources.
// ReportJSON holds the marshaled pipeline.SentimentReport; this package
// stays decoupled from the pipeline package and treats it as opaque,
// per spec.md §6's "schemas are opaque to the core except for the
// contract fields listed in §3".
type SentimentSnapshot struct {
	Date       time.Time
	ReportJSON json.RawMessage
}

// Store is the persistence contract backtests and daily cycles use.
type Store interface {
	// CreateBacktestRun inserts a new run and returns its ID. A zero
	// ID on the input run means "generate one" (google/uuid).
	CreateBacktestRun(ctx context.Context, run BacktestRun) (string, error)
	// UpdateBacktestRunStatus marks a run's terminal state.
	UpdateBacktestRunStatus(ctx context.Context, runID, status string) error

	// SaveDailyResult upserts one day's simulated outcome for a run.
	SaveDailyResult(ctx context.Context, result DailyResult) error
	// GetDailyResults returns every persisted day for a run, ordered by date.
	GetDailyResults(ctx context.Context, runID string) ([]DailyResult, error)

	// SaveSentiment stores one day's sentiment digest for later replay.
	SaveSentiment(ctx context.Context, snapshot SentimentSnapshot) error
	// GetSentiment returns the stored digest for a date, or ok=false if none exists.
	GetSentiment(ctx context.Context, date time.Time) (snapshot SentimentSnapshot, ok bool, err error)

	// Ping verifies connectivity.
	Ping(ctx context.Context) error
	// Close releases the underlying connection pool.
	Close() error
}

// NewBacktestRunID generates a run ID, used when CreateBacktestRun's
// caller leaves BacktestRun.ID empty.
func NewBacktestRunID() string {
	return uuid.NewString()
}
