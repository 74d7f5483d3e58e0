// Package supervisor implements the decision cycle (spec.md §4.7): the
// single entry point that gates on the trading day, builds the signal
// digest, runs both pipeline strategies, executes the resulting picks,
// and persists the blacklist additions — grounded directly on
// original_source/src/orchestrator/supervisor.py's run_decision_cycle.
package supervisor

import (
	"time"

	"github.com/nitinkhare/tradingorchestrator/internal/pipeline"
	"github.com/nitinkhare/tradingorchestrator/internal/signals"
)

// CycleStatus is the terminal state of one decision cycle.
type CycleStatus string

const (
	CycleOK      CycleStatus = "ok"
	CycleSkipped CycleStatus = "skipped"
	CycleError   CycleStatus = "error"
)

// StrategyOutcome is one strategy's pipeline result plus whatever the
// Trade Executor did with its picks.
type StrategyOutcome struct {
	Pipeline  pipeline.Result
	Execution signals.ExecutionSummary
}

// CycleResult is the Supervisor's full report for one decision cycle.
type CycleResult struct {
	Status       CycleStatus
	Reason       string
	Stage        string
	Date         time.Time
	CorrelationID string
	InsiderCount int
	Blacklisted  []signals.TickerSymbol
	Strategies   map[string]StrategyOutcome
}
