package pipeline

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nitinkhare/tradingorchestrator/internal/signals"
)

// RunStrategies runs the conservative and aggressive coordinators in
// parallel under the same pipeline-wide deadline. They share no state:
// a failure or timeout in one must not cancel or affect the other
// (spec.md §4.4, §5 "the two pipeline strategies run in parallel and
// never observe each other's intermediate state").
func RunStrategies(ctx context.Context, deadline time.Duration, conservative, aggressive *Coordinator, digest *signals.SignalDigest, redditDigest map[string]any, portfolio []signals.Position, conservativeBudget, aggressiveBudget decimal.Decimal) (Result, Result) {
	var conservativeResult, aggressiveResult Result
	done := make(chan struct{}, 2)

	run := func(c *Coordinator, budget decimal.Decimal, out *Result) {
		defer func() { done <- struct{}{} }()
		if c == nil {
			*out = Result{Status: StatusError, Stage: "pipeline", Error: "strategy not configured"}
			return
		}
		*out = c.Run(ctx, deadline, digest, redditDigest, portfolio, budget)
	}

	go run(conservative, conservativeBudget, &conservativeResult)
	go run(aggressive, aggressiveBudget, &aggressiveResult)

	<-done
	<-done
	return conservativeResult, aggressiveResult
}
