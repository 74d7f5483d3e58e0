// Package notifier delivers best-effort decision-cycle summaries to
// operators. Nothing in this package ever blocks or fails a decision
// cycle: every Notify call swallows its own errors after logging them,
// the way the teacher's webhook server never let a slow subscriber
// block order-postback handling.
package notifier

import (
	"context"
	"log"

	"github.com/nitinkhare/tradingorchestrator/internal/signals"
)

// Notifier pushes a cycle's outcome somewhere an operator can see it.
// Implementations must not return an error that would abort the
// calling cycle; Notify is called for its side effect only.
type Notifier interface {
	NotifyCycleSummary(ctx context.Context, summary signals.ExecutionSummary)
	NotifySellSignals(ctx context.Context, signals []signals.SellSignal)
}

// Multi fans a notification out to every configured notifier, calling
// each in turn on the caller's goroutine. It neither recovers a panic
// nor bounds a slow delivery; each implementation is responsible for its
// own best-effort delivery.
type Multi struct {
	notifiers []Notifier
}

// NewMulti builds a fan-out notifier from the given notifiers, skipping
// any nil entries so callers can pass conditionally-constructed ones
// directly.
func NewMulti(notifiers ...Notifier) *Multi {
	m := &Multi{}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

func (m *Multi) NotifyCycleSummary(ctx context.Context, summary signals.ExecutionSummary) {
	for _, n := range m.notifiers {
		n.NotifyCycleSummary(ctx, summary)
	}
}

func (m *Multi) NotifySellSignals(ctx context.Context, sells []signals.SellSignal) {
	for _, n := range m.notifiers {
		n.NotifySellSignals(ctx, sells)
	}
}

// logNotifier logs cycle summaries and sell signals through the
// standard logger. Always wired in, even when Telegram/dashboard
// delivery is disabled, so a cycle's outcome is never silently dropped.
type logNotifier struct {
	logger *log.Logger
}

// NewLogNotifier returns a Notifier that writes to logger.
func NewLogNotifier(logger *log.Logger) Notifier {
	return &logNotifier{logger: logger}
}

func (l *logNotifier) NotifyCycleSummary(_ context.Context, summary signals.ExecutionSummary) {
	l.logger.Printf("[notifier] cycle summary: real=%v budget=%s spent=%s bought=%d failed=%d",
		summary.IsReal, summary.Budget, summary.TotalSpent, len(summary.Bought), len(summary.Failed))
}

func (l *logNotifier) NotifySellSignals(_ context.Context, sells []signals.SellSignal) {
	for _, s := range sells {
		l.logger.Printf("[notifier] sell signal: ticker=%s type=%s return=%s%% price=%s reason=%q",
			s.Ticker, s.SignalType, s.ReturnPct, s.TriggerPrice, s.Reasoning)
	}
}
