package broker

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nitinkhare/tradingorchestrator/internal/signals"
)

// RankedCandidate is one buy candidate handed to the Trade Executor,
// already priced by the Supervisor (spec.md §4.7 step 8).
type RankedCandidate struct {
	Ticker        signals.TickerSymbol
	PriceLocalCcy decimal.Decimal
	AllocationPct decimal.Decimal
	Reasoning     string
}

// TradeExecutor spends an effective budget across a ranked candidate
// list with ordered fallback: a failure on one candidate never aborts
// the run, it just moves to the next (spec.md §4.5). Grounded on
// original_source/src/orchestrator/trade_executor.py's
// execute_with_fallback.
type TradeExecutor struct {
	Broker Broker
	Logger *log.Logger
}

// NewTradeExecutor builds a TradeExecutor. logger may be nil.
func NewTradeExecutor(b Broker, logger *log.Logger) *TradeExecutor {
	if logger == nil {
		logger = log.Default()
	}
	return &TradeExecutor{Broker: b, Logger: logger}
}

// minSpend is the floor below which remaining budget is considered
// fully allocated and the loop stops, mirroring the original's
// "remaining < 1.0" cutoff in the account's own currency units.
var minSpend = decimal.NewFromInt(1)

// Execute tries to spend `budget` across candidates in order, stopping
// early once remaining budget drops below minSpend or candidates are
// exhausted. It never returns a Go error: every per-candidate failure is
// recorded in the summary's Failed list and execution continues.
func (e *TradeExecutor) Execute(ctx context.Context, candidates []RankedCandidate, budget decimal.Decimal, isReal bool) signals.ExecutionSummary {
	effectiveBudget := budget
	availableCash := budget

	if fund, err := e.Broker.GetFunds(ctx); err != nil {
		e.Logger.Printf("trade_executor: could not fetch available cash, using configured budget %s: %v", budget, err)
	} else {
		availableCash = fund.AvailableCash
		effectiveBudget = decimal.Min(budget, availableCash)
	}

	summary := signals.ExecutionSummary{
		IsReal:        isReal,
		Budget:        budget,
		AvailableCash: availableCash,
	}

	for _, candidate := range candidates {
		remaining := effectiveBudget.Sub(summary.TotalSpent)
		if remaining.LessThan(minSpend) {
			e.Logger.Printf("trade_executor: budget fully allocated (%s spent)", summary.TotalSpent)
			break
		}

		ticker := strings.ToUpper(strings.TrimSpace(string(candidate.Ticker)))
		if ticker == "" {
			continue
		}

		if candidate.PriceLocalCcy.LessThanOrEqual(decimal.Zero) {
			result := signals.TradeResult{Ticker: signals.TickerSymbol(ticker), Success: false, Error: "no valid price — skipping"}
			summary.Failed = append(summary.Failed, result)
			e.Logger.Printf("trade_executor: no valid price for %s — skipping", ticker)
			continue
		}

		amount := decimal.Min(candidate.AllocationPct.Div(decimal.NewFromInt(100)).Mul(effectiveBudget), remaining)
		if amount.LessThan(minSpend) {
			result := signals.TradeResult{Ticker: signals.TickerSymbol(ticker), Success: false, Error: "allocation below minimum spend — skipping"}
			summary.Failed = append(summary.Failed, result)
			e.Logger.Printf("trade_executor: allocation for %s below minimum spend — skipping", ticker)
			continue
		}

		result := e.tryBuy(ctx, ticker, amount, candidate.PriceLocalCcy)
		if result.Success {
			summary.TotalSpent = summary.TotalSpent.Add(result.AmountSpent)
			summary.Bought = append(summary.Bought, result)
			e.Logger.Printf("trade_executor: bought %s — %s spent | total %s / %s", ticker, result.AmountSpent, summary.TotalSpent, effectiveBudget)
		} else {
			summary.Failed = append(summary.Failed, result)
			e.Logger.Printf("trade_executor: skipped %s — %s", ticker, result.Error)
		}
	}

	return summary
}

// tryBuy attempts a single buy and always returns a TradeResult, never
// an error — callers must keep iterating regardless of outcome. If the
// broker implements PriceSettable (the paper broker does), price is
// recorded for instrument immediately before placing the order, since a
// practice fill has no market of its own to price against.
func (e *TradeExecutor) tryBuy(ctx context.Context, ticker string, amount, price decimal.Decimal) signals.TradeResult {
	instrument, ok, err := e.Broker.ResolveInstrument(ctx, ticker)
	if err != nil {
		return signals.TradeResult{Ticker: signals.TickerSymbol(ticker), Success: false, Error: fmt.Sprintf("resolve instrument: %v", err)}
	}
	if !ok {
		return signals.TradeResult{Ticker: signals.TickerSymbol(ticker), Success: false, Error: "not tradable at this broker"}
	}

	if settable, ok := e.Broker.(PriceSettable); ok {
		settable.RecordPrice(instrument, price)
	}

	order, err := e.Broker.PlaceMarketOrder(ctx, instrument, OrderSideBuy, amount)
	if err != nil {
		return signals.TradeResult{Ticker: signals.TickerSymbol(ticker), Success: false, BrokerTicker: instrument, Error: err.Error()}
	}
	if order.Status != OrderStatusFilled {
		return signals.TradeResult{Ticker: signals.TickerSymbol(ticker), Success: false, BrokerTicker: instrument, Error: order.Message}
	}

	return signals.TradeResult{
		Ticker:       signals.TickerSymbol(ticker),
		Success:      true,
		AmountSpent:  order.AmountSpent,
		Quantity:     order.FilledQty,
		BrokerTicker: instrument,
	}
}
