// Package sell implements the Sell Strategy Engine (spec.md §4.6):
// fixed-priority rule evaluation over open positions — stop-loss beats
// take-profit beats hold-period, first match wins.
//
// Grounded on original_source/src/orchestrator/sell_strategy.py's
// SellStrategyEngine, and on the teacher's former risk-rule style in
// the now-removed internal/risk/risk.go (the sequential check-and-
// return-on-first-match pattern), adapted here to produce signals
// instead of reject a trade.
package sell

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nitinkhare/tradingorchestrator/internal/config"
	"github.com/nitinkhare/tradingorchestrator/internal/signals"
)

// Engine evaluates open positions against the sell rules.
type Engine struct {
	Config config.SellConfig
}

// NewEngine builds a sell engine from the given sell tunables.
func NewEngine(cfg config.SellConfig) *Engine {
	return &Engine{Config: cfg}
}

// EvaluatePosition checks one position's sell rules in priority order:
// stop-loss, then take-profit, then hold-period. Returns nil if none
// fire. A non-positive current price or quantity is treated as "can't
// evaluate" rather than an error (spec.md §4.6 edge case).
func (e *Engine) EvaluatePosition(position signals.Position, currentPrice decimal.Decimal, today time.Time) *signals.SellSignal {
	if currentPrice.LessThanOrEqual(decimal.Zero) || position.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil
	}
	if position.AvgBuyPrice.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	returnPct := currentPrice.Sub(position.AvgBuyPrice).Div(position.AvgBuyPrice).Mul(decimal.NewFromInt(100))

	stopLossThreshold := decimal.NewFromFloat(e.Config.StopLossPct).Neg()
	if returnPct.LessThanOrEqual(stopLossThreshold) {
		return &signals.SellSignal{
			Ticker:       position.Ticker,
			SignalType:   signals.SellStopLoss,
			TriggerPrice: currentPrice,
			ReturnPct:    returnPct,
			Reasoning:    fmt.Sprintf("stop-loss: %s%% (threshold: -%.1f%%)", returnPct.StringFixed(1), e.Config.StopLossPct),
		}
	}

	takeProfitThreshold := decimal.NewFromFloat(e.Config.TakeProfitPct)
	if returnPct.GreaterThanOrEqual(takeProfitThreshold) {
		return &signals.SellSignal{
			Ticker:       position.Ticker,
			SignalType:   signals.SellTakeProfit,
			TriggerPrice: currentPrice,
			ReturnPct:    returnPct,
			Reasoning:    fmt.Sprintf("take-profit: +%s%% (threshold: +%.1f%%)", returnPct.StringFixed(1), e.Config.TakeProfitPct),
		}
	}

	if !position.OpenedAt.IsZero() {
		daysHeld := int(today.Sub(position.OpenedAt).Hours() / 24)
		if daysHeld >= e.Config.MaxHoldDays {
			return &signals.SellSignal{
				Ticker:       position.Ticker,
				SignalType:   signals.SellHoldPeriod,
				TriggerPrice: currentPrice,
				ReturnPct:    returnPct,
				Reasoning:    fmt.Sprintf("hold-period: %d days (max: %d)", daysHeld, e.Config.MaxHoldDays),
			}
		}
	}

	return nil
}

// EvaluatePositions runs EvaluatePosition across every open position,
// looking up each position's price from prices by ticker. A position
// with no price entry is treated as price zero, which EvaluatePosition
// already skips.
func (e *Engine) EvaluatePositions(positions []signals.Position, prices map[signals.TickerSymbol]decimal.Decimal, today time.Time) []signals.SellSignal {
	var out []signals.SellSignal
	for _, position := range positions {
		price := prices[position.Ticker]
		if signal := e.EvaluatePosition(position, price, today); signal != nil {
			out = append(out, *signal)
		}
	}
	return out
}
