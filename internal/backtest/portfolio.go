// Package backtest implements the Backtest Engine (spec.md §4.8):
// replaying both strategies' pipelines day-by-day against historical
// sentiment snapshots, using simulated portfolios instead of a real
// broker. Grounded on
// original_source/src/backtesting/engine.py's BacktestEngine,
// SimulatedPosition, and SimulatedPortfolio.
package backtest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nitinkhare/tradingorchestrator/internal/signals"
)

// SimulatedPosition is one open position inside a SimulatedPortfolio.
type SimulatedPosition struct {
	Ticker      signals.TickerSymbol
	Quantity    decimal.Decimal
	AvgBuyPrice decimal.Decimal
	OpenedAt    time.Time
}

// TradeRecord is one buy or sell applied to a SimulatedPortfolio.
type TradeRecord struct {
	Action   string // "buy" | "sell"
	Ticker   signals.TickerSymbol
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Amount   decimal.Decimal // buy only: cash spent
	Proceeds decimal.Decimal // sell only: cash received
	PnL      decimal.Decimal // sell only
	Reason   string
	Date     time.Time
}

// SimulatedPortfolio tracks open positions, realized PnL, and trade
// history for one backtest strategy. It never touches a real broker.
type SimulatedPortfolio struct {
	Positions     map[signals.TickerSymbol]*SimulatedPosition
	RealizedPnL   decimal.Decimal
	TotalInvested decimal.Decimal
	Trades        []TradeRecord
}

// NewSimulatedPortfolio builds an empty portfolio.
func NewSimulatedPortfolio() *SimulatedPortfolio {
	return &SimulatedPortfolio{Positions: map[signals.TickerSymbol]*SimulatedPosition{}}
}

// Buy opens or adds to a position at a weighted-average cost basis. A
// non-positive price is a no-op (spec.md §4.8 edge case).
func (p *SimulatedPortfolio) Buy(ticker signals.TickerSymbol, amount, price decimal.Decimal, tradeDate time.Time) {
	if price.LessThanOrEqual(decimal.Zero) {
		return
	}
	qty := amount.Div(price)
	if pos, ok := p.Positions[ticker]; ok {
		totalQty := pos.Quantity.Add(qty)
		pos.AvgBuyPrice = pos.Quantity.Mul(pos.AvgBuyPrice).Add(qty.Mul(price)).Div(totalQty)
		pos.Quantity = totalQty
	} else {
		p.Positions[ticker] = &SimulatedPosition{Ticker: ticker, Quantity: qty, AvgBuyPrice: price, OpenedAt: tradeDate}
	}
	p.TotalInvested = p.TotalInvested.Add(amount)
	p.Trades = append(p.Trades, TradeRecord{Action: "buy", Ticker: ticker, Quantity: qty, Price: price, Amount: amount, Date: tradeDate})
}

// Sell closes a position entirely and realizes its PnL. Returns nil if
// the ticker has no open position.
func (p *SimulatedPortfolio) Sell(ticker signals.TickerSymbol, price decimal.Decimal, tradeDate time.Time, reason string) *TradeRecord {
	pos, ok := p.Positions[ticker]
	if !ok || pos.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil
	}
	proceeds := pos.Quantity.Mul(price)
	costBasis := pos.Quantity.Mul(pos.AvgBuyPrice)
	pnl := proceeds.Sub(costBasis)
	p.RealizedPnL = p.RealizedPnL.Add(pnl)

	trade := TradeRecord{Action: "sell", Ticker: ticker, Quantity: pos.Quantity, Price: price, Proceeds: proceeds, PnL: pnl, Reason: reason, Date: tradeDate}
	p.Trades = append(p.Trades, trade)
	delete(p.Positions, ticker)
	return &trade
}

// Value marks every open position to prices, falling back to the
// position's own average cost when no current price is known.
func (p *SimulatedPortfolio) Value(prices map[signals.TickerSymbol]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for ticker, pos := range p.Positions {
		price, ok := prices[ticker]
		if !ok || price.LessThanOrEqual(decimal.Zero) {
			price = pos.AvgBuyPrice
		}
		total = total.Add(pos.Quantity.Mul(price))
	}
	return total
}

// AsPositions converts open positions into signals.Position, the shape
// every pipeline stage expects for "current portfolio" input.
func (p *SimulatedPortfolio) AsPositions(isReal bool) []signals.Position {
	out := make([]signals.Position, 0, len(p.Positions))
	for _, pos := range p.Positions {
		out = append(out, signals.Position{
			Ticker:      pos.Ticker,
			Quantity:    pos.Quantity,
			AvgBuyPrice: pos.AvgBuyPrice,
			OpenedAt:    pos.OpenedAt,
			IsReal:      isReal,
		})
	}
	return out
}

// tradesOn returns the trades recorded for exactly one date.
func tradesOn(trades []TradeRecord, date time.Time) []TradeRecord {
	out := make([]TradeRecord, 0, len(trades))
	for _, t := range trades {
		if t.Date.Equal(date) {
			out = append(out, t)
		}
	}
	return out
}
