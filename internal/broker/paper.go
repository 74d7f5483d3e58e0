// Package broker - paper.go implements the practice trading broker.
//
// The paper broker simulates order execution against a caller-supplied
// price. It implements the same Broker interface as any real broker so
// the Trade Executor's logic is identical between paper and live modes.
package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// PaperBroker is an in-memory practice broker. Orders are filled
// immediately at a price previously recorded for the instrument via
// RecordPrice, adapted from the teacher's NSE PaperBroker: orders are
// value-based ("spend this much") rather than quantity-based, and every
// money field is a decimal.Decimal.
type PaperBroker struct {
	mu        sync.Mutex
	funds     Fund
	holdings  map[string]*Holding
	lastPrice map[string]decimal.Decimal
	orders    map[string]*paperOrder
	orderSeq  int
}

type paperOrder struct {
	Instrument string
	Side       OrderSide
	Result     OrderResult
}

// NewPaperBroker creates a practice broker seeded with initialCapital.
func NewPaperBroker(initialCapital decimal.Decimal) *PaperBroker {
	return &PaperBroker{
		funds:     Fund{AvailableCash: initialCapital},
		holdings:  make(map[string]*Holding),
		lastPrice: make(map[string]decimal.Decimal),
		orders:    make(map[string]*paperOrder),
	}
}

func (pb *PaperBroker) GetFunds(_ context.Context) (*Fund, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	f := pb.funds
	return &f, nil
}

func (pb *PaperBroker) GetHoldings(_ context.Context) ([]Holding, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	out := make([]Holding, 0, len(pb.holdings))
	for _, h := range pb.holdings {
		out = append(out, *h)
	}
	return out, nil
}

// ResolveInstrument trivially resolves to the same ticker: a practice
// broker is never short a tradable instrument.
func (pb *PaperBroker) ResolveInstrument(_ context.Context, ticker string) (string, bool, error) {
	return ticker, true, nil
}

// RecordPrice sets the price the paper broker uses to fill orders for
// instrument. The Trade Executor calls this through the PriceSettable
// type assertion immediately before placing an order, using the same
// price it already validated on the candidate, since a practice fill
// needs a price to convert a currency amount into a quantity.
func (pb *PaperBroker) RecordPrice(instrument string, price decimal.Decimal) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.lastPrice[instrument] = price
}

// PlaceMarketOrder fills immediately at the last price recorded for
// instrument (simplified; a live broker would use the actual execution
// price). Insufficient funds/holdings are returned as a rejected
// OrderResult, not an error — only a missing price or an unknown order
// side is a Go error, since those indicate a caller bug rather than a
// market outcome.
func (pb *PaperBroker) PlaceMarketOrder(_ context.Context, instrument string, side OrderSide, amount decimal.Decimal) (*OrderResult, error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	price, ok := pb.lastPrice[instrument]
	if !ok || price.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("paper broker: no known price for %s, call RecordPrice first", instrument)
	}

	var result *OrderResult
	switch side {
	case OrderSideBuy:
		result = pb.fillBuy(instrument, amount, price)
	case OrderSideSell:
		result = pb.fillSell(instrument, amount, price)
	default:
		return nil, fmt.Errorf("paper broker: unknown order side %q", side)
	}

	pb.orderSeq++
	result.OrderID = fmt.Sprintf("PAPER-%d", pb.orderSeq)
	pb.orders[result.OrderID] = &paperOrder{Instrument: instrument, Side: side, Result: *result}
	return result, nil
}

func (pb *PaperBroker) fillBuy(instrument string, amount, price decimal.Decimal) *OrderResult {
	if amount.GreaterThan(pb.funds.AvailableCash) {
		return &OrderResult{Status: OrderStatusRejected, Message: "insufficient funds"}
	}

	qty := amount.Div(price)
	h, exists := pb.holdings[instrument]
	if !exists {
		h = &Holding{Ticker: instrument}
		pb.holdings[instrument] = h
	}

	totalQty := h.Quantity.Add(qty)
	if totalQty.GreaterThan(decimal.Zero) {
		weighted := h.AveragePrice.Mul(h.Quantity).Add(price.Mul(qty))
		h.AveragePrice = weighted.Div(totalQty)
	}
	h.Quantity = totalQty

	pb.funds.AvailableCash = pb.funds.AvailableCash.Sub(amount)

	return &OrderResult{Status: OrderStatusFilled, FilledQty: qty, FilledPrice: price, AmountSpent: amount}
}

func (pb *PaperBroker) fillSell(instrument string, amount, price decimal.Decimal) *OrderResult {
	h, exists := pb.holdings[instrument]
	if !exists || h.Quantity.LessThanOrEqual(decimal.Zero) {
		return &OrderResult{Status: OrderStatusRejected, Message: "no holding to sell"}
	}

	qty := amount.Div(price)
	if qty.GreaterThan(h.Quantity) {
		qty = h.Quantity
		amount = qty.Mul(price)
	}

	h.Quantity = h.Quantity.Sub(qty)
	if h.Quantity.LessThanOrEqual(decimal.Zero) {
		delete(pb.holdings, instrument)
	}

	pb.funds.AvailableCash = pb.funds.AvailableCash.Add(amount)

	return &OrderResult{Status: OrderStatusFilled, FilledQty: qty, FilledPrice: price, AmountSpent: amount}
}
