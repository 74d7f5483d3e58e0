package broker

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/nitinkhare/tradingorchestrator/internal/risk"
)

// CircuitBreakingBroker wraps a Broker with a risk.CircuitBreaker guarding
// order placement: once tripped, PlaceMarketOrder is refused locally
// without reaching the underlying broker, until cooldown or manual reset
// (spec.md §4.5's broker circuit breaker, sharing the same breaker
// implementation as the news-provider breaker in internal/enrich).
type CircuitBreakingBroker struct {
	inner   Broker
	breaker *risk.CircuitBreaker
}

// NewCircuitBreakingBroker wraps inner with breaker.
func NewCircuitBreakingBroker(inner Broker, breaker *risk.CircuitBreaker) *CircuitBreakingBroker {
	return &CircuitBreakingBroker{inner: inner, breaker: breaker}
}

func (c *CircuitBreakingBroker) GetFunds(ctx context.Context) (*Fund, error) {
	return c.inner.GetFunds(ctx)
}

func (c *CircuitBreakingBroker) GetHoldings(ctx context.Context) ([]Holding, error) {
	return c.inner.GetHoldings(ctx)
}

func (c *CircuitBreakingBroker) ResolveInstrument(ctx context.Context, ticker string) (string, bool, error) {
	return c.inner.ResolveInstrument(ctx, ticker)
}

// RecordPrice forwards to the wrapped broker when it implements
// PriceSettable (e.g. PaperBroker), so the Trade Executor can set a
// practice fill's price through the circuit-breaking wrapper. A no-op
// against a broker that prices its own fills.
func (c *CircuitBreakingBroker) RecordPrice(instrument string, price decimal.Decimal) {
	if settable, ok := c.inner.(PriceSettable); ok {
		settable.RecordPrice(instrument, price)
	}
}

// PlaceMarketOrder refuses to place an order while the breaker is
// tripped, otherwise delegates and records the outcome against the
// breaker. A rejected (but not errored) order is not itself a broker
// failure — only a Go error from the underlying broker trips it.
func (c *CircuitBreakingBroker) PlaceMarketOrder(ctx context.Context, instrument string, side OrderSide, amount decimal.Decimal) (*OrderResult, error) {
	if c.breaker.IsTripped() {
		return &OrderResult{Status: OrderStatusRejected, Message: "broker circuit breaker open: " + c.breaker.TripReason()}, nil
	}

	result, err := c.inner.PlaceMarketOrder(ctx, instrument, side, amount)
	if err != nil {
		c.breaker.RecordFailure(err.Error())
		return result, err
	}
	c.breaker.RecordSuccess()
	return result, nil
}
