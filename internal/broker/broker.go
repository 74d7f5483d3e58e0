// Package broker defines the broker abstraction layer and the
// budget-aware Trade Executor (spec.md §4.5).
//
// Design rules, generalized from the teacher's NSE-specific broker
// package:
//   - Only one broker is active at a time (real or practice).
//   - No strategy/pipeline logic inside the broker.
//   - The broker layer keeps no instrument-resolution cache: the Trade
//     Executor calls ResolveInstrument for every buy attempt.
//   - Orders are placed by currency value, not share quantity — the
//     teacher's quantity-based NSE orders don't fit a multi-exchange,
//     fractional-allocation world.
package broker

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// OrderSide is buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderStatus is the outcome of a placed order.
type OrderStatus string

const (
	OrderStatusFilled   OrderStatus = "FILLED"
	OrderStatusRejected OrderStatus = "REJECTED"
)

// OrderResult is what PlaceMarketOrder returns for one attempt.
type OrderResult struct {
	OrderID     string
	Status      OrderStatus
	FilledQty   decimal.Decimal
	FilledPrice decimal.Decimal
	AmountSpent decimal.Decimal
	Message     string
}

// Fund is the account's available trading cash.
type Fund struct {
	AvailableCash decimal.Decimal
}

// Holding is one ticker's current position at the broker.
type Holding struct {
	Ticker       string
	Quantity     decimal.Decimal
	AveragePrice decimal.Decimal
}

// Broker is the only contract between the Trade Executor and any
// concrete broker implementation.
type Broker interface {
	// GetFunds returns current available cash.
	GetFunds(ctx context.Context) (*Fund, error)

	// GetHoldings returns all current positions.
	GetHoldings(ctx context.Context) ([]Holding, error)

	// ResolveInstrument maps a core ticker to the broker's own
	// instrument identifier. ok=false (with a nil error) means the
	// ticker has no tradable instrument at this broker — that is not
	// itself an error and must not be cached as a resolved symbol
	// (spec.md §5).
	ResolveInstrument(ctx context.Context, ticker string) (instrument string, ok bool, err error)

	// PlaceMarketOrder places a value-based market order for amount of
	// local currency against the resolved instrument.
	PlaceMarketOrder(ctx context.Context, instrument string, side OrderSide, amount decimal.Decimal) (*OrderResult, error)
}

// PriceSettable is implemented by brokers that need a fill price supplied
// out of band before PlaceMarketOrder, such as PaperBroker. The Trade
// Executor checks for this capability with a type assertion — a live
// broker prices its own fills and simply doesn't implement it.
type PriceSettable interface {
	RecordPrice(instrument string, price decimal.Decimal)
}

// PriceProvider supplies the current tradable price for a ticker, in
// the ticker's native quote currency, used by the Supervisor to price
// candidates before handing them to the Trade Executor (spec.md §4.7
// step 8). A concrete financial-data transport is an out-of-scope
// external collaborator (spec.md §6).
type PriceProvider interface {
	GetPrice(ctx context.Context, ticker string) (price decimal.Decimal, currency string, err error)
}

// PriceRegistry maps price-feed names to factory functions, mirroring
// Registry below for the same out-of-scope-transport reason.
var PriceRegistry = map[string]func(configJSON []byte) (PriceProvider, error){}

// NewPriceProvider looks up a registered PriceProvider factory by name.
func NewPriceProvider(name string, configJSON []byte) (PriceProvider, error) {
	factory, ok := PriceRegistry[name]
	if !ok {
		return nil, fmt.Errorf("broker: unknown price provider %q, registered: %v", name, registeredPriceNames())
	}
	return factory(configJSON)
}

func registeredPriceNames() []string {
	names := make([]string, 0, len(PriceRegistry))
	for name := range PriceRegistry {
		names = append(names, name)
	}
	return names
}

// Registry maps broker names to factory functions, generalized from the
// teacher's broker.Registry pattern.
var Registry = map[string]func(configJSON []byte) (Broker, error){}

// New creates a broker instance by name using the registry.
func New(name string, configJSON []byte) (Broker, error) {
	factory, ok := Registry[name]
	if !ok {
		return nil, fmt.Errorf("broker: unknown broker %q, registered: %v", name, registeredNames())
	}
	return factory(configJSON)
}

func registeredNames() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	return names
}
