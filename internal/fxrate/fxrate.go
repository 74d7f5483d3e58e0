// Package fxrate defines the spot-rate collaborator the Supervisor uses
// to convert picks priced in a foreign currency into the account's
// budget currency before handing them to the Trade Executor.
//
// Grounded on original_source/src/orchestrator/supervisor.py's
// get_eur_usd_rate usage: when the instrument's quote currency differs
// from the budget currency, Convert computes price_local = price_foreign
// × rate, where rate is what the Client reports for converting the quote
// currency into the budget currency. The concrete HTTP transport is an
// out-of-scope external collaborator (spec.md §1); only the Client
// interface and the Convert helper live here.
package fxrate

import (
	"context"

	"github.com/shopspring/decimal"
)

// Client returns the spot rate to convert `from` into `to`.
type Client interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Convert converts amount from the `from` currency into `to`, fetching
// the spot rate from client. If from == to, it returns amount unchanged
// without calling the client.
func Convert(ctx context.Context, client Client, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	rate, err := client.Rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}
