package broker

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func TestTradeExecutor_FallsBackOnUnpricedCandidate(t *testing.T) {
	pb := NewPaperBroker(d("10000"))
	pb.RecordPrice("BBB", d("100"))
	executor := NewTradeExecutor(pb, nil)

	candidates := []RankedCandidate{
		{Ticker: "AAA", PriceLocalCcy: d("0"), AllocationPct: d("60")},
		{Ticker: "BBB", PriceLocalCcy: d("100"), AllocationPct: d("40")},
	}

	summary := executor.Execute(context.Background(), candidates, d("10000"), false)
	if len(summary.Bought) != 1 || summary.Bought[0].Ticker != "BBB" {
		t.Fatalf("expected BBB bought, got %+v", summary.Bought)
	}
	if len(summary.Failed) != 1 || summary.Failed[0].Ticker != "AAA" {
		t.Fatalf("expected AAA failed on price, got %+v", summary.Failed)
	}
}

func TestTradeExecutor_StopsWhenBudgetAllocated(t *testing.T) {
	pb := NewPaperBroker(d("100"))
	pb.RecordPrice("AAA", d("10"))
	pb.RecordPrice("BBB", d("10"))
	executor := NewTradeExecutor(pb, nil)

	candidates := []RankedCandidate{
		{Ticker: "AAA", PriceLocalCcy: d("10"), AllocationPct: d("100")},
		{Ticker: "BBB", PriceLocalCcy: d("10"), AllocationPct: d("50")},
	}

	summary := executor.Execute(context.Background(), candidates, d("100"), false)
	if len(summary.Bought) != 1 {
		t.Fatalf("expected exactly one buy once budget exhausted, got %+v", summary.Bought)
	}
	if !summary.TotalSpent.Equal(d("100")) {
		t.Fatalf("expected full spend of 100, got %s", summary.TotalSpent)
	}
}

// TestTradeExecutor_SplitsBudgetByAllocationPct exercises the formula
// from spec.md §4.5 step 3 directly: each candidate gets
// AllocationPct% of the effective budget, not the whole remaining
// balance, and every one of a set of fractional allocations summing to
// 100% fills. It also never calls PaperBroker.RecordPrice itself,
// proving the Trade Executor threads each candidate's price through on
// its own via the PriceSettable path.
func TestTradeExecutor_SplitsBudgetByAllocationPct(t *testing.T) {
	pb := NewPaperBroker(d("1000"))
	executor := NewTradeExecutor(pb, nil)

	candidates := []RankedCandidate{
		{Ticker: "AAA", PriceLocalCcy: d("10"), AllocationPct: d("30")},
		{Ticker: "BBB", PriceLocalCcy: d("20"), AllocationPct: d("50")},
		{Ticker: "CCC", PriceLocalCcy: d("5"), AllocationPct: d("20")},
	}

	summary := executor.Execute(context.Background(), candidates, d("1000"), false)
	if len(summary.Failed) != 0 {
		t.Fatalf("expected every candidate to fill, failed: %+v", summary.Failed)
	}
	if len(summary.Bought) != 3 {
		t.Fatalf("expected all 3 candidates bought, got %+v", summary.Bought)
	}
	if !summary.TotalSpent.Equal(d("1000")) {
		t.Fatalf("expected full budget spent, got %s", summary.TotalSpent)
	}

	want := map[string]decimal.Decimal{"AAA": d("300"), "BBB": d("500"), "CCC": d("200")}
	for _, bought := range summary.Bought {
		expected, ok := want[string(bought.Ticker)]
		if !ok {
			t.Fatalf("unexpected ticker bought: %s", bought.Ticker)
		}
		if !bought.AmountSpent.Equal(expected) {
			t.Fatalf("%s: expected allocation-sized spend %s, got %s", bought.Ticker, expected, bought.AmountSpent)
		}
	}
}

func TestTradeExecutor_ContinuesPastUnresolvableTicker(t *testing.T) {
	pb := NewPaperBroker(d("10000"))
	pb.RecordPrice("BBB", d("50"))
	broker := &unresolvableBroker{Broker: pb, unresolvable: "AAA"}
	executor := NewTradeExecutor(broker, nil)

	candidates := []RankedCandidate{
		{Ticker: "AAA", PriceLocalCcy: d("20"), AllocationPct: d("50")},
		{Ticker: "BBB", PriceLocalCcy: d("50"), AllocationPct: d("50")},
	}

	summary := executor.Execute(context.Background(), candidates, d("10000"), false)
	if len(summary.Bought) != 1 || summary.Bought[0].Ticker != "BBB" {
		t.Fatalf("expected BBB bought despite AAA being unresolvable, got %+v / %+v", summary.Bought, summary.Failed)
	}
}

func TestTradeExecutor_EmptyCandidateListYieldsEmptySummary(t *testing.T) {
	pb := NewPaperBroker(d("10000"))
	executor := NewTradeExecutor(pb, nil)

	summary := executor.Execute(context.Background(), nil, d("10000"), true)
	if len(summary.Bought) != 0 || len(summary.Failed) != 0 {
		t.Fatalf("expected no activity, got %+v", summary)
	}
	if !summary.IsReal {
		t.Fatal("expected IsReal to be carried through")
	}
}

// unresolvableBroker wraps a Broker and forces ResolveInstrument to miss
// for one ticker, to exercise the executor's skip-and-continue path.
type unresolvableBroker struct {
	Broker
	unresolvable string
}

func (u *unresolvableBroker) ResolveInstrument(ctx context.Context, ticker string) (string, bool, error) {
	if ticker == u.unresolvable {
		return "", false, nil
	}
	return u.Broker.ResolveInstrument(ctx, ticker)
}
