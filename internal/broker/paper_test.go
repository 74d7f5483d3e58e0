package broker

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestPaperBroker_InitialFunds(t *testing.T) {
	pb := NewPaperBroker(d("500000"))
	ctx := context.Background()

	funds, err := pb.GetFunds(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !funds.AvailableCash.Equal(d("500000")) {
		t.Errorf("expected 500000, got %s", funds.AvailableCash)
	}
}

func TestPaperBroker_BuyReducesCash(t *testing.T) {
	pb := NewPaperBroker(d("500000"))
	ctx := context.Background()
	pb.RecordPrice("RELIANCE", d("2500"))

	result, err := pb.PlaceMarketOrder(ctx, "RELIANCE", OrderSideBuy, d("25000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != OrderStatusFilled {
		t.Errorf("expected filled, got %s: %s", result.Status, result.Message)
	}
	if !result.FilledQty.Equal(d("10")) {
		t.Errorf("expected qty 10, got %s", result.FilledQty)
	}

	funds, _ := pb.GetFunds(ctx)
	if !funds.AvailableCash.Equal(d("475000")) {
		t.Errorf("expected 475000, got %s", funds.AvailableCash)
	}
}

func TestPaperBroker_SellIncreasesCash(t *testing.T) {
	pb := NewPaperBroker(d("500000"))
	ctx := context.Background()

	pb.RecordPrice("TCS", d("3500"))
	pb.PlaceMarketOrder(ctx, "TCS", OrderSideBuy, d("17500"))

	pb.RecordPrice("TCS", d("3600"))
	result, err := pb.PlaceMarketOrder(ctx, "TCS", OrderSideSell, d("18000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != OrderStatusFilled {
		t.Errorf("expected filled, got %s: %s", result.Status, result.Message)
	}

	funds, _ := pb.GetFunds(ctx)
	expected := d("500000").Sub(d("17500")).Add(d("18000"))
	if !funds.AvailableCash.Equal(expected) {
		t.Errorf("expected %s, got %s", expected, funds.AvailableCash)
	}
}

func TestPaperBroker_RejectsInsufficientFunds(t *testing.T) {
	pb := NewPaperBroker(d("1000"))
	ctx := context.Background()
	pb.RecordPrice("RELIANCE", d("2500"))

	result, err := pb.PlaceMarketOrder(ctx, "RELIANCE", OrderSideBuy, d("25000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != OrderStatusRejected {
		t.Errorf("expected rejected, got %s", result.Status)
	}
}

func TestPaperBroker_RejectsInsufficientHoldings(t *testing.T) {
	pb := NewPaperBroker(d("500000"))
	ctx := context.Background()
	pb.RecordPrice("TCS", d("3500"))

	result, err := pb.PlaceMarketOrder(ctx, "TCS", OrderSideSell, d("35000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != OrderStatusRejected {
		t.Errorf("expected rejected, got %s", result.Status)
	}
}

func TestPaperBroker_HoldingsTrackWeightedAverage(t *testing.T) {
	pb := NewPaperBroker(d("500000"))
	ctx := context.Background()

	pb.RecordPrice("INFY", d("1500"))
	pb.PlaceMarketOrder(ctx, "INFY", OrderSideBuy, d("30000"))

	pb.RecordPrice("INFY", d("1600"))
	pb.PlaceMarketOrder(ctx, "INFY", OrderSideBuy, d("16000"))

	holdings, err := pb.GetHoldings(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(holdings) != 1 {
		t.Fatalf("expected 1 holding, got %d", len(holdings))
	}
	if !holdings[0].Quantity.Equal(d("30")) {
		t.Errorf("expected qty 30, got %s", holdings[0].Quantity)
	}
	wantAvg := d("1500").Mul(d("20")).Add(d("1600").Mul(d("10"))).Div(d("30"))
	if !holdings[0].AveragePrice.Equal(wantAvg) {
		t.Errorf("expected avg price %s, got %s", wantAvg, holdings[0].AveragePrice)
	}
}

func TestPaperBroker_PlaceOrderWithoutRecordedPriceErrors(t *testing.T) {
	pb := NewPaperBroker(d("500000"))
	ctx := context.Background()

	_, err := pb.PlaceMarketOrder(ctx, "UNKNOWN", OrderSideBuy, d("1000"))
	if err == nil {
		t.Fatal("expected error for unrecorded price")
	}
}

func TestPaperBroker_ResolveInstrumentAlwaysOK(t *testing.T) {
	pb := NewPaperBroker(d("500000"))
	instrument, ok, err := pb.ResolveInstrument(context.Background(), "AAPL")
	if err != nil || !ok || instrument != "AAPL" {
		t.Fatalf("expected AAPL/true/nil, got %s/%v/%v", instrument, ok, err)
	}
}
