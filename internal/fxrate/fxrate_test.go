package fxrate

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

type fakeClient struct {
	rate decimal.Decimal
	err  error
}

func (f fakeClient) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	return f.rate, f.err
}

func TestConvert_SameCurrencySkipsClient(t *testing.T) {
	got, err := Convert(context.Background(), fakeClient{err: errors.New("should not be called")}, decimal.NewFromInt(100), "USD", "USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected 100, got %s", got)
	}
}

func TestConvert_AppliesRate(t *testing.T) {
	got, err := Convert(context.Background(), fakeClient{rate: decimal.NewFromFloat(0.92)}, decimal.NewFromInt(100), "USD", "EUR")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(decimal.NewFromFloat(92)) {
		t.Errorf("expected 92, got %s", got)
	}
}

func TestConvert_PropagatesClientError(t *testing.T) {
	_, err := Convert(context.Background(), fakeClient{err: errors.New("rate unavailable")}, decimal.NewFromInt(100), "USD", "EUR")
	if err == nil {
		t.Fatal("expected error")
	}
}
