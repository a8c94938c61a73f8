package marketdata

import (
	"context"
	"errors"
	"testing"

	"github.com/stockunlock/stockunlock/internal/indicator"
)

// stubClient serves canned data with optional per-call failures.
type stubClient struct {
	quote     *Quote
	quoteErr  error
	closes    []float64
	seriesErr error
}

func (s *stubClient) GetQuote(_ context.Context, _ string) (*Quote, error) {
	if s.quoteErr != nil {
		return nil, s.quoteErr
	}
	return s.quote, nil
}

func (s *stubClient) GetDailyCloses(_ context.Context, _ string, _ int) ([]float64, error) {
	if s.seriesErr != nil {
		return nil, s.seriesErr
	}
	return s.closes, nil
}

func uptrend(n int) []float64 {
	closes := make([]float64, n)
	price := 100.0
	for i := range closes {
		closes[i] = price
		price += 0.5
	}
	return closes
}

func TestAssembleFullRecord(t *testing.T) {
	client := &stubClient{
		quote: &Quote{
			Symbol:     "AAPL",
			Name:       "Apple Inc",
			Price:      231.5,
			WeekHigh52: 237.2,
			WeekLow52:  164.1,
			MarketCap:  3.5e12,
		},
		closes: uptrend(indicator.OffsetOneYear + 1),
	}
	a := NewAssembler(client, 0)

	got, err := a.Assemble(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}

	if got.Quote.Price != 231.5 || got.Quote.MarketCap != 3.5e12 {
		t.Errorf("quote fields not carried: %+v", got.Quote)
	}
	ind := got.Indicators
	if ind.SMA50 == nil || ind.SMA200 == nil || ind.RSI14 == nil {
		t.Fatal("expected SMA50/SMA200/RSI14 for a full-year series")
	}
	if *ind.RSI14 != 100 {
		t.Errorf("RSI of monotonic uptrend = %.2f, want 100", *ind.RSI14)
	}
	if ind.Return1Y == nil || *ind.Return1Y <= 0 {
		t.Errorf("expected positive 1y return, got %v", ind.Return1Y)
	}
}

func TestAssembleShortHistoryKeepsAbsence(t *testing.T) {
	client := &stubClient{
		quote:  &Quote{Symbol: "NEWIPO", Price: 42},
		closes: uptrend(30),
	}
	a := NewAssembler(client, 0)

	got, err := a.Assemble(context.Background(), "NEWIPO")
	if err != nil {
		t.Fatalf("Assemble() error: %v", err)
	}
	if got.Indicators.SMA200 != nil || got.Indicators.Return1Y != nil {
		t.Error("long-window indicators must be absent, not zero, for a 30-day series")
	}
	if got.Indicators.RSI14 == nil {
		t.Error("RSI14 should still compute from 30 closes")
	}
}

func TestAssembleQuoteFailureIsAtomic(t *testing.T) {
	client := &stubClient{
		quoteErr: errors.New("connection refused"),
		closes:   uptrend(300),
	}
	a := NewAssembler(client, 0)

	got, err := a.Assemble(context.Background(), "AAPL")
	if !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("error = %v, want ErrDataUnavailable", err)
	}
	if got != nil {
		t.Error("no partial record may survive a failed quote fetch")
	}
}

func TestAssembleSeriesFailureIsAtomic(t *testing.T) {
	client := &stubClient{
		quote:     &Quote{Symbol: "AAPL", Price: 231.5},
		seriesErr: ErrSymbolNotFound,
	}
	a := NewAssembler(client, 0)

	if _, err := a.Assemble(context.Background(), "AAPL"); !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("error = %v, want ErrDataUnavailable", err)
	}
}

func TestAssembleEmptySeriesUnavailable(t *testing.T) {
	client := &stubClient{
		quote:  &Quote{Symbol: "AAPL", Price: 231.5},
		closes: nil,
	}
	a := NewAssembler(client, 0)

	if _, err := a.Assemble(context.Background(), "AAPL"); !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("error = %v, want ErrDataUnavailable for empty series", err)
	}
}
