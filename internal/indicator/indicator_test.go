package indicator

import (
	"math"
	"testing"
)

// makeSeries generates a synthetic closing series starting at base and moving
// by step each day.
func makeSeries(n int, base, step float64) []float64 {
	closes := make([]float64, n)
	price := base
	for i := 0; i < n; i++ {
		closes[i] = price
		price += step
	}
	return closes
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMovingAverage(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6}
	got, ok := MovingAverage(closes, 3)
	if !ok {
		t.Fatal("MovingAverage reported absent for sufficient data")
	}
	if !almostEqual(got, 5) {
		t.Errorf("expected mean of last 3 closes = 5, got %.4f", got)
	}
}

func TestMovingAverageExactWindow(t *testing.T) {
	closes := []float64{2, 4, 6, 8}
	got, ok := MovingAverage(closes, 4)
	if !ok {
		t.Fatal("MovingAverage reported absent for series of exactly window length")
	}
	if !almostEqual(got, 5) {
		t.Errorf("expected arithmetic mean of whole series = 5, got %.4f", got)
	}
}

func TestMovingAverageInsufficientData(t *testing.T) {
	for n := 0; n < 5; n++ {
		if _, ok := MovingAverage(makeSeries(n, 100, 1), 5); ok {
			t.Errorf("MovingAverage(len=%d, window=5) should be absent", n)
		}
	}
}

func TestMovingAverageZeroWindow(t *testing.T) {
	if _, ok := MovingAverage([]float64{1, 2, 3}, 0); ok {
		t.Error("MovingAverage with window 0 should be absent")
	}
}

func TestRSIMonotonicUptrend(t *testing.T) {
	// No losses in the window: RSI is defined as exactly 100.
	closes := makeSeries(30, 100, 1.5)
	got, ok := RSI(closes, 14)
	if !ok {
		t.Fatal("RSI reported absent for sufficient data")
	}
	if got != 100 {
		t.Errorf("expected RSI 100 for monotonic uptrend, got %.4f", got)
	}
}

func TestRSIMonotonicDowntrend(t *testing.T) {
	closes := makeSeries(30, 200, -1.5)
	got, ok := RSI(closes, 14)
	if !ok {
		t.Fatal("RSI reported absent for sufficient data")
	}
	if got != 0 {
		t.Errorf("expected RSI 0 for monotonic downtrend, got %.4f", got)
	}
}

func TestRSISingleWindow(t *testing.T) {
	// 14 up-steps of 1 followed by a down-step of 1 inside the window:
	// avgGain = 13/14, avgLoss = 1/14 → RSI = 100 - 100/(1+13) = 92.857...
	closes := make([]float64, 0, 15)
	price := 100.0
	for i := 0; i < 14; i++ {
		closes = append(closes, price)
		price++
	}
	closes = append(closes, price-2) // one losing step

	got, ok := RSI(closes, 14)
	if !ok {
		t.Fatal("RSI reported absent for exactly period+1 closes")
	}
	want := 100 - 100/(1+13.0)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected single-window RSI %.6f, got %.6f", want, got)
	}
}

func TestRSIInsufficientData(t *testing.T) {
	if _, ok := RSI(makeSeries(14, 100, 1), 14); ok {
		t.Error("RSI needs period+1 closes; 14 closes should be absent")
	}
}

func TestRSIDefaultPeriod(t *testing.T) {
	closes := makeSeries(20, 100, 1)
	got, ok := RSI(closes, 0)
	if !ok {
		t.Fatal("RSI with default period reported absent")
	}
	if got != 100 {
		t.Errorf("expected RSI 100, got %.4f", got)
	}
}

func TestPercentReturn(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		offset int
		want   float64
		ok     bool
	}{
		{"up 10%", []float64{100, 105, 110}, 2, 10, true},
		{"down 10%", []float64{100, 95, 90}, 2, -10, true},
		{"flat", []float64{100, 120, 100}, 2, 0, true},
		{"series too short", []float64{100, 110}, 2, 0, false},
		{"zero past price", []float64{0, 50, 100}, 2, 0, false},
		{"zero offset", []float64{100, 110}, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PercentReturn(tt.closes, tt.offset)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && !almostEqual(got, tt.want) {
				t.Errorf("got %.4f, want %.4f", got, tt.want)
			}
		})
	}
}

func TestPercentReturnSignMatchesDirection(t *testing.T) {
	up := makeSeries(40, 100, 1)
	if got, ok := PercentReturn(up, OffsetOneMonth); !ok || got <= 0 {
		t.Errorf("expected positive return in uptrend, got %.4f (ok=%v)", got, ok)
	}
	down := makeSeries(40, 100, -1)
	if got, ok := PercentReturn(down, OffsetOneMonth); !ok || got >= 0 {
		t.Errorf("expected negative return in downtrend, got %.4f (ok=%v)", got, ok)
	}
}

func TestComputeFullHistory(t *testing.T) {
	closes := makeSeries(OffsetOneYear+1, 100, 0.5)
	set := Compute(closes)
	if set.SMA50 == nil || set.SMA200 == nil || set.RSI14 == nil {
		t.Fatal("expected all moving averages and RSI present for a full-year series")
	}
	if set.Return1M == nil || set.Return6M == nil || set.Return1Y == nil {
		t.Fatal("expected all period returns present for a full-year series")
	}
	if *set.Return1Y <= 0 {
		t.Errorf("expected positive 1y return in uptrend, got %.4f", *set.Return1Y)
	}
}

func TestComputeShortHistory(t *testing.T) {
	set := Compute(makeSeries(60, 100, 0.5))
	if set.SMA50 == nil || set.RSI14 == nil || set.Return1M == nil {
		t.Error("expected short-window indicators present for 60 closes")
	}
	if set.SMA200 != nil || set.Return6M != nil || set.Return1Y != nil {
		t.Error("expected long-window indicators absent for 60 closes")
	}
}
