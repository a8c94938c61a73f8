// Package indicator implements the technical indicators computed over a daily
// closing-price series, oldest first. Every function reports ok=false when the
// series is too short for the requested window — an absent value, not an error
// and not a zero.
package indicator

import (
	"github.com/stockunlock/stockunlock/pkg/models"
)

// Policy constants consumed by the assembler. The return offsets are nominal
// trading-day counts, not calendar-accurate.
const (
	SMAShortWindow = 50
	SMALongWindow  = 200
	RSIPeriod      = 14

	OffsetOneMonth  = 21
	OffsetSixMonths = 126
	OffsetOneYear   = 252
)

// MovingAverage returns the unweighted mean of the last window closes.
func MovingAverage(closes []float64, window int) (float64, bool) {
	if window <= 0 || len(closes) < window {
		return 0, false
	}
	sum := 0.0
	for _, c := range closes[len(closes)-window:] {
		sum += c
	}
	return sum / float64(window), true
}

// RSI returns the classical single-window Wilder RSI over the last period+1
// closes: gains and losses are averaged over the period steps once, with no
// exponential smoothing. A window with zero average loss is defined as 100.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 {
		period = RSIPeriod
	}
	if len(closes) < period+1 {
		return 0, false
	}

	recent := closes[len(closes)-period-1:]
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := recent[i] - recent[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), true
}

// PercentReturn returns the percent change between the latest close and the
// close offset trading days back. Absent when the series does not reach that
// far or the past close is zero.
func PercentReturn(closes []float64, offset int) (float64, bool) {
	n := len(closes)
	if offset <= 0 || n <= offset {
		return 0, false
	}
	latest := closes[n-1]
	past := closes[n-1-offset]
	if past == 0 {
		return 0, false
	}
	return (latest/past - 1) * 100, true
}

// Compute builds the full IndicatorSet for a closing series using the policy
// windows above. Fields that cannot be computed stay nil.
func Compute(closes []float64) models.IndicatorSet {
	var set models.IndicatorSet
	set.SMA50 = optional(MovingAverage(closes, SMAShortWindow))
	set.SMA200 = optional(MovingAverage(closes, SMALongWindow))
	set.RSI14 = optional(RSI(closes, RSIPeriod))
	set.Return1M = optional(PercentReturn(closes, OffsetOneMonth))
	set.Return6M = optional(PercentReturn(closes, OffsetSixMonths))
	set.Return1Y = optional(PercentReturn(closes, OffsetOneYear))
	return set
}

func optional(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}
