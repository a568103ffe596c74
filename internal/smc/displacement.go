package smc

import (
	"math"

	"mt5-smc-bot/internal/terminal"
)

// DisplacementEvent records a high-momentum candle whose body exceeds a
// multiple of the volatility baseline.
type DisplacementEvent struct {
	BarIndex      int
	Direction     Direction
	BodySize      float64
	VolatilityRef float64 // ATR value the body was measured against
}

// DetectDisplacement flags candles whose open-to-close body is larger than
// threshold times the Wilder ATR over atrPeriod bars. Bars before the ATR
// has accumulated enough history carry no signal.
//
// The result is aligned to the input: events[i] is the displacement at bar i
// or nil.
func DetectDisplacement(bars []terminal.Bar, threshold float64, atrPeriod int) []*DisplacementEvent {
	n := len(bars)
	events := make([]*DisplacementEvent, n)
	if atrPeriod < 1 || n <= atrPeriod {
		return events
	}

	atr := wilderATR(bars, atrPeriod)

	for i := atrPeriod; i < n; i++ {
		if isNone(atr[i]) || atr[i] <= 0 {
			continue
		}
		body := bars[i].Body()
		if body <= threshold*atr[i] {
			continue
		}

		dir := Bearish
		if bars[i].Bullish() {
			dir = Bullish
		}
		events[i] = &DisplacementEvent{
			BarIndex:      i,
			Direction:     dir,
			BodySize:      body,
			VolatilityRef: atr[i],
		}
	}

	return events
}

// wilderATR computes the average true range with Wilder smoothing: the value
// at index period-1 seeds with a simple average of the first `period` true
// ranges, after which atr[i] = (atr[i-1]*(period-1) + tr[i]) / period.
// Earlier slots are NaN.
func wilderATR(bars []terminal.Bar, period int) []float64 {
	n := len(bars)
	atr := make([]float64, n)
	for i := range atr {
		atr[i] = none()
	}
	if n < period {
		return atr
	}

	tr := make([]float64, n)
	tr[0] = bars[0].High - bars[0].Low
	for i := 1; i < n; i++ {
		hl := bars[i].High - bars[i].Low
		hc := math.Abs(bars[i].High - bars[i-1].Close)
		lc := math.Abs(bars[i].Low - bars[i-1].Close)
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += tr[i]
	}
	atr[period-1] = sum / float64(period)
	for i := period; i < n; i++ {
		atr[i] = (atr[i-1]*float64(period-1) + tr[i]) / float64(period)
	}

	return atr
}
