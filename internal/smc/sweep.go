package smc

import "mt5-smc-bot/internal/terminal"

// SweepEvent records a liquidity sweep (stop hunt): a wick beyond a rolling
// extreme that closes back inside the prior range.
type SweepEvent struct {
	BarIndex      int
	Direction     Direction
	ViolatedLevel float64
}

// DetectLiquiditySweeps scans the series for stop hunts. For each bar i the
// rolling extreme is taken over [i-lookback, i-1], excluding the current bar.
// A bullish sweep wicks below the rolling low and closes back above it; a
// bearish sweep is the mirror on the rolling high. A bar registers at most
// one direction. The first `lookback` bars carry no signal.
//
// The result is aligned to the input: events[i] is the sweep at bar i or nil.
func DetectLiquiditySweeps(bars []terminal.Bar, lookback int) []*SweepEvent {
	n := len(bars)
	events := make([]*SweepEvent, n)
	if lookback < 1 || n <= lookback {
		return events
	}

	for i := lookback; i < n; i++ {
		lowestLow := bars[i-lookback].Low
		highestHigh := bars[i-lookback].High
		for j := i - lookback + 1; j < i; j++ {
			if bars[j].Low < lowestLow {
				lowestLow = bars[j].Low
			}
			if bars[j].High > highestHigh {
				highestHigh = bars[j].High
			}
		}

		// Bearish takes precedence on the degenerate bar that wicks through
		// both extremes; a bar never registers both directions.
		switch {
		case bars[i].High > highestHigh && bars[i].Close < highestHigh:
			events[i] = &SweepEvent{BarIndex: i, Direction: Bearish, ViolatedLevel: highestHigh}
		case bars[i].Low < lowestLow && bars[i].Close > lowestLow:
			events[i] = &SweepEvent{BarIndex: i, Direction: Bullish, ViolatedLevel: lowestLow}
		}
	}

	return events
}
