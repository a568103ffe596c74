package smc

import "mt5-smc-bot/internal/terminal"

// DetectCHoCH flags change-of-character bars: a close breaking above the
// most recent swing high (bullish shift) or below the most recent swing low
// (bearish shift). Structure levels carry forward from the last confirmed
// swing as of the previous bar.
//
// The result is aligned to the input: shifts[i] is the shift at bar i or nil.
func DetectCHoCH(bars []terminal.Bar, swingLookback int) []*Direction {
	n := len(bars)
	shifts := make([]*Direction, n)
	swings := DetectSwingPoints(bars, swingLookback)

	lastHigh, lastLow := none(), none()
	for i := 0; i < n; i++ {
		if !isNone(lastLow) && bars[i].Close < lastLow {
			d := Bearish
			shifts[i] = &d
		} else if !isNone(lastHigh) && bars[i].Close > lastHigh {
			d := Bullish
			shifts[i] = &d
		}

		if swings.HasHigh(i) {
			lastHigh = swings.Highs[i]
		}
		if swings.HasLow(i) {
			lastLow = swings.Lows[i]
		}
	}

	return shifts
}

// LatestCHoCH returns the most recent structure shift in the series, if any.
func LatestCHoCH(bars []terminal.Bar, swingLookback int) (Direction, int, bool) {
	shifts := DetectCHoCH(bars, swingLookback)
	for i := len(shifts) - 1; i >= 0; i-- {
		if shifts[i] != nil {
			return *shifts[i], i, true
		}
	}
	return "", -1, false
}
