package smc

import "mt5-smc-bot/internal/terminal"

// SwingPoints is a sparse overlay aligned to the input series. Highs[i]
// holds the swing-high price at bar i and Lows[i] the swing-low price,
// or NaN when bar i is not a swing of that kind. The first and last
// `lookback` bars are never classified (their window falls outside the
// series).
type SwingPoints struct {
	Highs []float64
	Lows  []float64
}

// HasHigh reports whether bar i is marked as a swing high.
func (sp SwingPoints) HasHigh(i int) bool {
	return i >= 0 && i < len(sp.Highs) && !isNone(sp.Highs[i])
}

// HasLow reports whether bar i is marked as a swing low.
func (sp SwingPoints) HasLow(i int) bool {
	return i >= 0 && i < len(sp.Lows) && !isNone(sp.Lows[i])
}

// LastHighBefore returns the most recent swing high strictly before bar i.
func (sp SwingPoints) LastHighBefore(i int) (price float64, index int, ok bool) {
	if i > len(sp.Highs) {
		i = len(sp.Highs)
	}
	for j := i - 1; j >= 0; j-- {
		if !isNone(sp.Highs[j]) {
			return sp.Highs[j], j, true
		}
	}
	return 0, -1, false
}

// LastLowBefore returns the most recent swing low strictly before bar i.
func (sp SwingPoints) LastLowBefore(i int) (price float64, index int, ok bool) {
	if i > len(sp.Lows) {
		i = len(sp.Lows)
	}
	for j := i - 1; j >= 0; j-- {
		if !isNone(sp.Lows[j]) {
			return sp.Lows[j], j, true
		}
	}
	return 0, -1, false
}

// DetectSwingPoints marks local price extrema. Bar i is a swing high when
// its high equals the maximum over the centered window [i-lookback,
// i+lookback]; the symmetric rule marks swing lows. Equality (not strict
// dominance) is required, so a flat plateau marks every bar sharing the
// extreme.
func DetectSwingPoints(bars []terminal.Bar, lookback int) SwingPoints {
	if lookback < 1 {
		lookback = 1
	}

	n := len(bars)
	sp := SwingPoints{
		Highs: make([]float64, n),
		Lows:  make([]float64, n),
	}
	for i := range sp.Highs {
		sp.Highs[i] = none()
		sp.Lows[i] = none()
	}

	for i := lookback; i < n-lookback; i++ {
		windowHigh := bars[i-lookback].High
		windowLow := bars[i-lookback].Low
		for j := i - lookback + 1; j <= i+lookback; j++ {
			if bars[j].High > windowHigh {
				windowHigh = bars[j].High
			}
			if bars[j].Low < windowLow {
				windowLow = bars[j].Low
			}
		}

		if bars[i].High == windowHigh {
			sp.Highs[i] = bars[i].High
		}
		if bars[i].Low == windowLow {
			sp.Lows[i] = bars[i].Low
		}
	}

	return sp
}
