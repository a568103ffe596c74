package smc

import "mt5-smc-bot/internal/terminal"

// InducementInfo describes an internal swing point swept shortly before an
// FVG formed: the retail trap that precedes the institutional move.
type InducementInfo struct {
	Found bool
	Level float64
	Swept bool
}

// DetectInducement examines the `lookback` bars preceding the FVG at
// fvgIndex. For a bullish setup the internal level is the most recent swing
// low inside [fvgIndex-lookback, fvgIndex); it counts as swept when any bar
// between that swing and the FVG bar (inclusive) trades strictly below it.
// The bearish case mirrors on swing highs. With fewer than `lookback` bars
// of history the result is empty.
func DetectInducement(bars []terminal.Bar, swings SwingPoints, fvgIndex int, direction Direction, lookback int) InducementInfo {
	if fvgIndex < lookback || fvgIndex >= len(bars) {
		return InducementInfo{}
	}

	var level float64
	var levelIndex int
	var found bool

	if direction == Bullish {
		for j := fvgIndex - 1; j >= fvgIndex-lookback; j-- {
			if swings.HasLow(j) {
				level, levelIndex, found = swings.Lows[j], j, true
				break
			}
		}
	} else {
		for j := fvgIndex - 1; j >= fvgIndex-lookback; j-- {
			if swings.HasHigh(j) {
				level, levelIndex, found = swings.Highs[j], j, true
				break
			}
		}
	}

	if !found {
		return InducementInfo{}
	}

	swept := false
	for k := levelIndex; k <= fvgIndex; k++ {
		if direction == Bullish && bars[k].Low < level {
			swept = true
			break
		}
		if direction == Bearish && bars[k].High > level {
			swept = true
			break
		}
	}

	return InducementInfo{Found: true, Level: level, Swept: swept}
}
