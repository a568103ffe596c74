package smc

import "mt5-smc-bot/internal/terminal"

// FVG is a fair value gap: a three-bar price imbalance later treated as an
// entry zone. Top is always above Bottom regardless of direction.
type FVG struct {
	FormationIndex int
	Direction      Direction
	Top            float64
	Bottom         float64
	Midpoint       float64
}

// DetectFVGs scans every bar i >= 2 for a three-bar imbalance. A bullish gap
// forms when low[i] > high[i-2] (top = low[i], bottom = high[i-2]); a bearish
// gap when high[i] < low[i-2] (top = low[i-2], bottom = high[i]). An exact
// touch is no gap. At most one FVG forms per bar.
//
// The result is aligned to the input: gaps[i] is the FVG formed at bar i or nil.
func DetectFVGs(bars []terminal.Bar) []*FVG {
	n := len(bars)
	gaps := make([]*FVG, n)

	for i := 2; i < n; i++ {
		switch {
		case bars[i].Low > bars[i-2].High:
			top, bottom := bars[i].Low, bars[i-2].High
			gaps[i] = &FVG{
				FormationIndex: i,
				Direction:      Bullish,
				Top:            top,
				Bottom:         bottom,
				Midpoint:       bottom + (top-bottom)/2,
			}
		case bars[i].High < bars[i-2].Low:
			top, bottom := bars[i-2].Low, bars[i].High
			gaps[i] = &FVG{
				FormationIndex: i,
				Direction:      Bearish,
				Top:            top,
				Bottom:         bottom,
				Midpoint:       bottom + (top-bottom)/2,
			}
		}
	}

	return gaps
}

// IsFVGMitigated reports whether price has revisited the gap's midpoint
// (consequent encroachment) on any bar strictly after formation. A bullish
// gap is mitigated the first time a later low trades at or below the
// midpoint; a bearish gap when a later high trades at or above it. The scan
// covers the full remaining series, so mitigation is monotone: extending the
// series can only turn false into true, never the reverse.
func IsFVGMitigated(bars []terminal.Bar, fvg *FVG) bool {
	if fvg == nil {
		return false
	}
	for i := fvg.FormationIndex + 1; i < len(bars); i++ {
		if fvg.Direction == Bullish && bars[i].Low <= fvg.Midpoint {
			return true
		}
		if fvg.Direction == Bearish && bars[i].High >= fvg.Midpoint {
			return true
		}
	}
	return false
}
