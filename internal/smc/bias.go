package smc

import "mt5-smc-bot/internal/terminal"

// Bias is the higher-timeframe trading mode derived from structure breaks.
type Bias string

const (
	BiasLongOnly  Bias = "LONG_ONLY"
	BiasShortOnly Bias = "SHORT_ONLY"
	BiasNeutral   Bias = "NEUTRAL"
)

// Confirms reports whether a setup direction is allowed under this bias.
// NEUTRAL places no directional restriction.
func (b Bias) Confirms(d Direction) bool {
	switch b {
	case BiasNeutral:
		return true
	case BiasLongOnly:
		return d == Bullish
	case BiasShortOnly:
		return d == Bearish
	default:
		return false
	}
}

// DetectBias computes the higher-timeframe directional filter from a break
// of structure: BULLISH (LONG_ONLY) when the latest close is above the most
// recent swing high, BEARISH (SHORT_ONLY) below the most recent swing low,
// NEUTRAL otherwise. The series needs at least swingLookback*3 bars and two
// confirmed swings on each side; anything less is NEUTRAL.
func DetectBias(bars []terminal.Bar, swingLookback int) Bias {
	if swingLookback < 1 {
		swingLookback = 1
	}
	n := len(bars)
	if n < swingLookback*3 {
		return BiasNeutral
	}

	swings := DetectSwingPoints(bars, swingLookback)

	var highs, lows []float64
	for i := 0; i < n; i++ {
		if swings.HasHigh(i) {
			highs = append(highs, swings.Highs[i])
		}
		if swings.HasLow(i) {
			lows = append(lows, swings.Lows[i])
		}
	}
	if len(highs) < 2 || len(lows) < 2 {
		return BiasNeutral
	}

	lastClose := bars[n-1].Close
	switch {
	case lastClose > highs[len(highs)-1]:
		return BiasLongOnly
	case lastClose < lows[len(lows)-1]:
		return BiasShortOnly
	default:
		return BiasNeutral
	}
}
