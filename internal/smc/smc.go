// Package smc implements the Smart Money Concepts detection engine:
// swing points, liquidity sweeps, displacement, fair value gaps, inducement,
// change of character, and the composer that stitches them into one trade setup.
//
// All detectors are pure functions over an immutable bar slice. They abstain
// (return no events) when the series is too short; insufficient history is
// never an error.
package smc

import "math"

// Direction is the directional classification shared by all detectors.
type Direction string

const (
	Bullish Direction = "BULLISH"
	Bearish Direction = "BEARISH"
)

// Opposite returns the inverse direction.
func (d Direction) Opposite() Direction {
	if d == Bullish {
		return Bearish
	}
	return Bullish
}

// none marks "no value" slots in sparse overlays aligned to a bar series.
func none() float64 { return math.NaN() }

func isNone(v float64) bool { return math.IsNaN(v) }
