package smc

import (
	"testing"

	"mt5-smc-bot/internal/terminal"
)

// biasBars builds a 17-bar structure with swing highs at bars 3 (105) and
// 10 (106) and swing lows at bars 7 (95) and 13 (96), then appends four
// tail bars supplied by the caller.
func biasBars(tail []terminal.Bar) []terminal.Bar {
	highs := []float64{100, 101, 102, 105, 102, 101, 100, 99, 100, 101, 106, 101, 100, 99, 100, 101, 102}
	lows := []float64{98, 99, 100, 103, 100, 99, 98, 95, 98, 99, 104, 99, 98, 96, 98, 99, 100}

	bars := make([]terminal.Bar, 0, len(highs)+len(tail))
	for i := range highs {
		bars = append(bars, terminal.Bar{
			Open:  lows[i] + 0.5,
			High:  highs[i],
			Low:   lows[i],
			Close: highs[i] - 0.5,
		})
	}
	return append(bars, tail...)
}

func TestDetectBiasLongOnly(t *testing.T) {
	bars := biasBars([]terminal.Bar{
		{Open: 102, High: 107, Low: 101, Close: 106.5},
		{Open: 106.5, High: 108, Low: 106, Close: 107.5},
		{Open: 107.5, High: 109, Low: 107, Close: 108.5},
		{Open: 108.5, High: 110.5, Low: 108, Close: 110}, // close above swing high 106
	})

	if bias := DetectBias(bars, 3); bias != BiasLongOnly {
		t.Errorf("got %s, want LONG_ONLY", bias)
	}
}

func TestDetectBiasShortOnly(t *testing.T) {
	bars := biasBars([]terminal.Bar{
		{Open: 99, High: 100, Low: 94, Close: 94.5},
		{Open: 94.5, High: 95, Low: 93, Close: 93.5},
		{Open: 93.5, High: 94, Low: 92, Close: 92.5},
		{Open: 92.5, High: 93, Low: 89.5, Close: 90}, // close below swing low 96
	})

	if bias := DetectBias(bars, 3); bias != BiasShortOnly {
		t.Errorf("got %s, want SHORT_ONLY", bias)
	}
}

func TestDetectBiasNeutralInsideRange(t *testing.T) {
	bars := biasBars([]terminal.Bar{
		{Open: 100, High: 101, Low: 99, Close: 100.5},
		{Open: 100.5, High: 101.5, Low: 99.5, Close: 100},
		{Open: 100, High: 101, Low: 99, Close: 100.5},
		{Open: 100.5, High: 101, Low: 99.5, Close: 100}, // between 96 and 106
	})

	if bias := DetectBias(bars, 3); bias != BiasNeutral {
		t.Errorf("got %s, want NEUTRAL", bias)
	}
}

func TestDetectBiasInsufficientData(t *testing.T) {
	if bias := DetectBias(rangeBars(8), 3); bias != BiasNeutral {
		t.Errorf("short series should default NEUTRAL, got %s", bias)
	}
	if bias := DetectBias(nil, 3); bias != BiasNeutral {
		t.Errorf("empty series should default NEUTRAL, got %s", bias)
	}
}

func TestBiasConfirms(t *testing.T) {
	cases := []struct {
		bias   Bias
		dir    Direction
		expect bool
	}{
		{BiasNeutral, Bullish, true},
		{BiasNeutral, Bearish, true},
		{BiasLongOnly, Bullish, true},
		{BiasLongOnly, Bearish, false},
		{BiasShortOnly, Bearish, true},
		{BiasShortOnly, Bullish, false},
	}

	for _, c := range cases {
		if got := c.bias.Confirms(c.dir); got != c.expect {
			t.Errorf("%s.Confirms(%s) = %v, want %v", c.bias, c.dir, got, c.expect)
		}
	}
}
