package smc

import "testing"

func TestInducementFoundAndSwept(t *testing.T) {
	bars := rangeBars(27)
	// Swing trough at bar 20; a deeper wick at bar 25 (too close to the
	// series end to be classified itself) sweeps it before the FVG bar 26.
	bars[20].Low = 98.8
	bars[25].Low = 98.3
	bars[25].Close = 99.9

	swings := DetectSwingPoints(bars, 2)
	info := DetectInducement(bars, swings, 26, Bullish, 8)

	if !info.Found {
		t.Fatal("expected an internal swing low inside the lookback window")
	}
	if info.Level != 98.8 {
		t.Errorf("got level %.2f, want 98.80", info.Level)
	}
	if !info.Swept {
		t.Error("level should be marked swept by the deeper wick at bar 25")
	}
}

func TestInducementFoundNotSwept(t *testing.T) {
	bars := rangeBars(30)
	bars[22].Low = 98.8

	swings := DetectSwingPoints(bars, 2)
	info := DetectInducement(bars, swings, 26, Bullish, 8)

	if !info.Found {
		t.Fatal("expected an internal swing low inside the lookback window")
	}
	if info.Swept {
		t.Error("nothing traded below the level; swept should be false")
	}
}

func TestInducementBearishMirror(t *testing.T) {
	bars := rangeBars(27)
	bars[21].High = 101.4
	bars[25].High = 101.9
	bars[25].Close = 100.2

	swings := DetectSwingPoints(bars, 2)
	info := DetectInducement(bars, swings, 26, Bearish, 8)

	if !info.Found {
		t.Fatal("expected an internal swing high inside the lookback window")
	}
	if info.Level != 101.4 {
		t.Errorf("got level %.2f, want 101.40", info.Level)
	}
	if !info.Swept {
		t.Error("level should be marked swept by the higher wick at bar 25")
	}
}

// TestInducementInsufficientHistory verifies the empty result when fewer
// than lookback bars precede the FVG.
func TestInducementInsufficientHistory(t *testing.T) {
	bars := rangeBars(30)
	swings := DetectSwingPoints(bars, 2)

	info := DetectInducement(bars, swings, 5, Bullish, 8)
	if info.Found || info.Swept {
		t.Errorf("got %+v, want empty result", info)
	}
}
