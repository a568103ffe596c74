package smc

import (
	"reflect"
	"testing"

	"mt5-smc-bot/internal/terminal"
)

// setupScenarioBars builds a 35-bar series carrying a complete bullish
// setup: 30 range bars, a stop hunt at bar 30, a displacement candle at
// bar 31, an FVG forming at bar 32, and two drift bars that leave the gap
// unmitigated.
func setupScenarioBars() []terminal.Bar {
	bars := rangeBars(35)
	bars[30] = terminal.Bar{Open: 99.6, High: 100.2, Low: 98.5, Close: 99.9}   // sweep
	bars[31] = terminal.Bar{Open: 99.9, High: 103.1, Low: 99.8, Close: 103.0}  // displacement
	bars[32] = terminal.Bar{Open: 103.3, High: 104.0, Low: 103.2, Close: 103.8} // FVG bar
	bars[33] = terminal.Bar{Open: 103.8, High: 104.0, Low: 103.0, Close: 103.6}
	bars[34] = terminal.Bar{Open: 103.6, High: 104.1, Low: 103.4, Close: 103.9}
	return bars
}

func TestFindSetupBullish(t *testing.T) {
	bars := setupScenarioBars()

	setup := FindSetup(bars, DefaultSetupParams())
	if setup == nil {
		t.Fatal("expected a composed setup")
	}

	if setup.Direction != Bullish {
		t.Errorf("got direction %s, want BULLISH", setup.Direction)
	}
	if setup.FVG.FormationIndex != 32 {
		t.Errorf("got FVG at bar %d, want 32", setup.FVG.FormationIndex)
	}
	if setup.FVG.Top != 103.2 || setup.FVG.Bottom != 100.2 {
		t.Errorf("got gap %.2f/%.2f, want 103.20/100.20", setup.FVG.Top, setup.FVG.Bottom)
	}
	if setup.Sweep.BarIndex != 30 {
		t.Errorf("got sweep at bar %d, want 30", setup.Sweep.BarIndex)
	}
	if setup.SweepLevel != 98.5 {
		t.Errorf("got sweep level %.2f, want 98.50 (wick low of the sweep bar)", setup.SweepLevel)
	}
	if setup.EntryPrice != 103.9 {
		t.Errorf("got entry %.2f, want 103.90 (latest close)", setup.EntryPrice)
	}
	if !setup.DisplacementFound {
		t.Error("displacement candle at bar 31 should be found")
	}
	if !setup.Inducement.Found || !setup.Inducement.Swept {
		t.Errorf("inducement should be found and swept, got %+v", setup.Inducement)
	}
	// The range plateau marks swing highs at 100.6, so the displacement
	// close at 103.0 is itself a bullish change of character.
	if setup.CHoCH == nil || *setup.CHoCH != Bullish {
		t.Errorf("structure shift should be BULLISH, got %v", setup.CHoCH)
	}
}

// TestFindSetupDeterminism verifies the composer is a pure function:
// repeated calls on identical input return identical results.
func TestFindSetupDeterminism(t *testing.T) {
	bars := setupScenarioBars()
	params := DefaultSetupParams()

	first := FindSetup(bars, params)
	for i := 0; i < 10; i++ {
		again := FindSetup(bars, params)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("call %d diverged: %+v vs %+v", i, first, again)
		}
	}
}

// TestFindSetupInsufficientData verifies the composer abstains below
// sweepLookback+10 bars.
func TestFindSetupInsufficientData(t *testing.T) {
	if setup := FindSetup(rangeBars(29), DefaultSetupParams()); setup != nil {
		t.Errorf("29 bars with lookback 20 should abstain, got %+v", setup)
	}
	if setup := FindSetup(nil, DefaultSetupParams()); setup != nil {
		t.Errorf("empty series should abstain, got %+v", setup)
	}
}

// TestFindSetupSkipsMitigatedFVG verifies a gap whose midpoint was revisited
// never composes.
func TestFindSetupSkipsMitigatedFVG(t *testing.T) {
	bars := setupScenarioBars()
	// Trade back through the gap midpoint (101.7) after formation.
	bars[33] = terminal.Bar{Open: 103.8, High: 103.9, Low: 101.5, Close: 102.2}

	if setup := FindSetup(bars, DefaultSetupParams()); setup != nil {
		t.Errorf("mitigated gap should not compose, got %+v", setup)
	}
}

// TestFindSetupRequiresMatchingSweep verifies a gap with no same-direction
// sweep nearby is skipped.
func TestFindSetupRequiresMatchingSweep(t *testing.T) {
	bars := setupScenarioBars()
	// Neutralize the stop hunt: the wick no longer undercuts the range.
	bars[30] = terminal.Bar{Open: 99.6, High: 100.2, Low: 99.5, Close: 99.9}

	if setup := FindSetup(bars, DefaultSetupParams()); setup != nil {
		t.Errorf("setup without a matching sweep should not compose, got %+v", setup)
	}
}

// TestFindSetupDisplacementIsAdvisory verifies a missing displacement does
// not veto the setup, only annotates it.
func TestFindSetupDisplacementIsAdvisory(t *testing.T) {
	bars := setupScenarioBars()
	// Shrink the momentum candle's body below the ATR threshold while
	// keeping the gap geometry (high stays 103.1).
	bars[31] = terminal.Bar{Open: 102.6, High: 103.1, Low: 99.8, Close: 103.0}

	setup := FindSetup(bars, DefaultSetupParams())
	if setup == nil {
		t.Fatal("setup should still compose without displacement")
	}
	if setup.DisplacementFound {
		t.Error("displacement should be reported as not found")
	}
}

func BenchmarkFindSetup(b *testing.B) {
	bars := setupScenarioBars()
	params := DefaultSetupParams()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		FindSetup(bars, params)
	}
}
