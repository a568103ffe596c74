package smc

import "mt5-smc-bot/internal/terminal"

// SetupParams configures the composer and the detectors it runs. Parameter
// sets are plain values passed per call; nothing is read from globals.
type SetupParams struct {
	SweepLookback          int     // rolling-extreme window for sweep detection
	DisplacementThreshold  float64 // ATR multiplier for displacement bodies
	ATRPeriod              int     // displacement volatility baseline period
	SwingLookback          int     // swing confirmation bars each side
	InducementLookback     int     // bars before the FVG searched for the trap
	RecentBars             int     // how far back candidate FVGs are scanned
	SweepSearchBars        int     // bars before the FVG searched for a sweep
	DisplacementSearchBars int     // bars after the sweep searched for momentum
}

// DefaultSetupParams mirrors the production tuning of the strategy.
func DefaultSetupParams() SetupParams {
	return SetupParams{
		SweepLookback:          20,
		DisplacementThreshold:  1.5,
		ATRPeriod:              14,
		SwingLookback:          5,
		InducementLookback:     8,
		RecentBars:             10,
		SweepSearchBars:        5,
		DisplacementSearchBars: 3,
	}
}

// Setup is one ranked trade candidate: the most recent unmitigated imbalance
// with a provable stop-hunt precedent. It is computed fresh per scan, never
// mutated after construction, and consumed exactly once by the gate chain
// and sizing engine.
type Setup struct {
	Direction         Direction
	FVG               FVG
	Sweep             SweepEvent
	DisplacementFound bool
	Inducement        InducementInfo
	CHoCH             *Direction // latest structure shift in the series, advisory
	EntryPrice        float64    // latest close at composition time
	SweepLevel        float64    // wick extreme of the sweep bar
}

// FindSetup runs every detector over the series once and composes at most
// one setup:
//
//  1. Candidate FVGs are scanned from the most recent bar backward, bounded
//     to the last RecentBars bars and never past the SweepLookback floor.
//  2. Mitigated gaps are skipped permanently.
//  3. The gap needs a same-direction sweep within SweepSearchBars bars
//     immediately before it; the search walks backward so the sweep nearest
//     the FVG wins. No sweep, no setup from that gap.
//  4. Inducement is computed relative to the gap, displacement relative to
//     the matched sweep, and the latest structure shift rides along. All
//     three are advisory context and never disqualify.
//
// Returns nil when the series is shorter than SweepLookback+10 bars or no
// candidate survives. The function is pure: identical inputs always produce
// the identical setup.
func FindSetup(bars []terminal.Bar, p SetupParams) *Setup {
	n := len(bars)
	if n < p.SweepLookback+10 {
		return nil
	}

	swings := DetectSwingPoints(bars, p.SwingLookback)
	sweeps := DetectLiquiditySweeps(bars, p.SweepLookback)
	displacements := DetectDisplacement(bars, p.DisplacementThreshold, p.ATRPeriod)
	gaps := DetectFVGs(bars)

	var shift *Direction
	if dir, _, ok := LatestCHoCH(bars, p.SwingLookback); ok {
		shift = &dir
	}

	floor := n - p.RecentBars - 1
	if floor < p.SweepLookback {
		floor = p.SweepLookback
	}

	for i := n - 1; i > floor; i-- {
		fvg := gaps[i]
		if fvg == nil {
			continue
		}
		if IsFVGMitigated(bars, fvg) {
			continue
		}

		// Nearest same-direction sweep in the bars immediately before the gap.
		var sweep *SweepEvent
		for j := i - 1; j >= i-p.SweepSearchBars && j >= 0; j-- {
			if sweeps[j] != nil && sweeps[j].Direction == fvg.Direction {
				sweep = sweeps[j]
				break
			}
		}
		if sweep == nil {
			continue
		}

		inducement := DetectInducement(bars, swings, i, fvg.Direction, p.InducementLookback)

		displacementFound := false
		for k := sweep.BarIndex; k <= sweep.BarIndex+p.DisplacementSearchBars && k < n; k++ {
			if displacements[k] != nil && displacements[k].Direction == fvg.Direction {
				displacementFound = true
				break
			}
		}

		sweepLevel := bars[sweep.BarIndex].High
		if fvg.Direction == Bullish {
			sweepLevel = bars[sweep.BarIndex].Low
		}

		return &Setup{
			Direction:         fvg.Direction,
			FVG:               *fvg,
			Sweep:             *sweep,
			DisplacementFound: displacementFound,
			Inducement:        inducement,
			CHoCH:             shift,
			EntryPrice:        bars[n-1].Close,
			SweepLevel:        sweepLevel,
		}
	}

	return nil
}
