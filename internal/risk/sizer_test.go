package risk

import (
	"errors"
	"math"
	"testing"

	"mt5-smc-bot/internal/terminal"
)

func eurusdTick() *terminal.Tick {
	return &terminal.Tick{
		Symbol:       "EURUSDm",
		Bid:          1.09984,
		Ask:          1.10000,
		Point:        0.00001,
		Digits:       5,
		ContractSize: 100000,
		VolumeStep:   0.01,
	}
}

// TestBuildOrderPlanSmallAccount covers the canonical small-account case:
// balance 130 at 1.5% risk over a 20-pip stop floors to the minimum lot and
// lands at about 1.54% actual risk.
func TestBuildOrderPlanSmallAccount(t *testing.T) {
	tick := eurusdTick()
	cfg := DefaultSizerConfig()

	// Sweep at 1.0981 minus the 10-point buffer puts the stop at 1.0980,
	// 20 pips under the 1.1000 ask.
	plan, err := BuildOrderPlan("EURUSDm", "BUY", 1.0981, tick, 130, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if plan.Lots != 0.01 {
		t.Errorf("got %.4f lots, want 0.01 (raw 0.00975 floored to minimum)", plan.Lots)
	}
	if math.Abs(plan.StopDistance-0.0020) > 1e-9 {
		t.Errorf("got stop distance %.6f, want 0.002000", plan.StopDistance)
	}
	if math.Abs(plan.RiskAmount-2.0) > 1e-6 {
		t.Errorf("got risk amount %.4f, want 2.00", plan.RiskAmount)
	}
	if plan.RiskPercent < 1.53 || plan.RiskPercent > 1.55 {
		t.Errorf("got actual risk %.4f%%, want about 1.538%%", plan.RiskPercent)
	}
	if math.Abs(plan.StopLoss-1.0980) > 1e-9 {
		t.Errorf("got stop %.5f, want 1.09800", plan.StopLoss)
	}
	if math.Abs(plan.TakeProfit-1.1060) > 1e-9 {
		t.Errorf("got target %.5f, want 1.10600 (3:1)", plan.TakeProfit)
	}
}

func TestBuildOrderPlanSellMirrors(t *testing.T) {
	tick := eurusdTick()

	// Sweep at 1.10184 plus the buffer puts the stop 20 pips above the bid.
	plan, err := BuildOrderPlan("EURUSDm", "SELL", 1.10184, tick, 130, DefaultSizerConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if plan.EntryPrice != tick.Bid {
		t.Errorf("short entries fill at the bid, got %.5f", plan.EntryPrice)
	}
	if plan.StopLoss <= plan.EntryPrice {
		t.Errorf("short stop %.5f must sit above entry %.5f", plan.StopLoss, plan.EntryPrice)
	}
	if plan.TakeProfit >= plan.EntryPrice {
		t.Errorf("short target %.5f must sit below entry %.5f", plan.TakeProfit, plan.EntryPrice)
	}
}

// TestBuildOrderPlanRiskCeiling verifies the lot floor never silently
// over-risks: when the minimum lot implies more risk than the override
// ceiling allows, the candidate is rejected.
func TestBuildOrderPlanRiskCeiling(t *testing.T) {
	cfg := DefaultSizerConfig()
	cfg.MaxRiskPercentOverride = 1.5 // actual risk comes out at ~1.538%

	_, err := BuildOrderPlan("EURUSDm", "BUY", 1.0981, eurusdTick(), 130, cfg)
	if !errors.Is(err, ErrRiskCeilingExceeded) {
		t.Fatalf("got %v, want ErrRiskCeilingExceeded", err)
	}
}

// TestBuildOrderPlanStopTooTight verifies a stop under max(point floor,
// 2x spread) is a hard reject, never widened.
func TestBuildOrderPlanStopTooTight(t *testing.T) {
	// Sweep just 2 pips under the ask; min distance is 50 points.
	_, err := BuildOrderPlan("EURUSDm", "BUY", 1.0999, eurusdTick(), 130, DefaultSizerConfig())
	if !errors.Is(err, ErrStopTooTight) {
		t.Fatalf("got %v, want ErrStopTooTight", err)
	}
}

func TestBuildOrderPlanWideSpreadRaisesFloor(t *testing.T) {
	tick := eurusdTick()
	tick.Bid = 1.09960 // spread 0.0004, so the floor becomes 0.0008

	_, err := BuildOrderPlan("EURUSDm", "BUY", 1.0994, tick, 130, DefaultSizerConfig())
	if !errors.Is(err, ErrStopTooTight) {
		t.Fatalf("70-point stop under an 80-point floor should reject, got %v", err)
	}
}

// TestBuildOrderPlanRejectsInvertedStop verifies a sweep level on the wrong
// side of the quote never produces a plan whose stop sits past the target.
func TestBuildOrderPlanRejectsInvertedStop(t *testing.T) {
	// A long off a sweep level above the ask puts the stop over entry.
	_, err := BuildOrderPlan("EURUSDm", "BUY", 1.1050, eurusdTick(), 130, DefaultSizerConfig())
	if !errors.Is(err, ErrStopInverted) {
		t.Fatalf("got %v, want ErrStopInverted", err)
	}

	_, err = BuildOrderPlan("EURUSDm", "SELL", 1.0950, eurusdTick(), 130, DefaultSizerConfig())
	if !errors.Is(err, ErrStopInverted) {
		t.Fatalf("short mirror: got %v, want ErrStopInverted", err)
	}
}

func TestBuildOrderPlanRejectsBrokenQuote(t *testing.T) {
	for _, point := range []float64{0, -0.00001} {
		tick := eurusdTick()
		tick.Point = point
		_, err := BuildOrderPlan("EURUSDm", "BUY", 1.0981, tick, 130, DefaultSizerConfig())
		if !errors.Is(err, ErrMalformedQuote) {
			t.Errorf("point %.5f: got %v, want ErrMalformedQuote", point, err)
		}
	}
}

func TestBuildOrderPlanInvalidDirection(t *testing.T) {
	for _, side := range []string{"", "HOLD", "buy", "LONG"} {
		_, err := BuildOrderPlan("EURUSDm", side, 1.0981, eurusdTick(), 130, DefaultSizerConfig())
		if !errors.Is(err, ErrInvalidDirection) {
			t.Errorf("side %q: got %v, want ErrInvalidDirection", side, err)
		}
	}
}

func TestBuildOrderPlanBadBalance(t *testing.T) {
	for _, balance := range []float64{0, -50} {
		_, err := BuildOrderPlan("EURUSDm", "BUY", 1.0981, eurusdTick(), balance, DefaultSizerConfig())
		if !errors.Is(err, ErrInvalidAccountState) {
			t.Errorf("balance %.2f: got %v, want ErrInvalidAccountState", balance, err)
		}
	}
}
