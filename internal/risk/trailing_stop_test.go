package risk

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
)

func newTestTrailer() *TrailingStopManager {
	return NewTrailingStopManager(nil, zerolog.Nop())
}

func TestTrailingStopAdvancesUpLadder(t *testing.T) {
	tsm := newTestTrailer()
	// 10 capital at 200x leverage, entry 100, 1 USD round-trip commission.
	tsm.Track("EURUSDm", "BUY", 100, 10, 2000, 1, 99.5)

	// +26% of capital trips the 0.25 rung, locking in 0.12x.
	update := tsm.UpdatePnL("EURUSDm", 2.6)
	if update == nil {
		t.Fatal("expected a stop update at the 0.25 rung")
	}
	// PriceAtPnL(1.2, ...) with commission: 100 * (1 + 2.2/2000).
	if math.Abs(update.NewStopLoss-100.11) > 1e-9 {
		t.Errorf("got stop %.5f, want 100.11000", update.NewStopLoss)
	}

	// A wiggle inside the same rung must not re-fire.
	if again := tsm.UpdatePnL("EURUSDm", 2.7); again != nil {
		t.Errorf("same rung should not re-fire, got %+v", again)
	}

	// +52% trips the 0.50 rung: lock 0.22x, stop at 100 * (1 + 3.2/2000).
	update = tsm.UpdatePnL("EURUSDm", 5.2)
	if update == nil {
		t.Fatal("expected a stop update at the 0.50 rung")
	}
	if math.Abs(update.NewStopLoss-100.16) > 1e-9 {
		t.Errorf("got stop %.5f, want 100.16000", update.NewStopLoss)
	}

	if stop, ok := tsm.CurrentStopLoss("EURUSDm"); !ok || math.Abs(stop-100.16) > 1e-9 {
		t.Errorf("tracked stop should be 100.16, got %.5f (ok=%v)", stop, ok)
	}
}

func TestTrailingStopShortMovesDown(t *testing.T) {
	tsm := newTestTrailer()
	tsm.Track("EURUSDm", "SELL", 100, 10, 2000, 1, 100.5)

	update := tsm.UpdatePnL("EURUSDm", 2.6)
	if update == nil {
		t.Fatal("expected a stop update")
	}
	if update.NewStopLoss >= 100 {
		t.Errorf("short stop %.5f should lock in below entry", update.NewStopLoss)
	}
}

func TestTrailingStopIgnoresUnderwaterAndUnknown(t *testing.T) {
	tsm := newTestTrailer()
	tsm.Track("EURUSDm", "BUY", 100, 10, 2000, 1, 99.5)

	if update := tsm.UpdatePnL("EURUSDm", -3); update != nil {
		t.Errorf("losing position should not trail, got %+v", update)
	}
	if update := tsm.UpdatePnL("EURUSDm", 0.1); update != nil {
		t.Errorf("+1%% of capital is below the lowest rung, got %+v", update)
	}
	if update := tsm.UpdatePnL("GBPUSDm", 50); update != nil {
		t.Errorf("untracked symbol should return nil, got %+v", update)
	}
}

func TestTrailingStopForget(t *testing.T) {
	tsm := newTestTrailer()
	tsm.Track("EURUSDm", "BUY", 100, 10, 2000, 1, 99.5)
	tsm.Forget("EURUSDm")

	if pos := tsm.Position("EURUSDm"); pos != nil {
		t.Errorf("forgotten position should be gone, got %+v", pos)
	}
}
