package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mt5-smc-bot/internal/smc"
	"mt5-smc-bot/internal/terminal"
)

type stubCompleter struct {
	reply string
	err   error
}

func (s *stubCompleter) Complete(context.Context, string, string) (string, error) {
	return s.reply, s.err
}

func TestApproverVerdicts(t *testing.T) {
	cases := []struct {
		name   string
		reply  string
		err    error
		expect Decision
	}{
		{"plain go", "GO", nil, DecisionGo},
		{"lowercase go", "go", nil, DecisionGo},
		{"whitespace go", "  GO\n", nil, DecisionGo},
		{"plain stop", "STOP", nil, DecisionStop},
		{"chatty reply", "I think GO because the sweep is clean", nil, DecisionStop},
		{"empty reply", "", nil, DecisionStop},
		{"transport error", "", errors.New("connection refused"), DecisionStop},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a := NewApprover(&stubCompleter{reply: c.reply, err: c.err}, true, zerolog.Nop())
			if got := a.Approve(context.Background(), "EURUSDm", "ctx"); got != c.expect {
				t.Errorf("got %s, want %s", got, c.expect)
			}
		})
	}
}

// TestApproverDisabledBypasses verifies the bypass switch auto-approves
// without touching the model.
func TestApproverDisabledBypasses(t *testing.T) {
	a := NewApprover(&stubCompleter{err: errors.New("must not be called")}, false, zerolog.Nop())
	if got := a.Approve(context.Background(), "EURUSDm", "ctx"); got != DecisionGo {
		t.Errorf("disabled approver should return GO, got %s", got)
	}
}

func TestBuildApprovalContext(t *testing.T) {
	bars := make([]terminal.Bar, 15)
	for i := range bars {
		bars[i] = terminal.Bar{
			Time:  time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * 15 * time.Minute).Unix(),
			Open:  1.10, High: 1.101, Low: 1.099, Close: 1.1005,
		}
	}
	setup := &smc.Setup{
		Direction:         smc.Bullish,
		FVG:               smc.FVG{FormationIndex: 12, Top: 1.1010, Bottom: 1.0990, Midpoint: 1.1000},
		Sweep:             smc.SweepEvent{BarIndex: 10, Direction: smc.Bullish, ViolatedLevel: 1.0985},
		DisplacementFound: true,
		Inducement:        smc.InducementInfo{Found: true, Swept: true},
		EntryPrice:        1.1005,
		SweepLevel:        1.0982,
	}

	got := BuildApprovalContext("EURUSDm", setup, smc.BiasLongOnly, bars)

	for _, want := range []string{
		"Pair: EURUSDm",
		"Setup Type: BULLISH",
		"HTF Bias: LONG_ONLY",
		"Sweep Level: 1.09820",
		"midpoint=1.10000",
		"Decision (GO/STOP)?",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("context missing %q:\n%s", want, got)
		}
	}

	// Only the most recent bars are included.
	if n := strings.Count(got, "O=1.10000"); n != contextSnapshotBars {
		t.Errorf("got %d snapshot bars, want %d", n, contextSnapshotBars)
	}
}
