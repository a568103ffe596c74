package gates

import (
	"context"
	"fmt"
	"time"

	"mt5-smc-bot/internal/circuit"
	"mt5-smc-bot/internal/market"
	"mt5-smc-bot/internal/risk"
)

// TradeLedger is the slice of the trade store the gates read. Implementations
// should answer from the ledger of executed trades, not in-memory state.
type TradeLedger interface {
	LastEntryTime(ctx context.Context, symbol string) (time.Time, bool, error)
	HasTradedFingerprint(ctx context.Context, fingerprint string) (bool, error)
}

// SessionGate refuses symbols whose market is closed.
type SessionGate struct{}

func (SessionGate) Name() string { return "session" }

func (SessionGate) Check(_ context.Context, c *Candidate) (bool, string) {
	if !market.IsOpen(c.Symbol, c.Now) {
		return false, "market closed"
	}
	return true, ""
}

// MarginGate enforces the 500% margin-level rule: once margin is actually in
// use, the account's margin level must stay above the threshold. An account
// with zero margin in use has its full buying power and always passes.
type MarginGate struct {
	MinMarginLevel float64 // percent, typically 500
}

func (MarginGate) Name() string { return "margin" }

func (g MarginGate) Check(_ context.Context, c *Candidate) (bool, string) {
	if c.Account == nil {
		return false, "no account snapshot"
	}
	if c.Account.Margin > 0 && c.Account.MarginLevel < g.MinMarginLevel {
		return false, fmt.Sprintf("margin level %.1f%% below %.0f%%", c.Account.MarginLevel, g.MinMarginLevel)
	}
	return true, ""
}

// ExposureGate defers to the risk manager's position and drawdown limits.
type ExposureGate struct {
	Manager *risk.Manager
}

func (ExposureGate) Name() string { return "exposure" }

func (g ExposureGate) Check(_ context.Context, _ *Candidate) (bool, string) {
	return g.Manager.CanOpenPosition()
}

// CooldownGate refuses a symbol that traded too recently.
type CooldownGate struct {
	Ledger   TradeLedger
	Cooldown time.Duration
}

func (CooldownGate) Name() string { return "cooldown" }

func (g CooldownGate) Check(ctx context.Context, c *Candidate) (bool, string) {
	last, found, err := g.Ledger.LastEntryTime(ctx, c.Symbol)
	if err != nil {
		return false, fmt.Sprintf("ledger unavailable: %v", err)
	}
	if !found {
		return true, ""
	}
	if elapsed := c.Now.Sub(last); elapsed < g.Cooldown {
		return false, fmt.Sprintf("last entry %s ago, cooldown %s", elapsed.Round(time.Second), g.Cooldown)
	}
	return true, ""
}

// FingerprintGate refuses a setup whose fingerprint was already traded, so a
// still-unmitigated gap is not entered twice across cycles.
type FingerprintGate struct {
	Ledger TradeLedger
}

func (FingerprintGate) Name() string { return "fingerprint" }

func (g FingerprintGate) Check(ctx context.Context, c *Candidate) (bool, string) {
	traded, err := g.Ledger.HasTradedFingerprint(ctx, c.Fingerprint)
	if err != nil {
		return false, fmt.Sprintf("ledger unavailable: %v", err)
	}
	if traded {
		return false, fmt.Sprintf("duplicate setup %s", c.Fingerprint)
	}
	return true, ""
}

// BreakerGate defers to the daily drawdown circuit breaker.
type BreakerGate struct {
	Breaker *circuit.Breaker
}

func (BreakerGate) Name() string { return "breaker" }

func (g BreakerGate) Check(_ context.Context, _ *Candidate) (bool, string) {
	return g.Breaker.CanTrade()
}
