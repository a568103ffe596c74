// Package gates holds the pre-trade checks a setup must clear before it is
// sized and dispatched. Each gate answers yes or no with a human-readable
// reason; the chain stops at the first refusal.
package gates

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"mt5-smc-bot/internal/terminal"
)

// Candidate is the trade under consideration, together with the account
// snapshot taken at the start of the scan cycle.
type Candidate struct {
	Symbol      string
	Side        string // "BUY" or "SELL"
	Fingerprint string
	Account     *terminal.Account
	Now         time.Time
}

// Gate is one pre-trade check. The reason string is empty when the gate
// passes.
type Gate interface {
	Name() string
	Check(ctx context.Context, c *Candidate) (bool, string)
}

// Chain runs gates in order and stops at the first refusal.
type Chain struct {
	gates  []Gate
	logger zerolog.Logger
}

func NewChain(logger zerolog.Logger, gates ...Gate) *Chain {
	return &Chain{
		gates:  gates,
		logger: logger.With().Str("component", "GateChain").Logger(),
	}
}

// Check returns true when every gate passes. On refusal the reason is
// prefixed with the refusing gate's name.
func (ch *Chain) Check(ctx context.Context, c *Candidate) (bool, string) {
	for _, g := range ch.gates {
		ok, reason := g.Check(ctx, c)
		if !ok {
			ch.logger.Info().Str("symbol", c.Symbol).Str("gate", g.Name()).
				Str("reason", reason).Msg("candidate rejected")
			return false, fmt.Sprintf("%s: %s", g.Name(), reason)
		}
	}
	return true, ""
}

// Fingerprint identifies a setup by its symbol and FVG midpoint rounded to
// 5 decimals, so the same imbalance is never traded twice.
func Fingerprint(symbol string, fvgMidpoint float64) string {
	return fmt.Sprintf("%s:%.5f", symbol, fvgMidpoint)
}
