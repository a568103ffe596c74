package llm

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Decision is the approver's binary verdict.
type Decision string

const (
	DecisionGo   Decision = "GO"
	DecisionStop Decision = "STOP"
)

// Completer is the slice of the LLM client the approver needs. Tests supply
// a deterministic stub.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Approver is the final sanity gate before dispatch. It sends the approval
// context to the model and parses a one-word verdict. Anything that is not
// exactly GO, including transport errors and malformed replies, is STOP:
// an unreachable or confused model must never wave a trade through.
type Approver struct {
	completer Completer
	enabled   bool
	logger    zerolog.Logger
}

func NewApprover(completer Completer, enabled bool, logger zerolog.Logger) *Approver {
	return &Approver{
		completer: completer,
		enabled:   enabled,
		logger:    logger.With().Str("component", "Approver").Logger(),
	}
}

// Approve returns the verdict for one approval context.
func (a *Approver) Approve(ctx context.Context, symbol, approvalContext string) Decision {
	if !a.enabled {
		a.logger.Debug().Str("symbol", symbol).Msg("approver disabled, auto-approving")
		return DecisionGo
	}

	reply, err := a.completer.Complete(ctx, approvalSystemPrompt, approvalContext)
	if err != nil {
		a.logger.Warn().Err(err).Str("symbol", symbol).Msg("approver unavailable, defaulting to STOP")
		return DecisionStop
	}

	decision := parseDecision(reply)
	a.logger.Info().Str("symbol", symbol).Str("decision", string(decision)).Msg("approver verdict")
	return decision
}

// parseDecision maps a model reply onto the binary verdict. Only an exact
// GO counts; everything else is STOP.
func parseDecision(reply string) Decision {
	if strings.ToUpper(strings.TrimSpace(reply)) == "GO" {
		return DecisionGo
	}
	return DecisionStop
}
