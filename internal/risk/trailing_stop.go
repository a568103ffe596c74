package risk

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TrailingStep locks in profit once the open PnL reaches a multiple of the
// capital committed to the trade. Triggers are expressed as PnL multipliers
// so the ladder is symbol-agnostic.
type TrailingStep struct {
	TriggerPnLMultiplier float64
	NewSLPnLMultiplier   float64
}

// DefaultTrailingSteps is the production ladder, ordered from the highest
// trigger down so the first matching step is the deepest lock-in.
func DefaultTrailingSteps() []TrailingStep {
	return []TrailingStep{
		{4.00, 3.50},
		{3.50, 3.00},
		{3.00, 2.75},
		{2.75, 2.50},
		{2.50, 2.25},
		{2.25, 2.00},
		{2.00, 1.75},
		{1.75, 1.50},
		{1.50, 1.25},
		{1.25, 1.00},
		{1.00, 0.75},
		{0.75, 0.45},
		{0.50, 0.22},
		{0.25, 0.12},
		{0.12, 0.05},
		{0.06, 0.025},
	}
}

// TrailingPosition tracks one open trade through the ladder.
type TrailingPosition struct {
	Symbol          string
	Side            string // "BUY" or "SELL"
	EntryPrice      float64
	Capital         float64
	OrderSizeUSD    float64
	Commission      float64
	CurrentStopLoss float64
	AppliedTrigger  float64 // highest trigger multiplier already applied
	LastUpdate      time.Time
}

// StopUpdate is emitted when a position's stop should move.
type StopUpdate struct {
	Symbol      string
	OldStopLoss float64
	NewStopLoss float64
}

// TrailingStopManager walks open positions up the profit ladder. Stops only
// ever move in the profit direction.
type TrailingStopManager struct {
	mu        sync.RWMutex
	positions map[string]*TrailingPosition
	steps     []TrailingStep
	logger    zerolog.Logger
}

func NewTrailingStopManager(steps []TrailingStep, logger zerolog.Logger) *TrailingStopManager {
	if len(steps) == 0 {
		steps = DefaultTrailingSteps()
	}
	return &TrailingStopManager{
		positions: make(map[string]*TrailingPosition),
		steps:     steps,
		logger:    logger.With().Str("component", "TrailingStop").Logger(),
	}
}

// Track registers an open position with its initial stop.
func (tsm *TrailingStopManager) Track(symbol, side string, entryPrice, capital, orderSizeUSD, commission, stopLoss float64) {
	tsm.mu.Lock()
	defer tsm.mu.Unlock()

	tsm.positions[symbol] = &TrailingPosition{
		Symbol:          symbol,
		Side:            side,
		EntryPrice:      entryPrice,
		Capital:         capital,
		OrderSizeUSD:    orderSizeUSD,
		Commission:      commission,
		CurrentStopLoss: stopLoss,
		LastUpdate:      time.Now(),
	}
	tsm.logger.Info().Str("symbol", symbol).Str("side", side).
		Float64("entry", entryPrice).Float64("stop", stopLoss).Msg("position tracked")
}

// Forget drops a position from tracking after it closes.
func (tsm *TrailingStopManager) Forget(symbol string) {
	tsm.mu.Lock()
	defer tsm.mu.Unlock()
	delete(tsm.positions, symbol)
}

// UpdatePnL re-evaluates the ladder against the position's current open PnL.
// It returns a StopUpdate when the stop should move, nil otherwise.
func (tsm *TrailingStopManager) UpdatePnL(symbol string, currentPnL float64) *StopUpdate {
	tsm.mu.Lock()
	defer tsm.mu.Unlock()

	pos, ok := tsm.positions[symbol]
	if !ok {
		return nil
	}
	pos.LastUpdate = time.Now()

	if pos.Capital <= 0 {
		return nil
	}
	multiplier := currentPnL / pos.Capital

	for _, step := range tsm.steps {
		if multiplier < step.TriggerPnLMultiplier {
			continue
		}
		if step.TriggerPnLMultiplier <= pos.AppliedTrigger {
			return nil // already locked in at this rung or deeper
		}

		newStop, _, err := PriceAtPnL(pos.Capital*step.NewSLPnLMultiplier,
			pos.EntryPrice, pos.OrderSizeUSD, pos.Side, pos.Commission)
		if err != nil {
			tsm.logger.Error().Err(err).Str("symbol", symbol).Msg("trailing stop computation failed")
			return nil
		}

		oldStop := pos.CurrentStopLoss
		pos.CurrentStopLoss = newStop
		pos.AppliedTrigger = step.TriggerPnLMultiplier

		tsm.logger.Info().Str("symbol", symbol).
			Float64("pnl_multiplier", multiplier).
			Float64("old_stop", oldStop).Float64("new_stop", newStop).
			Msg("trailing stop advanced")

		return &StopUpdate{Symbol: symbol, OldStopLoss: oldStop, NewStopLoss: newStop}
	}
	return nil
}

// Position returns a copy of a tracked position.
func (tsm *TrailingStopManager) Position(symbol string) *TrailingPosition {
	tsm.mu.RLock()
	defer tsm.mu.RUnlock()

	pos, ok := tsm.positions[symbol]
	if !ok {
		return nil
	}
	cp := *pos
	return &cp
}

// CurrentStopLoss returns the tracked stop for a symbol.
func (tsm *TrailingStopManager) CurrentStopLoss(symbol string) (float64, bool) {
	tsm.mu.RLock()
	defer tsm.mu.RUnlock()

	if pos, ok := tsm.positions[symbol]; ok {
		return pos.CurrentStopLoss, true
	}
	return 0, false
}
