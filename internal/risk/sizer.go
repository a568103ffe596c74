package risk

import (
	"errors"
	"fmt"
	"math"

	"mt5-smc-bot/internal/terminal"
)

// Sizing errors
var (
	ErrInvalidDirection    = errors.New("order direction must be BUY or SELL")
	ErrStopTooTight        = errors.New("stop distance below minimum, too noisy to size")
	ErrStopInverted        = errors.New("stop is not on the protective side of entry")
	ErrRiskCeilingExceeded = errors.New("minimum lot would exceed the risk ceiling")
	ErrInvalidAccountState = errors.New("account balance must be positive")
	ErrMalformedQuote      = errors.New("quote has no usable point size")
)

// SizerConfig is the immutable parameter set for one sizing call. Callers
// construct it per scenario instead of reading ambient globals.
type SizerConfig struct {
	RiskPercent            float64 // percent of balance risked per trade
	MaxRiskPercentOverride float64 // hard ceiling once the lot floor kicks in
	RewardMultiple         float64 // take-profit distance as a multiple of stop distance
	NoiseBufferPoints      float64 // stop offset beyond the sweep level, in points
	MinStopPoints          float64 // fixed floor for the stop distance, in points
	MinLotSize             float64 // broker minimum volume
}

// DefaultSizerConfig mirrors the production parameter set: 1.5% risk with a
// 2.5% ceiling, 3:1 reward, a 10-point noise buffer and a 50-point stop floor.
func DefaultSizerConfig() SizerConfig {
	return SizerConfig{
		RiskPercent:            1.5,
		MaxRiskPercentOverride: 2.5,
		RewardMultiple:         3.0,
		NoiseBufferPoints:      10,
		MinStopPoints:          50,
		MinLotSize:             0.01,
	}
}

// OrderPlan is a fully sized order candidate ready for dispatch.
type OrderPlan struct {
	Symbol       string
	Side         string // "BUY" or "SELL"
	EntryPrice   float64
	StopLoss     float64
	TakeProfit   float64
	Lots         float64
	StopDistance float64
	RiskAmount   float64 // currency at risk with the final lot size
	RiskPercent  float64 // actual risk as a percent of balance
	Commission   float64 // estimated round-trip commission
}

// BuildOrderPlan converts a sweep level plus live quote and account state into
// concrete order parameters.
//
// The stop sits a noise buffer beyond the swept liquidity level, below it for
// longs and above it for shorts. A stop distance under max(point floor,
// 2x spread) is a hard reject, not an adjustment; so are a stop landing on
// the wrong side of entry and a quote with no point size. The lot size is derived from
// the configured risk percent, snapped to the broker volume step and floored
// at the minimum lot; if that floor pushes actual risk above the override
// ceiling the candidate is rejected rather than silently over-risked.
func BuildOrderPlan(symbol, side string, sweepLevel float64, tick *terminal.Tick, balance float64, cfg SizerConfig) (*OrderPlan, error) {
	if side != "BUY" && side != "SELL" {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidDirection, side)
	}
	if balance <= 0 {
		return nil, fmt.Errorf("%w: got %.2f", ErrInvalidAccountState, balance)
	}

	point := tick.Point
	if point <= 0 {
		return nil, fmt.Errorf("%w: point %.8f on %s", ErrMalformedQuote, point, symbol)
	}
	buffer := cfg.NoiseBufferPoints * point
	minDist := math.Max(cfg.MinStopPoints*point, 2*tick.Spread())

	var entry, stop float64
	if side == "BUY" {
		entry = tick.Ask
		stop = sweepLevel - buffer
	} else {
		entry = tick.Bid
		stop = sweepLevel + buffer
	}

	stopDist := entry - stop
	if side == "SELL" {
		stopDist = stop - entry
	}
	if stopDist <= 0 {
		return nil, fmt.Errorf("%w: stop %.5f against entry %.5f on a %s", ErrStopInverted, stop, entry, side)
	}
	if stopDist < minDist {
		return nil, fmt.Errorf("%w: distance %.5f < minimum %.5f", ErrStopTooTight, stopDist, minDist)
	}

	contractSize := tick.ContractSize
	if contractSize <= 0 {
		contractSize = 100000
	}

	riskAmount := balance * cfg.RiskPercent / 100
	rawLots := riskAmount / (stopDist * contractSize)
	lots := snapToStep(rawLots, tick.VolumeStep)
	if lots < cfg.MinLotSize {
		lots = cfg.MinLotSize
	}

	actualRisk := lots * stopDist * contractSize
	actualRiskPercent := actualRisk / balance * 100
	if actualRiskPercent > cfg.MaxRiskPercentOverride {
		return nil, fmt.Errorf("%w: %.3f%% > %.3f%% at %.2f lots",
			ErrRiskCeilingExceeded, actualRiskPercent, cfg.MaxRiskPercentOverride, lots)
	}

	var target float64
	if side == "BUY" {
		target = entry + stopDist*cfg.RewardMultiple
	} else {
		target = entry - stopDist*cfg.RewardMultiple
	}

	return &OrderPlan{
		Symbol:       symbol,
		Side:         side,
		EntryPrice:   entry,
		StopLoss:     stop,
		TakeProfit:   target,
		Lots:         lots,
		StopDistance: stopDist,
		RiskAmount:   actualRisk,
		RiskPercent:  actualRiskPercent,
		Commission:   EstimateCommission(lots*contractSize*entry, symbol),
	}, nil
}

// snapToStep rounds a raw volume to the broker's volume step.
func snapToStep(lots, step float64) float64 {
	if step <= 0 {
		step = 0.01
	}
	return math.Round(lots/step) * step
}
