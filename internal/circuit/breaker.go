// Package circuit implements the daily drawdown circuit breaker that halts
// new entries after excessive losses.
package circuit

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// BreakerState represents the circuit breaker state
type BreakerState string

const (
	StateClosed BreakerState = "closed" // normal operation
	StateOpen   BreakerState = "open"   // entries halted until the next day
)

// BreakerConfig holds circuit breaker configuration
type BreakerConfig struct {
	Enabled              bool    `json:"enabled"`
	MaxDailyLossPercent  float64 `json:"max_daily_loss_percent"` // realized daily loss % that trips
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"` // losing trades in a row that trip
}

// DefaultBreakerConfig returns safe defaults
func DefaultBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		Enabled:              true,
		MaxDailyLossPercent:  5.0,
		MaxConsecutiveLosses: 5,
	}
}

// Breaker halts entries after a drawdown. A trip is an explicit decision to
// stop trading, not a crash: the open state clears on the next UTC calendar
// day, and all counters reset with it.
type Breaker struct {
	mu                sync.RWMutex
	config            *BreakerConfig
	logger            zerolog.Logger
	state             BreakerState
	consecutiveLosses int
	dailyLossPercent  float64
	tripTime          time.Time
	tripReason        string
	currentDay        time.Time
	onTrip            func(reason string)
	now               func() time.Time // injectable for tests
}

// NewBreaker creates a new circuit breaker
func NewBreaker(config *BreakerConfig, logger zerolog.Logger) *Breaker {
	if config == nil {
		config = DefaultBreakerConfig()
	}
	b := &Breaker{
		config: config,
		logger: logger.With().Str("component", "CircuitBreaker").Logger(),
		state:  StateClosed,
		now:    time.Now,
	}
	b.currentDay = b.today()
	return b
}

// OnTrip sets the callback invoked when the breaker trips.
func (b *Breaker) OnTrip(handler func(reason string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTrip = handler
}

// CanTrade reports whether entries are allowed. The reason string names the
// violated limit when they are not.
func (b *Breaker) CanTrade() (bool, string) {
	if !b.config.Enabled {
		return true, ""
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetIfNewDay()

	if b.state == StateOpen {
		return false, fmt.Sprintf("circuit breaker open until next day (reason: %s)", b.tripReason)
	}
	return true, ""
}

// RecordTrade folds a realized result, as a percent of balance, into the
// breaker's counters and trips it when a limit is crossed.
func (b *Breaker) RecordTrade(pnlPercent float64) {
	if !b.config.Enabled {
		return
	}
	if math.IsNaN(pnlPercent) || math.IsInf(pnlPercent, 0) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetIfNewDay()

	if pnlPercent < 0 {
		b.consecutiveLosses++
		b.dailyLossPercent += -pnlPercent
	} else {
		b.consecutiveLosses = 0
	}

	b.checkAndTrip()
}

// SeedDailyLoss primes the daily loss accumulator, as a percent of balance,
// from losses realized before the process started. The consecutive-loss
// streak is unknown across a restart and stays untouched. Seeding past the
// limit trips the breaker immediately.
func (b *Breaker) SeedDailyLoss(lossPercent float64) {
	if !b.config.Enabled || lossPercent <= 0 || math.IsNaN(lossPercent) || math.IsInf(lossPercent, 0) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetIfNewDay()
	b.dailyLossPercent += lossPercent
	b.checkAndTrip()
}

// checkAndTrip trips the breaker when a limit is crossed. Callers must hold
// the write lock.
func (b *Breaker) checkAndTrip() {
	if b.state == StateOpen {
		return
	}

	var reason string
	if b.consecutiveLosses >= b.config.MaxConsecutiveLosses {
		reason = fmt.Sprintf("consecutive losses: %d", b.consecutiveLosses)
	} else if b.dailyLossPercent >= b.config.MaxDailyLossPercent {
		reason = fmt.Sprintf("daily loss: %.2f%%", b.dailyLossPercent)
	}
	if reason == "" {
		return
	}

	b.state = StateOpen
	b.tripTime = b.now()
	b.tripReason = reason
	b.logger.Warn().Str("reason", reason).Msg("circuit breaker tripped, entries halted until next day")

	if b.onTrip != nil {
		go b.onTrip(reason)
	}
}

// resetIfNewDay clears the breaker on the first touch of a new UTC calendar
// day. Callers must hold the write lock.
func (b *Breaker) resetIfNewDay() {
	today := b.today()
	if !today.After(b.currentDay) {
		return
	}

	if b.state == StateOpen {
		b.logger.Info().Str("previous_reason", b.tripReason).Msg("new calendar day, circuit breaker resumed")
	}
	b.state = StateClosed
	b.consecutiveLosses = 0
	b.dailyLossPercent = 0
	b.tripReason = ""
	b.currentDay = today
}

// ForceReset manually closes the breaker.
func (b *Breaker) ForceReset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.consecutiveLosses = 0
	b.dailyLossPercent = 0
	b.tripReason = ""
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetIfNewDay()
	return b.state
}

// Stats returns a snapshot for the status API.
func (b *Breaker) Stats() map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return map[string]interface{}{
		"state":              string(b.state),
		"consecutive_losses": b.consecutiveLosses,
		"daily_loss_percent": b.dailyLossPercent,
		"trip_reason":        b.tripReason,
		"trip_time":          b.tripTime,
	}
}

func (b *Breaker) today() time.Time {
	return b.now().UTC().Truncate(24 * time.Hour)
}
