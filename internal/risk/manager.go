package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Manager tracks account state shared across symbols within one scan cycle:
// balance, open position count and realized daily PnL. The scan loop updates
// it from terminal snapshots; gates read it.
type Manager struct {
	mu             sync.RWMutex
	cfg            *ManagerConfig
	logger         zerolog.Logger
	accountBalance float64
	openPositions  int
	dailyPnL       float64
	dailyReset     time.Time
}

// ManagerConfig bounds concurrent exposure and daily losses.
type ManagerConfig struct {
	MaxOpenPositions int     // maximum concurrent positions across all symbols
	MaxDailyDrawdown float64 // max daily loss percent before entries stop
}

func NewManager(cfg *ManagerConfig, logger zerolog.Logger) *Manager {
	return &Manager{
		cfg:        cfg,
		logger:     logger.With().Str("component", "RiskManager").Logger(),
		dailyReset: time.Now().UTC().Truncate(24 * time.Hour),
	}
}

// UpdateAccountBalance records the latest balance from the terminal snapshot.
func (m *Manager) UpdateAccountBalance(balance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accountBalance = balance
}

func (m *Manager) AccountBalance() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accountBalance
}

// SetOpenPositions overwrites the open-position count from a terminal
// snapshot. The terminal is the source of truth, not our own bookkeeping.
func (m *Manager) SetOpenPositions(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openPositions = n
}

func (m *Manager) OpenPositions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.openPositions
}

// CanOpenPosition checks exposure and daily drawdown. The reason string is
// empty when the answer is yes.
func (m *Manager) CanOpenPosition() (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.openPositions >= m.cfg.MaxOpenPositions {
		return false, fmt.Sprintf("max positions reached (%d/%d)", m.openPositions, m.cfg.MaxOpenPositions)
	}

	m.resetIfNewDay()
	if m.accountBalance > 0 {
		drawdownPercent := m.dailyPnL / m.accountBalance * 100
		if drawdownPercent <= -m.cfg.MaxDailyDrawdown {
			return false, fmt.Sprintf("daily drawdown limit reached (%.2f%%)", drawdownPercent)
		}
	}
	return true, ""
}

// RecordClosedPnL folds a reconciled close into the daily total.
func (m *Manager) RecordClosedPnL(pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetIfNewDay()
	m.dailyPnL += pnl
	m.logger.Info().Float64("pnl", pnl).Float64("daily_pnl", m.dailyPnL).Msg("closed PnL recorded")
}

// SeedDailyPnL overwrites the daily total with results realized before the
// process started, so a restart does not forget drawdown already incurred.
func (m *Manager) SeedDailyPnL(pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.resetIfNewDay()
	m.dailyPnL = pnl
	m.logger.Info().Float64("daily_pnl", pnl).Msg("daily PnL seeded from the ledger")
}

func (m *Manager) DailyPnL() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetIfNewDay()
	return m.dailyPnL
}

// resetIfNewDay zeroes the daily PnL on the first touch of a new UTC day.
// Callers must hold the write lock.
func (m *Manager) resetIfNewDay() {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if today.After(m.dailyReset) {
		m.dailyPnL = 0
		m.dailyReset = today
	}
}

// Metrics returns a snapshot for the status API.
func (m *Manager) Metrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	drawdownPercent := 0.0
	if m.accountBalance > 0 {
		drawdownPercent = m.dailyPnL / m.accountBalance * 100
	}

	return map[string]interface{}{
		"account_balance":        m.accountBalance,
		"daily_pnl":              m.dailyPnL,
		"daily_drawdown_percent": drawdownPercent,
		"open_positions":         m.openPositions,
		"max_positions":          m.cfg.MaxOpenPositions,
		"max_daily_drawdown":     m.cfg.MaxDailyDrawdown,
	}
}
