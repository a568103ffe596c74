// Package bot runs the scan loop: every interval it snapshots the account,
// reconciles closed trades, advances trailing stops, and scans each symbol
// for a fresh setup to size, approve and dispatch.
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mt5-smc-bot/internal/ai/llm"
	"mt5-smc-bot/internal/circuit"
	"mt5-smc-bot/internal/database"
	"mt5-smc-bot/internal/gates"
	"mt5-smc-bot/internal/market"
	"mt5-smc-bot/internal/notification"
	"mt5-smc-bot/internal/risk"
	"mt5-smc-bot/internal/smc"
	"mt5-smc-bot/internal/terminal"
)

// Terminal is the slice of the bridge client the bot uses. Tests stub it.
type Terminal interface {
	Bars(ctx context.Context, symbol, timeframe string, count int) ([]terminal.Bar, error)
	Tick(ctx context.Context, symbol string) (*terminal.Tick, error)
	Account(ctx context.Context) (*terminal.Account, error)
	Positions(ctx context.Context) ([]terminal.Position, error)
	Deal(ctx context.Context, ticket int64, from, to time.Time) (*terminal.Deal, error)
	SubmitOrder(ctx context.Context, req terminal.OrderRequest) (*terminal.OrderReceipt, error)
	ModifyPosition(ctx context.Context, ticket int64, stopLoss, takeProfit float64) error
}

// TradeStore is the slice of the ledger the bot writes and reconciles.
type TradeStore interface {
	HasOpenTradeInSymbol(ctx context.Context, symbol string) (bool, error)
	CreateTrade(ctx context.Context, trade *database.Trade) error
	CloseTrade(ctx context.Context, ticket int64, closeTime time.Time, closePrice, pnlNet, pnlGross float64, reason string) error
	GetOpenTrades(ctx context.Context) ([]*database.Trade, error)
}

// EntryCache records dispatched entries for the hot gate lookups. Optional.
type EntryCache interface {
	MarkEntry(ctx context.Context, symbol, fingerprint string, entryTime time.Time, cooldown time.Duration)
}

// Config holds the scan loop parameters.
type Config struct {
	Symbols        []string
	EntryTimeframe string // setups are composed on this timeframe
	BiasTimeframe  string // directional filter timeframe
	EntryBars      int    // candles fetched for the composer
	BiasBars       int    // candles fetched for the bias filter
	ScanInterval   time.Duration
	Cooldown       time.Duration // per-symbol re-entry cooldown
	Deviation      int           // max slippage in points
	DryRun         bool
	Setup          smc.SetupParams
	Sizer          risk.SizerConfig
}

// DefaultConfig returns the production scan parameters.
func DefaultConfig() Config {
	return Config{
		EntryTimeframe: terminal.TimeframeM15,
		BiasTimeframe:  terminal.TimeframeH4,
		EntryBars:      50,
		BiasBars:       100,
		ScanInterval:   time.Minute,
		Cooldown:       30 * time.Minute,
		Deviation:      20,
		Setup:          smc.DefaultSetupParams(),
		Sizer:          risk.DefaultSizerConfig(),
	}
}

// Bot drives the scan cycle and owns the order dispatch path.
type Bot struct {
	cfg         Config
	terminal    Terminal
	store       TradeStore
	cache       EntryCache
	chain       *gates.Chain
	approver    *llm.Approver
	riskManager *risk.Manager
	breaker     *circuit.Breaker
	trailing    *risk.TrailingStopManager
	notifier    *notification.Manager
	logger      zerolog.Logger

	mu          sync.RWMutex
	running     bool
	lastScan    time.Time
	scansTotal  int64
	setupsFound int64
	ordersSent  int64

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New wires the scan loop together. The cache may be nil.
func New(cfg Config, term Terminal, store TradeStore, cache EntryCache,
	chain *gates.Chain, approver *llm.Approver, riskManager *risk.Manager,
	breaker *circuit.Breaker, trailing *risk.TrailingStopManager,
	notifier *notification.Manager, logger zerolog.Logger) *Bot {
	return &Bot{
		cfg:         cfg,
		terminal:    term,
		store:       store,
		cache:       cache,
		chain:       chain,
		approver:    approver,
		riskManager: riskManager,
		breaker:     breaker,
		trailing:    trailing,
		notifier:    notifier,
		logger:      logger.With().Str("component", "Bot").Logger(),
		stopChan:    make(chan struct{}),
	}
}

// Start runs the scan loop until Stop is called or the context is cancelled.
// The first cycle runs immediately.
func (b *Bot) Start(ctx context.Context) {
	b.mu.Lock()
	b.running = true
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		ticker := time.NewTicker(b.cfg.ScanInterval)
		defer ticker.Stop()

		b.runCycle(ctx)
		for {
			select {
			case <-ticker.C:
				b.runCycle(ctx)
			case <-b.stopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	b.logger.Info().Strs("symbols", b.cfg.Symbols).
		Dur("interval", b.cfg.ScanInterval).Bool("dry_run", b.cfg.DryRun).
		Msg("scan loop started")
}

// Stop halts the scan loop and waits for the current cycle to finish.
func (b *Bot) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	b.mu.Unlock()

	close(b.stopChan)
	b.wg.Wait()
	b.logger.Info().Msg("scan loop stopped")
}

// runCycle executes one full scan cycle across all symbols.
func (b *Bot) runCycle(ctx context.Context) {
	cycleID := uuid.New().String()
	logger := b.logger.With().Str("cycle", cycleID[:8]).Logger()

	account, err := b.terminal.Account(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("account snapshot failed, skipping cycle")
		return
	}
	if account == nil {
		logger.Warn().Msg("terminal not logged in, skipping cycle")
		return
	}
	b.riskManager.UpdateAccountBalance(account.Balance)

	positions, err := b.terminal.Positions(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("position snapshot failed, skipping cycle")
		return
	}
	b.riskManager.SetOpenPositions(len(positions))

	b.reconcileCloses(ctx, positions, account.Balance, logger)
	b.advanceTrailingStops(ctx, positions, logger)

	for _, symbol := range b.cfg.Symbols {
		if err := b.scanSymbol(ctx, cycleID, symbol, account); err != nil {
			logger.Error().Err(err).Str("symbol", symbol).Msg("scan failed")
		}
	}

	b.mu.Lock()
	b.lastScan = time.Now()
	b.scansTotal++
	b.mu.Unlock()
}

// scanSymbol runs the full decision pipeline for one symbol: setup
// composition, bias filter, gate chain, approval, sizing, dispatch.
func (b *Bot) scanSymbol(ctx context.Context, cycleID, symbol string, account *terminal.Account) error {
	logger := b.logger.With().Str("symbol", symbol).Logger()
	now := time.Now().UTC()

	if !market.IsOpen(symbol, now) {
		return nil
	}

	hasOpen, err := b.store.HasOpenTradeInSymbol(ctx, symbol)
	if err != nil {
		return fmt.Errorf("ledger open-trade check: %w", err)
	}
	if hasOpen {
		return nil
	}

	biasBars, err := b.terminal.Bars(ctx, symbol, b.cfg.BiasTimeframe, b.cfg.BiasBars)
	if err != nil {
		return fmt.Errorf("bias bars: %w", err)
	}
	bias := smc.DetectBias(biasBars, b.cfg.Setup.SwingLookback)

	bars, err := b.terminal.Bars(ctx, symbol, b.cfg.EntryTimeframe, b.cfg.EntryBars)
	if err != nil {
		return fmt.Errorf("entry bars: %w", err)
	}

	setup := smc.FindSetup(bars, b.cfg.Setup)
	if setup == nil {
		return nil
	}

	b.mu.Lock()
	b.setupsFound++
	b.mu.Unlock()

	if !bias.Confirms(setup.Direction) {
		logger.Info().Str("bias", string(bias)).Str("direction", string(setup.Direction)).
			Msg("setup against higher-timeframe bias, skipped")
		return nil
	}

	side := "SELL"
	if setup.Direction == smc.Bullish {
		side = "BUY"
	}
	fingerprint := gates.Fingerprint(symbol, setup.FVG.Midpoint)

	candidate := &gates.Candidate{
		Symbol:      symbol,
		Side:        side,
		Fingerprint: fingerprint,
		Account:     account,
		Now:         now,
	}
	if ok, reason := b.chain.Check(ctx, candidate); !ok {
		logger.Info().Str("reason", reason).Msg("setup rejected by gate chain")
		return nil
	}

	approvalContext := llm.BuildApprovalContext(symbol, setup, bias, bars)
	if b.approver.Approve(ctx, symbol, approvalContext) != llm.DecisionGo {
		logger.Info().Msg("setup vetoed by approver")
		return nil
	}

	tick, err := b.terminal.Tick(ctx, symbol)
	if err != nil {
		return fmt.Errorf("tick: %w", err)
	}
	if tick == nil {
		logger.Warn().Msg("no quote available, skipped")
		return nil
	}

	plan, err := risk.BuildOrderPlan(symbol, side, setup.SweepLevel, tick, account.Balance, b.cfg.Sizer)
	if err != nil {
		logger.Info().Err(err).Msg("setup not sizeable, skipped")
		return nil
	}

	return b.dispatch(ctx, cycleID, plan, setup, bias, tick, logger)
}

// dispatch sends the sized order to the terminal and records the fill in the
// ledger. In dry-run mode the order stops at the log.
func (b *Bot) dispatch(ctx context.Context, cycleID string, plan *risk.OrderPlan,
	setup *smc.Setup, bias smc.Bias, tick *terminal.Tick, logger zerolog.Logger) error {
	if b.cfg.DryRun {
		logger.Info().Str("side", plan.Side).Float64("lots", plan.Lots).
			Float64("entry", plan.EntryPrice).Float64("sl", plan.StopLoss).Float64("tp", plan.TakeProfit).
			Msg("dry run, order not sent")
		return nil
	}

	receipt, err := b.terminal.SubmitOrder(ctx, terminal.OrderRequest{
		Symbol:     plan.Symbol,
		Volume:     plan.Lots,
		Type:       plan.Side,
		StopLoss:   plan.StopLoss,
		TakeProfit: plan.TakeProfit,
		Deviation:  b.cfg.Deviation,
		Comment:    "smc-" + cycleID[:8],
	})
	if err != nil {
		return fmt.Errorf("order submit: %w", err)
	}
	if receipt == nil {
		logger.Warn().Str("side", plan.Side).Float64("lots", plan.Lots).
			Msg("order rejected by terminal")
		return nil
	}

	entryPrice := receipt.Price
	if entryPrice == 0 {
		entryPrice = plan.EntryPrice
	}
	entryTime := time.Now().UTC()
	fingerprint := gates.Fingerprint(plan.Symbol, setup.FVG.Midpoint)
	orderSizeUSD := plan.Lots * tick.ContractSize * entryPrice

	biasStr := string(bias)
	strategy := "SMC_SWEEP_FVG"
	trade := &database.Trade{
		CycleID:         cycleID,
		Ticket:          &receipt.Ticket,
		Symbol:          plan.Symbol,
		Side:            plan.Side,
		Fingerprint:     fingerprint,
		EntryPrice:      entryPrice,
		VolumeLots:      plan.Lots,
		OrderSizeUSD:    &orderSizeUSD,
		Commission:      &plan.Commission,
		StopLoss:        &plan.StopLoss,
		TakeProfit:      &plan.TakeProfit,
		SweepLevel:      &setup.SweepLevel,
		FVGMidpoint:     &setup.FVG.Midpoint,
		HTFBias:         &biasStr,
		Displacement:    setup.DisplacementFound,
		InducementSwept: setup.Inducement.Swept,
		Strategy:        &strategy,
		Timeframe:       &b.cfg.EntryTimeframe,
		EntryTime:       entryTime,
	}
	if err := b.store.CreateTrade(ctx, trade); err != nil {
		// The order is live even if the ledger write failed; reconciliation
		// cannot recover a row that was never created, so this is loud.
		logger.Error().Err(err).Int64("ticket", receipt.Ticket).Msg("ledger write failed for live order")
		b.notifier.SendError("Ledger write failed",
			fmt.Sprintf("Order %d on %s is live but unrecorded: %v", receipt.Ticket, plan.Symbol, err))
	}

	if b.cache != nil {
		b.cache.MarkEntry(ctx, plan.Symbol, fingerprint, entryTime, b.cfg.Cooldown)
	}

	b.trailing.Track(plan.Symbol, plan.Side, entryPrice, plan.RiskAmount, orderSizeUSD, plan.Commission, plan.StopLoss)

	b.notifier.SendSetupAlert(&notification.SetupAlert{
		Symbol:       plan.Symbol,
		Side:         plan.Side,
		Lots:         plan.Lots,
		EntryPrice:   entryPrice,
		StopLoss:     plan.StopLoss,
		TakeProfit:   plan.TakeProfit,
		HTFBias:      biasStr,
		SweepLevel:   setup.SweepLevel,
		FVGMidpoint:  setup.FVG.Midpoint,
		Displacement: setup.DisplacementFound,
		Inducement:   setup.Inducement.Swept,
		Digits:       tick.Digits,
	})

	b.mu.Lock()
	b.ordersSent++
	b.mu.Unlock()

	logger.Info().Int64("ticket", receipt.Ticket).Str("side", plan.Side).
		Float64("lots", plan.Lots).Float64("entry", entryPrice).
		Float64("sl", plan.StopLoss).Float64("tp", plan.TakeProfit).
		Float64("risk_percent", plan.RiskPercent).Msg("order dispatched")
	return nil
}

// advanceTrailingStops walks open positions up the profit ladder and pushes
// any stop advance to the terminal.
func (b *Bot) advanceTrailingStops(ctx context.Context, positions []terminal.Position, logger zerolog.Logger) {
	for _, pos := range positions {
		update := b.trailing.UpdatePnL(pos.Symbol, pos.Profit)
		if update == nil {
			continue
		}
		if err := b.terminal.ModifyPosition(ctx, pos.Ticket, update.NewStopLoss, pos.TakeProfit); err != nil {
			logger.Error().Err(err).Str("symbol", pos.Symbol).Int64("ticket", pos.Ticket).
				Msg("trailing stop modify failed")
			continue
		}
		logger.Info().Str("symbol", pos.Symbol).Int64("ticket", pos.Ticket).
			Float64("old_stop", update.OldStopLoss).Float64("new_stop", update.NewStopLoss).
			Msg("trailing stop moved")
	}
}

// Status returns a snapshot for the status API.
func (b *Bot) Status() map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return map[string]interface{}{
		"running":       b.running,
		"symbols":       b.cfg.Symbols,
		"scan_interval": b.cfg.ScanInterval.String(),
		"dry_run":       b.cfg.DryRun,
		"last_scan":     b.lastScan,
		"scans_total":   b.scansTotal,
		"setups_found":  b.setupsFound,
		"orders_sent":   b.ordersSent,
	}
}
