package bot

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mt5-smc-bot/internal/ai/llm"
	"mt5-smc-bot/internal/circuit"
	"mt5-smc-bot/internal/database"
	"mt5-smc-bot/internal/gates"
	"mt5-smc-bot/internal/notification"
	"mt5-smc-bot/internal/risk"
	"mt5-smc-bot/internal/terminal"
)

type stubTerminal struct {
	entryBars []terminal.Bar
	biasBars  []terminal.Bar
	tick      *terminal.Tick
	account   *terminal.Account
	positions []terminal.Position
	deal      *terminal.Deal
	receipt   *terminal.OrderReceipt
	submitted []terminal.OrderRequest
	modified  []int64
}

func (s *stubTerminal) Bars(_ context.Context, _, timeframe string, _ int) ([]terminal.Bar, error) {
	if timeframe == terminal.TimeframeH4 {
		return s.biasBars, nil
	}
	return s.entryBars, nil
}

func (s *stubTerminal) Tick(context.Context, string) (*terminal.Tick, error) {
	return s.tick, nil
}

func (s *stubTerminal) Account(context.Context) (*terminal.Account, error) {
	return s.account, nil
}

func (s *stubTerminal) Positions(context.Context) ([]terminal.Position, error) {
	return s.positions, nil
}

func (s *stubTerminal) Deal(context.Context, int64, time.Time, time.Time) (*terminal.Deal, error) {
	return s.deal, nil
}

func (s *stubTerminal) SubmitOrder(_ context.Context, req terminal.OrderRequest) (*terminal.OrderReceipt, error) {
	s.submitted = append(s.submitted, req)
	return s.receipt, nil
}

func (s *stubTerminal) ModifyPosition(_ context.Context, ticket int64, _, _ float64) error {
	s.modified = append(s.modified, ticket)
	return nil
}

type closeRecord struct {
	ticket int64
	pnlNet float64
	reason string
}

type stubStore struct {
	hasOpen bool
	open    []*database.Trade
	created []*database.Trade
	closed  []closeRecord
}

func (s *stubStore) HasOpenTradeInSymbol(context.Context, string) (bool, error) {
	return s.hasOpen, nil
}

func (s *stubStore) CreateTrade(_ context.Context, trade *database.Trade) error {
	s.created = append(s.created, trade)
	return nil
}

func (s *stubStore) CloseTrade(_ context.Context, ticket int64, _ time.Time, _, pnlNet, _ float64, reason string) error {
	s.closed = append(s.closed, closeRecord{ticket: ticket, pnlNet: pnlNet, reason: reason})
	return nil
}

func (s *stubStore) GetOpenTrades(context.Context) ([]*database.Trade, error) {
	return s.open, nil
}

type captureNotifier struct {
	got []*notification.Notification
}

func (c *captureNotifier) Send(n *notification.Notification) error { c.got = append(c.got, n); return nil }
func (c *captureNotifier) Name() string                            { return "capture" }
func (c *captureNotifier) IsEnabled() bool                         { return true }

// scenarioBars carries a complete bullish setup: 30 range bars, a stop hunt
// at bar 30, a displacement candle at 31, an FVG forming at 32 and two drift
// bars that leave the gap unmitigated. FVG midpoint 101.70, sweep level 98.50.
func scenarioBars() []terminal.Bar {
	bars := make([]terminal.Bar, 35)
	for i := range bars {
		bars[i] = terminal.Bar{Open: 99.9, High: 100.6, Low: 99.4, Close: 100.1}
	}
	bars[30] = terminal.Bar{Open: 99.6, High: 100.2, Low: 98.5, Close: 99.9}
	bars[31] = terminal.Bar{Open: 99.9, High: 103.1, Low: 99.8, Close: 103.0}
	bars[32] = terminal.Bar{Open: 103.3, High: 104.0, Low: 103.2, Close: 103.8}
	bars[33] = terminal.Bar{Open: 103.8, High: 104.0, Low: 103.0, Close: 103.6}
	bars[34] = terminal.Bar{Open: 103.6, High: 104.1, Low: 103.4, Close: 103.9}
	return bars
}

// bearishBiasBars builds a series whose structure break is to the downside at
// a swing lookback of 5: swing highs at bars 8 and 22, swing lows at bars 15
// and 29, final close below the last swing low.
func bearishBiasBars() []terminal.Bar {
	prices := []float64{
		100, 101, 102, 103, 104, 105, 106, 107, 108,
		107, 106, 105, 104, 103, 102, 101,
		102, 103, 104, 105, 106, 106.5, 106.8,
		105.8, 104.8, 103.8, 102.8, 101.8, 101.5, 101.2,
		101.5, 102, 102.5, 103, 103.2, 103.4,
		101, 100.4, 99.8, 99,
	}
	bars := make([]terminal.Bar, len(prices))
	for i, p := range prices {
		bars[i] = terminal.Bar{Open: p - 0.2, High: p + 0.3, Low: p - 0.3, Close: p}
	}
	return bars
}

func cryptoTick() *terminal.Tick {
	return &terminal.Tick{
		Symbol:       "BTCUSDm",
		Bid:          103.88,
		Ask:          103.90,
		Point:        0.01,
		Digits:       2,
		ContractSize: 100,
		VolumeStep:   0.01,
	}
}

type fixture struct {
	bot      *Bot
	term     *stubTerminal
	store    *stubStore
	notifier *captureNotifier
	breaker  *circuit.Breaker
	manager  *risk.Manager
	trailing *risk.TrailingStopManager
}

func newFixture(chainGates ...gates.Gate) *fixture {
	term := &stubTerminal{
		entryBars: scenarioBars(),
		biasBars:  nil, // too short for bias, stays NEUTRAL
		tick:      cryptoTick(),
		account:   &terminal.Account{Balance: 10000, Equity: 10000},
		receipt:   &terminal.OrderReceipt{Ticket: 777, Retcode: 10009, Price: 103.91, Accepted: true},
	}
	store := &stubStore{}
	capture := &captureNotifier{}

	notifier := notification.NewManager()
	notifier.AddNotifier(capture)

	manager := risk.NewManager(&risk.ManagerConfig{MaxOpenPositions: 3, MaxDailyDrawdown: 5}, zerolog.Nop())
	breaker := circuit.NewBreaker(&circuit.BreakerConfig{
		Enabled: true, MaxDailyLossPercent: 5, MaxConsecutiveLosses: 2,
	}, zerolog.Nop())
	trailing := risk.NewTrailingStopManager(nil, zerolog.Nop())
	approver := llm.NewApprover(nil, false, zerolog.Nop())

	cfg := DefaultConfig()
	cfg.Symbols = []string{"BTCUSDm"}

	b := New(cfg, term, store, nil, gates.NewChain(zerolog.Nop(), chainGates...),
		approver, manager, breaker, trailing, notifier, zerolog.Nop())

	return &fixture{
		bot: b, term: term, store: store, notifier: capture,
		breaker: breaker, manager: manager, trailing: trailing,
	}
}

func TestScanDispatchesComposedSetup(t *testing.T) {
	f := newFixture()

	if err := f.bot.scanSymbol(context.Background(), "cycle-000000001", "BTCUSDm", f.term.account); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.term.submitted) != 1 {
		t.Fatalf("got %d orders, want 1", len(f.term.submitted))
	}
	order := f.term.submitted[0]
	if order.Type != "BUY" || order.Symbol != "BTCUSDm" {
		t.Errorf("got %s %s, want BUY BTCUSDm", order.Type, order.Symbol)
	}
	// Stop sits a 10-point buffer below the 98.50 sweep level.
	if math.Abs(order.StopLoss-98.40) > 1e-9 {
		t.Errorf("got stop %.2f, want 98.40", order.StopLoss)
	}
	// 3:1 reward on the 5.50 stop distance from the 103.90 ask.
	if math.Abs(order.TakeProfit-120.40) > 1e-9 {
		t.Errorf("got target %.2f, want 120.40", order.TakeProfit)
	}

	if len(f.store.created) != 1 {
		t.Fatalf("got %d ledger rows, want 1", len(f.store.created))
	}
	trade := f.store.created[0]
	if trade.Fingerprint != "BTCUSDm:101.70000" {
		t.Errorf("got fingerprint %q, want BTCUSDm:101.70000", trade.Fingerprint)
	}
	if trade.Ticket == nil || *trade.Ticket != 777 {
		t.Errorf("got ticket %v, want 777", trade.Ticket)
	}
	if trade.EntryPrice != 103.91 {
		t.Errorf("got entry %.2f, want the fill price 103.91", trade.EntryPrice)
	}
	if !trade.Displacement || !trade.InducementSwept {
		t.Errorf("setup context lost on the ledger row: %+v", trade)
	}

	if f.trailing.Position("BTCUSDm") == nil {
		t.Error("dispatched trade should be tracked for trailing")
	}
	if len(f.notifier.got) != 1 || f.notifier.got[0].Type != notification.NotifySetup {
		t.Errorf("expected one setup alert, got %+v", f.notifier.got)
	}
}

func TestScanSkipsSetupAgainstBias(t *testing.T) {
	f := newFixture()
	f.term.biasBars = bearishBiasBars() // SHORT_ONLY against the bullish setup

	if err := f.bot.scanSymbol(context.Background(), "cycle-000000001", "BTCUSDm", f.term.account); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.term.submitted) != 0 {
		t.Errorf("setup against bias must not dispatch, got %d orders", len(f.term.submitted))
	}
	if len(f.store.created) != 0 {
		t.Errorf("no ledger row expected, got %d", len(f.store.created))
	}
}

func TestScanStopsAtGateRefusal(t *testing.T) {
	f := newFixture()
	// Recreate the fixture chain with a tripped breaker in front.
	f.breaker.RecordTrade(-3)
	f.breaker.RecordTrade(-3) // two consecutive losses trip it
	f.bot.chain = gates.NewChain(zerolog.Nop(), gates.BreakerGate{Breaker: f.breaker})

	if err := f.bot.scanSymbol(context.Background(), "cycle-000000001", "BTCUSDm", f.term.account); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.term.submitted) != 0 {
		t.Errorf("gate refusal must not dispatch, got %d orders", len(f.term.submitted))
	}
}

type stopCompleter struct{}

func (stopCompleter) Complete(context.Context, string, string) (string, error) {
	return "STOP", nil
}

func TestScanHonorsApproverVeto(t *testing.T) {
	f := newFixture()
	f.bot.approver = llm.NewApprover(stopCompleter{}, true, zerolog.Nop())

	if err := f.bot.scanSymbol(context.Background(), "cycle-000000001", "BTCUSDm", f.term.account); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.term.submitted) != 0 {
		t.Errorf("vetoed setup must not dispatch, got %d orders", len(f.term.submitted))
	}
}

func TestDryRunNeverSubmits(t *testing.T) {
	f := newFixture()
	f.bot.cfg.DryRun = true

	if err := f.bot.scanSymbol(context.Background(), "cycle-000000001", "BTCUSDm", f.term.account); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.term.submitted) != 0 {
		t.Errorf("dry run must not submit, got %d orders", len(f.term.submitted))
	}
	if len(f.store.created) != 0 {
		t.Errorf("dry run must not write the ledger, got %d rows", len(f.store.created))
	}
}

func TestScanSkipsSymbolWithOpenTrade(t *testing.T) {
	f := newFixture()
	f.store.hasOpen = true

	if err := f.bot.scanSymbol(context.Background(), "cycle-000000001", "BTCUSDm", f.term.account); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.term.submitted) != 0 {
		t.Errorf("symbol with an open trade must not dispatch again, got %d orders", len(f.term.submitted))
	}
}

func TestReconcileClosesVanishedPosition(t *testing.T) {
	f := newFixture()
	ticket := int64(555)
	f.store.open = []*database.Trade{{
		Ticket:     &ticket,
		Symbol:     "BTCUSDm",
		EntryPrice: 103.91,
		EntryTime:  time.Now().UTC().Add(-time.Hour),
		Status:     database.TradeStatusOpen,
	}}
	f.term.deal = &terminal.Deal{
		Ticket: 555, Symbol: "BTCUSDm", Time: time.Now().Unix(),
		Price: 120.40, Profit: 5.8, Commission: -0.5, Swap: -0.1, Reason: "TP",
	}
	f.trailing.Track("BTCUSDm", "BUY", 103.91, 150, 2800, 1.4, 98.40)

	f.bot.reconcileCloses(context.Background(), nil, 10000, zerolog.Nop())

	if len(f.store.closed) != 1 {
		t.Fatalf("got %d closes, want 1", len(f.store.closed))
	}
	rec := f.store.closed[0]
	if rec.ticket != 555 || rec.reason != "TP" {
		t.Errorf("got close %+v, want ticket 555 reason TP", rec)
	}
	if math.Abs(rec.pnlNet-5.2) > 1e-9 {
		t.Errorf("got net PnL %.2f, want 5.20 (profit plus commission and swap)", rec.pnlNet)
	}
	if math.Abs(f.manager.DailyPnL()-5.2) > 1e-9 {
		t.Errorf("daily PnL not updated, got %.2f", f.manager.DailyPnL())
	}
	if f.trailing.Position("BTCUSDm") != nil {
		t.Error("closed trade should be dropped from trailing")
	}
	if len(f.notifier.got) != 1 || !strings.Contains(f.notifier.got[0].Title, "Closed") {
		t.Errorf("expected a close notification, got %+v", f.notifier.got)
	}
}

func TestReconcileLeavesLivePositionsAlone(t *testing.T) {
	f := newFixture()
	ticket := int64(556)
	f.store.open = []*database.Trade{{
		Ticket:    &ticket,
		Symbol:    "BTCUSDm",
		EntryTime: time.Now().UTC().Add(-time.Hour),
		Status:    database.TradeStatusOpen,
	}}
	positions := []terminal.Position{{Ticket: 556, Symbol: "BTCUSDm", Type: "BUY"}}

	f.bot.reconcileCloses(context.Background(), positions, 10000, zerolog.Nop())

	if len(f.store.closed) != 0 {
		t.Errorf("live position must not be closed in the ledger, got %+v", f.store.closed)
	}
}

func TestTrailingAdvancePushesModify(t *testing.T) {
	f := newFixture()
	// Capital 150 at entry 103.91, order size 2800 USD. An open PnL of 2.6x
	// capital crosses the 2.50 rung.
	f.trailing.Track("BTCUSDm", "BUY", 103.91, 150, 2800, 1.4, 98.40)
	positions := []terminal.Position{{Ticket: 777, Symbol: "BTCUSDm", Type: "BUY", Profit: 390, TakeProfit: 120.40}}

	f.bot.advanceTrailingStops(context.Background(), positions, zerolog.Nop())

	if len(f.term.modified) != 1 || f.term.modified[0] != 777 {
		t.Fatalf("expected one modify for ticket 777, got %v", f.term.modified)
	}
}
