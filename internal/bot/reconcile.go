package bot

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"mt5-smc-bot/internal/terminal"
)

// dealSearchSlack widens the history window around a trade's lifetime so a
// deal booked slightly outside it is still found.
const dealSearchSlack = 5 * time.Minute

// reconcileCloses compares the ledger's open trades against the terminal's
// open positions. A ledger trade whose ticket no longer has a position was
// closed by the terminal (TP, SL or manual); the closing deal carries the
// result, which is folded into the ledger, the risk counters and the breaker.
func (b *Bot) reconcileCloses(ctx context.Context, positions []terminal.Position, balance float64, logger zerolog.Logger) {
	openTrades, err := b.store.GetOpenTrades(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("open trade fetch failed, reconciliation skipped")
		return
	}
	if len(openTrades) == 0 {
		return
	}

	live := make(map[int64]bool, len(positions))
	for _, pos := range positions {
		live[pos.Ticket] = true
	}

	now := time.Now().UTC()
	for _, trade := range openTrades {
		if trade.Ticket == nil || live[*trade.Ticket] {
			continue
		}

		deal, err := b.terminal.Deal(ctx, *trade.Ticket,
			trade.EntryTime.Add(-dealSearchSlack), now.Add(dealSearchSlack))
		if err != nil {
			logger.Error().Err(err).Int64("ticket", *trade.Ticket).Msg("deal lookup failed")
			continue
		}
		if deal == nil {
			// Position is gone but the deal has not hit history yet. The next
			// cycle will pick it up.
			continue
		}

		// Net result includes commission and swap; gross is the raw deal profit.
		pnlNet := deal.Profit + deal.Commission + deal.Swap
		pnlGross := deal.Profit
		reason := deal.Reason
		if reason == "" {
			reason = "UNKNOWN"
		}
		closeTime := time.Unix(deal.Time, 0).UTC()

		if err := b.store.CloseTrade(ctx, *trade.Ticket, closeTime, deal.Price, pnlNet, pnlGross, reason); err != nil {
			logger.Error().Err(err).Int64("ticket", *trade.Ticket).Msg("ledger close failed")
			continue
		}

		b.riskManager.RecordClosedPnL(pnlNet)
		if balance > 0 {
			b.breaker.RecordTrade(pnlNet / balance * 100)
		}
		b.trailing.Forget(trade.Symbol)
		b.notifier.SendTradeClose(trade.Symbol, trade.EntryPrice, deal.Price, pnlNet, reason)

		logger.Info().Int64("ticket", *trade.Ticket).Str("symbol", trade.Symbol).
			Float64("pnl_net", pnlNet).Float64("pnl_gross", pnlGross).
			Str("reason", reason).Msg("trade reconciled as closed")
	}
}
