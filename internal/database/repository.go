package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// Repository provides data access methods
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// HealthCheck performs a database health check
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.db.Pool.Ping(ctx)
}

const tradeColumns = `id, cycle_id, ticket, symbol, side, fingerprint, entry_price, close_price,
	       volume_lots, order_size_usd, commission, stop_loss, take_profit,
	       sweep_level, fvg_midpoint, htf_bias, displacement, inducement_swept,
	       strategy, timeframe, entry_time, close_time, pnl, pnl_gross,
	       closing_reason, status, created_at, updated_at`

// CreateTrade inserts a new trade at dispatch time.
func (r *Repository) CreateTrade(ctx context.Context, trade *Trade) error {
	if trade.Status == "" {
		trade.Status = TradeStatusOpen
	}
	query := `
		INSERT INTO trades (cycle_id, ticket, symbol, side, fingerprint, entry_price,
			volume_lots, order_size_usd, commission, stop_loss, take_profit,
			sweep_level, fvg_midpoint, htf_bias, displacement, inducement_swept,
			strategy, timeframe, entry_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id, created_at, updated_at
	`
	return r.db.Pool.QueryRow(
		ctx, query,
		trade.CycleID, trade.Ticket, trade.Symbol, trade.Side, trade.Fingerprint, trade.EntryPrice,
		trade.VolumeLots, trade.OrderSizeUSD, trade.Commission, trade.StopLoss, trade.TakeProfit,
		trade.SweepLevel, trade.FVGMidpoint, trade.HTFBias, trade.Displacement, trade.InducementSwept,
		trade.Strategy, trade.Timeframe, trade.EntryTime, trade.Status,
	).Scan(&trade.ID, &trade.CreatedAt, &trade.UpdatedAt)
}

// CloseTrade records the reconciled close of a trade identified by its
// broker ticket.
func (r *Repository) CloseTrade(ctx context.Context, ticket int64, closeTime time.Time, closePrice, pnlNet, pnlGross float64, reason string) error {
	query := `
		UPDATE trades
		SET close_time = $2, close_price = $3, pnl = $4, pnl_gross = $5,
		    closing_reason = $6, status = $7, updated_at = CURRENT_TIMESTAMP
		WHERE ticket = $1 AND status = $8
	`
	_, err := r.db.Pool.Exec(ctx, query, ticket, closeTime, closePrice, pnlNet, pnlGross,
		reason, TradeStatusClosed, TradeStatusOpen)
	return err
}

// GetOpenTrades retrieves all trades the ledger still considers open.
func (r *Repository) GetOpenTrades(ctx context.Context) ([]*Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE status = $1 ORDER BY entry_time DESC`
	return r.queryTrades(ctx, query, TradeStatusOpen)
}

// GetTradeHistory retrieves closed trades, most recent first.
func (r *Repository) GetTradeHistory(ctx context.Context, limit, offset int) ([]*Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE status = $1 ORDER BY close_time DESC LIMIT $2 OFFSET $3`
	return r.queryTrades(ctx, query, TradeStatusClosed, limit, offset)
}

// HasOpenTradeInSymbol reports whether the ledger holds an open trade for
// the symbol.
func (r *Repository) HasOpenTradeInSymbol(ctx context.Context, symbol string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM trades WHERE symbol = $1 AND status = $2)`,
		symbol, TradeStatusOpen).Scan(&exists)
	return exists, err
}

// LastEntryTime returns the most recent entry for the symbol. The second
// return value is false when the symbol has never traded.
func (r *Repository) LastEntryTime(ctx context.Context, symbol string) (time.Time, bool, error) {
	var last time.Time
	err := r.db.Pool.QueryRow(ctx,
		`SELECT entry_time FROM trades WHERE symbol = $1 ORDER BY entry_time DESC LIMIT 1`,
		symbol).Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return last, true, nil
}

// HasTradedFingerprint reports whether a setup fingerprint already has a
// ledger entry, open or closed.
func (r *Repository) HasTradedFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM trades WHERE fingerprint = $1)`,
		fingerprint).Scan(&exists)
	return exists, err
}

// RealizedLossSince sums the negative net PnL of trades closed at or after
// the cutoff. Winning trades never offset the figure; the result is zero or
// negative.
func (r *Repository) RealizedLossSince(ctx context.Context, cutoff time.Time) (float64, error) {
	var total float64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(pnl), 0) FROM trades WHERE status = $1 AND close_time >= $2 AND pnl < 0`,
		TradeStatusClosed, cutoff).Scan(&total)
	return total, err
}

func (r *Repository) queryTrades(ctx context.Context, query string, args ...interface{}) ([]*Trade, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*Trade
	for rows.Next() {
		trade := &Trade{}
		err := rows.Scan(
			&trade.ID, &trade.CycleID, &trade.Ticket, &trade.Symbol, &trade.Side,
			&trade.Fingerprint, &trade.EntryPrice, &trade.ClosePrice,
			&trade.VolumeLots, &trade.OrderSizeUSD, &trade.Commission,
			&trade.StopLoss, &trade.TakeProfit, &trade.SweepLevel, &trade.FVGMidpoint,
			&trade.HTFBias, &trade.Displacement, &trade.InducementSwept,
			&trade.Strategy, &trade.Timeframe, &trade.EntryTime, &trade.CloseTime,
			&trade.PnL, &trade.PnLGross, &trade.ClosingReason, &trade.Status,
			&trade.CreatedAt, &trade.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}
	return trades, rows.Err()
}
