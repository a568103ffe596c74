package database

import "time"

// Trade statuses
const (
	TradeStatusOpen   = "OPEN"
	TradeStatusClosed = "CLOSED"
)

// Trade is one ledger row covering the whole lifecycle of a dispatched
// order: the setup context it was entered on, the broker ticket, and the
// reconciled close. PnL is stored both net (profit plus commission and swap)
// and gross (raw deal profit).
type Trade struct {
	ID              int64      `json:"id"`
	CycleID         string     `json:"cycle_id"`
	Ticket          *int64     `json:"ticket,omitempty"`
	Symbol          string     `json:"symbol"`
	Side            string     `json:"side"`
	Fingerprint     string     `json:"fingerprint"`
	EntryPrice      float64    `json:"entry_price"`
	ClosePrice      *float64   `json:"close_price,omitempty"`
	VolumeLots      float64    `json:"volume_lots"`
	OrderSizeUSD    *float64   `json:"order_size_usd,omitempty"`
	Commission      *float64   `json:"commission,omitempty"`
	StopLoss        *float64   `json:"stop_loss,omitempty"`
	TakeProfit      *float64   `json:"take_profit,omitempty"`
	SweepLevel      *float64   `json:"sweep_level,omitempty"`
	FVGMidpoint     *float64   `json:"fvg_midpoint,omitempty"`
	HTFBias         *string    `json:"htf_bias,omitempty"`
	Displacement    bool       `json:"displacement"`
	InducementSwept bool       `json:"inducement_swept"`
	Strategy        *string    `json:"strategy,omitempty"`
	Timeframe       *string    `json:"timeframe,omitempty"`
	EntryTime       time.Time  `json:"entry_time"`
	CloseTime       *time.Time `json:"close_time,omitempty"`
	PnL             *float64   `json:"pnl,omitempty"`       // net of commission and swap
	PnLGross        *float64   `json:"pnl_gross,omitempty"` // raw deal profit
	ClosingReason   *string    `json:"closing_reason,omitempty"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
