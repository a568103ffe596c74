package terminal

import "time"

// Timeframe identifiers understood by the MT5 bridge.
const (
	TimeframeM5  = "M5"
	TimeframeM15 = "M15"
	TimeframeH1  = "H1"
	TimeframeH4  = "H4"
	TimeframeD1  = "D1"
)

// Bar represents a single OHLC candle returned by the bridge,
// oldest-to-newest ordering within a series.
type Bar struct {
	Time   int64   `json:"time"` // unix seconds, bar open time
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"tick_volume"`
}

// OpenTime returns the bar open time as time.Time.
func (b Bar) OpenTime() time.Time {
	return time.Unix(b.Time, 0).UTC()
}

// Body returns the absolute open-to-close body size.
func (b Bar) Body() float64 {
	if b.Close >= b.Open {
		return b.Close - b.Open
	}
	return b.Open - b.Close
}

// Bullish reports whether the bar closed above its open.
func (b Bar) Bullish() bool {
	return b.Close > b.Open
}

// Tick is a live quote snapshot for one symbol.
type Tick struct {
	Symbol       string  `json:"symbol"`
	Bid          float64 `json:"bid"`
	Ask          float64 `json:"ask"`
	Point        float64 `json:"point"`
	Digits       int     `json:"digits"`
	ContractSize float64 `json:"trade_contract_size"`
	VolumeStep   float64 `json:"volume_step"`
}

// Spread returns the current ask-bid spread.
func (t Tick) Spread() float64 {
	return t.Ask - t.Bid
}

// Account is a read-only snapshot of the trading account.
type Account struct {
	Balance     float64 `json:"balance"`
	Equity      float64 `json:"equity"`
	Margin      float64 `json:"margin"`
	MarginFree  float64 `json:"margin_free"`
	MarginLevel float64 `json:"margin_level"`
	Currency    string  `json:"currency"`
}

// Position is an open position as reported by the terminal.
type Position struct {
	Ticket     int64   `json:"ticket"`
	Symbol     string  `json:"symbol"`
	Type       string  `json:"type"` // BUY or SELL
	Volume     float64 `json:"volume"`
	PriceOpen  float64 `json:"price_open"`
	StopLoss   float64 `json:"sl"`
	TakeProfit float64 `json:"tp"`
	Profit     float64 `json:"profit"`
	TimeOpen   int64   `json:"time"`
}

// Deal is a closed deal from the terminal's history.
type Deal struct {
	Ticket     int64   `json:"ticket"`
	Symbol     string  `json:"symbol"`
	Time       int64   `json:"time"`
	Price      float64 `json:"price"`
	Profit     float64 `json:"profit"`
	Commission float64 `json:"commission"`
	Swap       float64 `json:"swap"`
	Reason     string  `json:"reason"`
}

// OrderRequest describes a market order for the bridge to execute.
type OrderRequest struct {
	Symbol     string  `json:"symbol"`
	Volume     float64 `json:"volume"`
	Type       string  `json:"type"` // BUY or SELL
	StopLoss   float64 `json:"sl"`
	TakeProfit float64 `json:"tp"`
	Deviation  int     `json:"deviation"`
	Comment    string  `json:"comment,omitempty"`
}

// OrderReceipt is the bridge's acknowledgement of a submitted order.
type OrderReceipt struct {
	Ticket   int64   `json:"order"`
	Retcode  int     `json:"retcode"`
	Price    float64 `json:"price"`
	Volume   float64 `json:"volume"`
	Comment  string  `json:"comment"`
	Symbol   string  `json:"symbol"`
	Type     string  `json:"type"`
	Accepted bool    `json:"accepted"`
}
