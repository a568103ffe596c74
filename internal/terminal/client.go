package terminal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client talks to the MT5 bridge service over HTTP. The bridge owns the
// terminal protocol; this client only moves typed requests and responses.
// An empty result (no bars, no tick) is a valid "no data" answer, not an error.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Bars fetches up to count candles for symbol on the given timeframe,
// ordered oldest to newest. A nil slice means the bridge had no data.
func (c *Client) Bars(ctx context.Context, symbol, timeframe string, count int) ([]Bar, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("timeframe", timeframe)
	params.Set("count", strconv.Itoa(count))

	var bars []Bar
	if err := c.get(ctx, "/api/data/bars?"+params.Encode(), &bars); err != nil {
		return nil, fmt.Errorf("error fetching bars for %s %s: %w", symbol, timeframe, err)
	}
	return bars, nil
}

// Tick fetches the current quote for symbol.
func (c *Client) Tick(ctx context.Context, symbol string) (*Tick, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var tick Tick
	if err := c.get(ctx, "/api/symbol/tick?"+params.Encode(), &tick); err != nil {
		return nil, fmt.Errorf("error fetching tick for %s: %w", symbol, err)
	}
	if tick.Bid == 0 && tick.Ask == 0 {
		return nil, nil
	}
	return &tick, nil
}

// Account fetches the account snapshot. Returns nil when the terminal
// is not logged in.
func (c *Client) Account(ctx context.Context) (*Account, error) {
	var acc Account
	if err := c.get(ctx, "/api/account", &acc); err != nil {
		return nil, fmt.Errorf("error fetching account info: %w", err)
	}
	if acc.Balance == 0 && acc.Equity == 0 && acc.Currency == "" {
		return nil, nil
	}
	return &acc, nil
}

// Positions fetches all currently open positions.
func (c *Client) Positions(ctx context.Context) ([]Position, error) {
	var positions []Position
	if err := c.get(ctx, "/api/positions", &positions); err != nil {
		return nil, fmt.Errorf("error fetching positions: %w", err)
	}
	return positions, nil
}

// Deal looks up a closed deal by position ticket within a history window.
// Returns nil when the deal has not appeared in history yet.
func (c *Client) Deal(ctx context.Context, ticket int64, from, to time.Time) (*Deal, error) {
	params := url.Values{}
	params.Set("ticket", strconv.FormatInt(ticket, 10))
	params.Set("from", strconv.FormatInt(from.Unix(), 10))
	params.Set("to", strconv.FormatInt(to.Unix(), 10))

	var deals []Deal
	if err := c.get(ctx, "/api/history/deals?"+params.Encode(), &deals); err != nil {
		return nil, fmt.Errorf("error fetching deal %d: %w", ticket, err)
	}
	// The bridge returns entry and exit deals; the exit deal carries the PnL.
	for i := len(deals) - 1; i >= 0; i-- {
		if deals[i].Profit != 0 || deals[i].Reason != "" {
			return &deals[i], nil
		}
	}
	if len(deals) > 0 {
		return &deals[len(deals)-1], nil
	}
	return nil, nil
}

// SubmitOrder sends a market order to the bridge. A nil receipt means the
// order was rejected by the terminal.
func (c *Client) SubmitOrder(ctx context.Context, req OrderRequest) (*OrderReceipt, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("error marshaling order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/order/market", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating order request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error submitting order: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading order response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bridge error: %s", string(respBody))
	}

	var receipt OrderReceipt
	if err := json.Unmarshal(respBody, &receipt); err != nil {
		return nil, fmt.Errorf("error parsing order response: %w", err)
	}
	if !receipt.Accepted || receipt.Ticket == 0 {
		return nil, nil
	}
	return &receipt, nil
}

// ModifyPosition moves the stop loss and take profit on an open position.
func (c *Client) ModifyPosition(ctx context.Context, ticket int64, stopLoss, takeProfit float64) error {
	body, err := json.Marshal(map[string]any{"ticket": ticket, "sl": stopLoss, "tp": takeProfit})
	if err != nil {
		return fmt.Errorf("error marshaling modify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/order/modify", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error creating modify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error modifying position %d: %w", ticket, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("bridge error: %s", string(respBody))
	}
	return nil
}

// Ping checks bridge reachability.
func (c *Client) Ping(ctx context.Context) error {
	var out map[string]any
	return c.get(ctx, "/api/health", &out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error calling bridge: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge error: %s", string(body))
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("error parsing response: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
}
