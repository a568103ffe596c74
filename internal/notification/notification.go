// Package notification fans alerts out to Telegram and Discord. Delivery is
// best effort; a failed send never blocks the scan loop.
package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	NotifySetup      NotificationType = "setup"
	NotifyTradeClose NotificationType = "trade_close"
	NotifyBreaker    NotificationType = "breaker"
	NotifyError      NotificationType = "error"
)

// SetupAlert carries the full context of a dispatched trade for the alert
// message.
type SetupAlert struct {
	Symbol       string
	Side         string
	Lots         float64
	EntryPrice   float64
	StopLoss     float64
	TakeProfit   float64
	HTFBias      string
	SweepLevel   float64
	FVGMidpoint  float64
	Displacement bool
	Inducement   bool
	Digits       int
}

// Notification represents a notification message
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Symbol    string
	PnL       float64
	Timestamp time.Time
}

// Notifier interface for different notification providers
type Notifier interface {
	Send(notification *Notification) error
	Name() string
	IsEnabled() bool
}

// Manager manages multiple notification providers
type Manager struct {
	notifiers []Notifier
	enabled   bool
}

// NewManager creates a new notification manager
func NewManager() *Manager {
	return &Manager{
		notifiers: make([]Notifier, 0),
		enabled:   true,
	}
}

// AddNotifier adds a notification provider
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Send sends a notification to all enabled providers
func (m *Manager) Send(notification *Notification) error {
	if !m.enabled {
		return nil
	}

	var lastErr error
	for _, n := range m.notifiers {
		if n.IsEnabled() {
			if err := n.Send(notification); err != nil {
				lastErr = err
			}
		}
	}
	return lastErr
}

// SendSetupAlert announces a dispatched trade with its full SMC context.
func (m *Manager) SendSetupAlert(a *SetupAlert) error {
	emoji := "🟢"
	if a.Side == "SELL" {
		emoji = "🔴"
	}
	displacement := "⚠️ Weak"
	if a.Displacement {
		displacement = "✅ YES"
	}
	inducement := "⚠️ Not found"
	if a.Inducement {
		inducement = "✅ SWEPT"
	}

	d := a.Digits
	if d <= 0 {
		d = 5
	}
	msg := fmt.Sprintf(
		"🔹 *Pair:* `%s`\n"+
			"🔹 *Action:* `%s`\n"+
			"🔹 *Lots:* `%.2f`\n"+
			"🔹 *Entry:* `%.*f`\n"+
			"🚩 *Stop Loss:* `%.*f`\n"+
			"🎯 *Take Profit:* `%.*f`\n"+
			"📊 *HTF Bias:* `%s`\n"+
			"🎯 *Sweep Level:* `%.*f`\n"+
			"🔥 *Displacement:* %s\n"+
			"🪤 *Inducement:* %s\n"+
			"📏 *FVG Midpoint:* `%.*f`",
		a.Symbol, a.Side, a.Lots,
		d, a.EntryPrice, d, a.StopLoss, d, a.TakeProfit,
		a.HTFBias, d, a.SweepLevel,
		displacement, inducement, d, a.FVGMidpoint,
	)

	return m.Send(&Notification{
		Type:      NotifySetup,
		Title:     fmt.Sprintf("%s SMC Trade Executed: %s", emoji, a.Symbol),
		Message:   msg,
		Symbol:    a.Symbol,
		Timestamp: time.Now(),
	})
}

// SendTradeClose reports a reconciled close with its net result.
func (m *Manager) SendTradeClose(symbol string, entryPrice, closePrice, pnlNet float64, reason string) error {
	emoji := "✅"
	if pnlNet < 0 {
		emoji = "❌"
	}

	return m.Send(&Notification{
		Type:      NotifyTradeClose,
		Title:     fmt.Sprintf("%s Trade Closed: %s", emoji, symbol),
		Message:   fmt.Sprintf("Entry: %.5f → Close: %.5f\nNet P&L: %.2f\nReason: %s", entryPrice, closePrice, pnlNet, reason),
		Symbol:    symbol,
		PnL:       pnlNet,
		Timestamp: time.Now(),
	})
}

// SendBreakerTripped announces a circuit breaker halt.
func (m *Manager) SendBreakerTripped(reason string) error {
	return m.Send(&Notification{
		Type:      NotifyBreaker,
		Title:     "🛑 Circuit Breaker Tripped",
		Message:   fmt.Sprintf("Entries halted until the next calendar day.\nReason: %s", reason),
		Timestamp: time.Now(),
	})
}

// SendError sends an error notification
func (m *Manager) SendError(title, message string) error {
	return m.Send(&Notification{
		Type:      NotifyError,
		Title:     fmt.Sprintf("⚠️ %s", title),
		Message:   message,
		Timestamp: time.Now(),
	})
}

// =============================================================================
// TELEGRAM NOTIFIER
// =============================================================================

// TelegramNotifier sends notifications via Telegram
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	enabled  bool
	client   *http.Client
}

// TelegramConfig holds Telegram configuration
type TelegramConfig struct {
	BotToken string
	ChatID   string
	Enabled  bool
	BaseURL  string // override for tests
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(config TelegramConfig) *TelegramNotifier {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &TelegramNotifier{
		botToken: config.BotToken,
		chatID:   config.ChatID,
		baseURL:  baseURL,
		enabled:  config.Enabled && config.BotToken != "" && config.ChatID != "",
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Name() string {
	return "telegram"
}

func (t *TelegramNotifier) IsEnabled() bool {
	return t.enabled
}

func (t *TelegramNotifier) Send(notification *Notification) error {
	if !t.enabled {
		return nil
	}

	message := fmt.Sprintf("*%s*\n\n%s", notification.Title, notification.Message)

	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       message,
		"parse_mode": "Markdown",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	resp, err := t.client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}

// =============================================================================
// DISCORD NOTIFIER
// =============================================================================

// DiscordNotifier sends notifications via Discord webhook
type DiscordNotifier struct {
	webhookURL string
	enabled    bool
	client     *http.Client
}

// DiscordConfig holds Discord configuration
type DiscordConfig struct {
	WebhookURL string
	Enabled    bool
}

// NewDiscordNotifier creates a new Discord notifier
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: config.WebhookURL,
		enabled:    config.Enabled && config.WebhookURL != "",
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordNotifier) Name() string {
	return "discord"
}

func (d *DiscordNotifier) IsEnabled() bool {
	return d.enabled
}

func (d *DiscordNotifier) Send(notification *Notification) error {
	if !d.enabled {
		return nil
	}

	color := 0x00FF00
	if notification.Type == NotifyError || notification.Type == NotifyBreaker {
		color = 0xFF0000
	} else if notification.Type == NotifyTradeClose && notification.PnL < 0 {
		color = 0xFF0000
	}

	embed := map[string]interface{}{
		"title":       notification.Title,
		"description": notification.Message,
		"color":       color,
		"timestamp":   notification.Timestamp.Format(time.RFC3339),
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{embed},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal discord payload: %w", err)
	}

	resp, err := d.client.Post(d.webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("discord API returned status %d", resp.StatusCode)
	}

	return nil
}
