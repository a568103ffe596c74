package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	TerminalConfig     TerminalConfig     `json:"terminal"`
	TradingConfig      TradingConfig      `json:"trading"`
	StrategyConfig     StrategyConfig     `json:"strategy"`
	RiskConfig         RiskConfig         `json:"risk"`
	CircuitConfig      CircuitConfig      `json:"circuit_breaker"`
	AIConfig           AIConfig           `json:"ai"`
	NotificationConfig NotificationConfig `json:"notification"`
	DatabaseConfig     DatabaseConfig     `json:"database"`
	RedisConfig        RedisConfig        `json:"redis"`
	VaultConfig        VaultConfig        `json:"vault"`
	ServerConfig       ServerConfig       `json:"server"`
	LoggingConfig      LoggingConfig      `json:"logging"`
}

// TerminalConfig holds the MT5 bridge connection settings
type TerminalConfig struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
}

// TradingConfig holds the scan loop settings
type TradingConfig struct {
	Symbols          []string `json:"symbols"`
	EntryTimeframe   string   `json:"entry_timeframe"`   // setups are composed here
	BiasTimeframe    string   `json:"bias_timeframe"`    // directional filter timeframe
	EntryBars        int      `json:"entry_bars"`        // candles fetched for the composer
	BiasBars         int      `json:"bias_bars"`         // candles fetched for the bias filter
	ScanIntervalSecs int      `json:"scan_interval_secs"`
	CooldownMinutes  int      `json:"cooldown_minutes"` // per-symbol re-entry cooldown
	DeviationPoints  int      `json:"deviation_points"` // max slippage on market orders
	DryRun           bool     `json:"dry_run"`          // log orders without sending them
}

// StrategyConfig holds the detector parameters
type StrategyConfig struct {
	SweepLookback          int     `json:"sweep_lookback"`
	DisplacementThreshold  float64 `json:"displacement_threshold"` // ATR multiplier
	ATRPeriod              int     `json:"atr_period"`
	SwingLookback          int     `json:"swing_lookback"`
	InducementLookback     int     `json:"inducement_lookback"`
	RecentBars             int     `json:"recent_bars"`
	SweepSearchBars        int     `json:"sweep_search_bars"`
	DisplacementSearchBars int     `json:"displacement_search_bars"`
}

// RiskConfig holds sizing and exposure limits
type RiskConfig struct {
	RiskPercent            float64 `json:"risk_percent"`              // percent of balance per trade
	MaxRiskPercentOverride float64 `json:"max_risk_percent_override"` // ceiling once the lot floor binds
	RewardMultiple         float64 `json:"reward_multiple"`
	NoiseBufferPoints      float64 `json:"noise_buffer_points"`
	MinStopPoints          float64 `json:"min_stop_points"`
	MinLotSize             float64 `json:"min_lot_size"`
	MaxOpenPositions       int     `json:"max_open_positions"`
	MaxDailyDrawdown       float64 `json:"max_daily_drawdown"` // percent
	MinMarginLevel         float64 `json:"min_margin_level"`   // percent, 500 in production
}

// CircuitConfig holds circuit breaker limits
type CircuitConfig struct {
	Enabled              bool    `json:"enabled"`
	MaxDailyLossPercent  float64 `json:"max_daily_loss_percent"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
}

// AIConfig holds the trade approver settings
type AIConfig struct {
	Enabled        bool   `json:"enabled"`
	LLMProvider    string `json:"llm_provider"` // "claude", "openai", or "deepseek"
	ClaudeAPIKey   string `json:"claude_api_key"`
	OpenAIAPIKey   string `json:"openai_api_key"`
	DeepSeekAPIKey string `json:"deepseek_api_key"`
	LLMModel       string `json:"llm_model"`
}

type NotificationConfig struct {
	Enabled  bool           `json:"enabled"`
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

type DiscordConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig holds the cooldown cache settings
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// VaultConfig holds HashiCorp Vault configuration
type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`
	SecretPath string `json:"secret_path"`
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
}

// ServerConfig holds the status API settings
type ServerConfig struct {
	Enabled        bool   `json:"enabled"`
	Host           string `json:"host"`
	Port           int    `json:"port"`
	ProductionMode bool   `json:"production_mode"`
}

type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Pretty bool   `json:"pretty"` // console writer instead of JSON
}

// ScanInterval returns the scan interval as a duration.
func (t TradingConfig) ScanInterval() time.Duration {
	return time.Duration(t.ScanIntervalSecs) * time.Second
}

// Cooldown returns the per-symbol re-entry cooldown as a duration.
func (t TradingConfig) Cooldown() time.Duration {
	return time.Duration(t.CooldownMinutes) * time.Minute
}

func Load() (*Config, error) {
	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start with defaults
		cfg = &Config{}
	}

	applyDefaults(cfg)
	// Environment variable overrides take precedence
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyDefaults fills zero-valued fields with the production parameter set.
func applyDefaults(cfg *Config) {
	if cfg.TerminalConfig.BaseURL == "" {
		cfg.TerminalConfig.BaseURL = "http://localhost:8085"
	}
	if len(cfg.TradingConfig.Symbols) == 0 {
		cfg.TradingConfig.Symbols = []string{"EURUSDm", "GBPUSDm", "XAUUSDm", "BTCUSDm"}
	}
	if cfg.TradingConfig.EntryTimeframe == "" {
		cfg.TradingConfig.EntryTimeframe = "M15"
	}
	if cfg.TradingConfig.BiasTimeframe == "" {
		cfg.TradingConfig.BiasTimeframe = "H4"
	}
	if cfg.TradingConfig.EntryBars == 0 {
		cfg.TradingConfig.EntryBars = 50
	}
	if cfg.TradingConfig.BiasBars == 0 {
		cfg.TradingConfig.BiasBars = 100
	}
	if cfg.TradingConfig.ScanIntervalSecs == 0 {
		cfg.TradingConfig.ScanIntervalSecs = 60
	}
	if cfg.TradingConfig.CooldownMinutes == 0 {
		cfg.TradingConfig.CooldownMinutes = 30
	}
	if cfg.TradingConfig.DeviationPoints == 0 {
		cfg.TradingConfig.DeviationPoints = 20
	}

	if cfg.StrategyConfig.SweepLookback == 0 {
		cfg.StrategyConfig.SweepLookback = 20
	}
	if cfg.StrategyConfig.DisplacementThreshold == 0 {
		cfg.StrategyConfig.DisplacementThreshold = 1.5
	}
	if cfg.StrategyConfig.ATRPeriod == 0 {
		cfg.StrategyConfig.ATRPeriod = 14
	}
	if cfg.StrategyConfig.SwingLookback == 0 {
		cfg.StrategyConfig.SwingLookback = 5
	}
	if cfg.StrategyConfig.InducementLookback == 0 {
		cfg.StrategyConfig.InducementLookback = 8
	}
	if cfg.StrategyConfig.RecentBars == 0 {
		cfg.StrategyConfig.RecentBars = 10
	}
	if cfg.StrategyConfig.SweepSearchBars == 0 {
		cfg.StrategyConfig.SweepSearchBars = 5
	}
	if cfg.StrategyConfig.DisplacementSearchBars == 0 {
		cfg.StrategyConfig.DisplacementSearchBars = 3
	}

	if cfg.RiskConfig.RiskPercent == 0 {
		cfg.RiskConfig.RiskPercent = 1.5
	}
	if cfg.RiskConfig.MaxRiskPercentOverride == 0 {
		cfg.RiskConfig.MaxRiskPercentOverride = 2.5
	}
	if cfg.RiskConfig.RewardMultiple == 0 {
		cfg.RiskConfig.RewardMultiple = 3.0
	}
	if cfg.RiskConfig.NoiseBufferPoints == 0 {
		cfg.RiskConfig.NoiseBufferPoints = 10
	}
	if cfg.RiskConfig.MinStopPoints == 0 {
		cfg.RiskConfig.MinStopPoints = 50
	}
	if cfg.RiskConfig.MinLotSize == 0 {
		cfg.RiskConfig.MinLotSize = 0.01
	}
	if cfg.RiskConfig.MaxOpenPositions == 0 {
		cfg.RiskConfig.MaxOpenPositions = 3
	}
	if cfg.RiskConfig.MaxDailyDrawdown == 0 {
		cfg.RiskConfig.MaxDailyDrawdown = 5.0
	}
	if cfg.RiskConfig.MinMarginLevel == 0 {
		cfg.RiskConfig.MinMarginLevel = 500
	}

	if cfg.CircuitConfig.MaxDailyLossPercent == 0 {
		cfg.CircuitConfig.MaxDailyLossPercent = 5.0
	}
	if cfg.CircuitConfig.MaxConsecutiveLosses == 0 {
		cfg.CircuitConfig.MaxConsecutiveLosses = 5
	}

	if cfg.DatabaseConfig.Host == "" {
		cfg.DatabaseConfig.Host = "localhost"
	}
	if cfg.DatabaseConfig.Port == 0 {
		cfg.DatabaseConfig.Port = 5432
	}
	if cfg.DatabaseConfig.SSLMode == "" {
		cfg.DatabaseConfig.SSLMode = "disable"
	}

	if cfg.ServerConfig.Port == 0 {
		cfg.ServerConfig.Port = 8088
	}
	if cfg.ServerConfig.Host == "" {
		cfg.ServerConfig.Host = "0.0.0.0"
	}
	if cfg.LoggingConfig.Level == "" {
		cfg.LoggingConfig.Level = "info"
	}
}

// applyEnvOverrides applies environment variable overrides to the config.
// Credentials normally arrive through Vault; the env vars here are the
// fallback for development setups.
func applyEnvOverrides(cfg *Config) {
	// Terminal bridge
	cfg.TerminalConfig.BaseURL = getEnvOrDefault("TERMINAL_BASE_URL", cfg.TerminalConfig.BaseURL)
	cfg.TerminalConfig.APIKey = getEnvOrDefault("TERMINAL_API_KEY", cfg.TerminalConfig.APIKey)

	// Trading
	if symbols := os.Getenv("TRADING_SYMBOLS"); symbols != "" {
		cfg.TradingConfig.Symbols = splitCSV(symbols)
	}
	cfg.TradingConfig.EntryTimeframe = getEnvOrDefault("TRADING_ENTRY_TIMEFRAME", cfg.TradingConfig.EntryTimeframe)
	cfg.TradingConfig.BiasTimeframe = getEnvOrDefault("TRADING_BIAS_TIMEFRAME", cfg.TradingConfig.BiasTimeframe)
	cfg.TradingConfig.ScanIntervalSecs = getEnvIntOrDefault("TRADING_SCAN_INTERVAL_SECS", cfg.TradingConfig.ScanIntervalSecs)
	cfg.TradingConfig.CooldownMinutes = getEnvIntOrDefault("TRADING_COOLDOWN_MINUTES", cfg.TradingConfig.CooldownMinutes)
	if v := os.Getenv("TRADING_DRY_RUN"); v != "" {
		cfg.TradingConfig.DryRun = v == "true"
	}

	// Risk
	cfg.RiskConfig.RiskPercent = getEnvFloatOrDefault("RISK_PERCENT", cfg.RiskConfig.RiskPercent)
	cfg.RiskConfig.MaxRiskPercentOverride = getEnvFloatOrDefault("RISK_MAX_PERCENT_OVERRIDE", cfg.RiskConfig.MaxRiskPercentOverride)
	cfg.RiskConfig.MaxOpenPositions = getEnvIntOrDefault("RISK_MAX_OPEN_POSITIONS", cfg.RiskConfig.MaxOpenPositions)
	cfg.RiskConfig.MaxDailyDrawdown = getEnvFloatOrDefault("RISK_MAX_DAILY_DRAWDOWN", cfg.RiskConfig.MaxDailyDrawdown)
	cfg.RiskConfig.MinMarginLevel = getEnvFloatOrDefault("RISK_MIN_MARGIN_LEVEL", cfg.RiskConfig.MinMarginLevel)

	// Circuit breaker
	cfg.CircuitConfig.Enabled = getEnvOrDefault("CIRCUIT_BREAKER_ENABLED", "true") == "true"
	cfg.CircuitConfig.MaxDailyLossPercent = getEnvFloatOrDefault("CIRCUIT_MAX_DAILY_LOSS", cfg.CircuitConfig.MaxDailyLossPercent)
	cfg.CircuitConfig.MaxConsecutiveLosses = getEnvIntOrDefault("CIRCUIT_MAX_CONSECUTIVE_LOSSES", cfg.CircuitConfig.MaxConsecutiveLosses)

	// AI approver
	cfg.AIConfig.Enabled = getEnvOrDefault("AI_ENABLED", "true") == "true"
	cfg.AIConfig.LLMProvider = getEnvOrDefault("AI_LLM_PROVIDER", "claude")
	cfg.AIConfig.ClaudeAPIKey = getEnvOrDefault("AI_CLAUDE_API_KEY", cfg.AIConfig.ClaudeAPIKey)
	cfg.AIConfig.OpenAIAPIKey = getEnvOrDefault("AI_OPENAI_API_KEY", cfg.AIConfig.OpenAIAPIKey)
	cfg.AIConfig.DeepSeekAPIKey = getEnvOrDefault("AI_DEEPSEEK_API_KEY", cfg.AIConfig.DeepSeekAPIKey)
	cfg.AIConfig.LLMModel = getEnvOrDefault("AI_LLM_MODEL", "claude-3-haiku-20240307")

	// Notification
	cfg.NotificationConfig.Enabled = getEnvOrDefault("NOTIFICATIONS_ENABLED", "false") == "true"
	cfg.NotificationConfig.Telegram.Enabled = getEnvOrDefault("TELEGRAM_ENABLED", "false") == "true"
	cfg.NotificationConfig.Telegram.BotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", cfg.NotificationConfig.Telegram.BotToken)
	cfg.NotificationConfig.Telegram.ChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", cfg.NotificationConfig.Telegram.ChatID)
	cfg.NotificationConfig.Discord.Enabled = getEnvOrDefault("DISCORD_ENABLED", "false") == "true"
	cfg.NotificationConfig.Discord.WebhookURL = getEnvOrDefault("DISCORD_WEBHOOK_URL", cfg.NotificationConfig.Discord.WebhookURL)

	// Database
	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", cfg.DatabaseConfig.Host)
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", cfg.DatabaseConfig.Port)
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", cfg.DatabaseConfig.User)
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", cfg.DatabaseConfig.Database)
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", cfg.DatabaseConfig.SSLMode)

	// Redis
	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", "false") == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)

	// Vault
	cfg.VaultConfig.Enabled = getEnvOrDefault("VAULT_ENABLED", "false") == "true"
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", "http://localhost:8200")
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", "secret")
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", "mt5-smc-bot")
	cfg.VaultConfig.TLSEnabled = getEnvOrDefault("VAULT_TLS_ENABLED", "false") == "true"

	// Status API
	cfg.ServerConfig.Enabled = getEnvOrDefault("API_ENABLED", "true") == "true"
	cfg.ServerConfig.Host = getEnvOrDefault("API_HOST", cfg.ServerConfig.Host)
	cfg.ServerConfig.Port = getEnvIntOrDefault("API_PORT", cfg.ServerConfig.Port)
	cfg.ServerConfig.ProductionMode = getEnvOrDefault("API_PRODUCTION_MODE", "true") == "true"

	// Logging
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Pretty = getEnvOrDefault("LOG_PRETTY", "false") == "true"
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// GenerateSampleConfig creates a sample configuration file
func GenerateSampleConfig(filename string) error {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.TradingConfig.DryRun = true
	cfg.CircuitConfig.Enabled = true
	cfg.DatabaseConfig.User = "smcbot"
	cfg.DatabaseConfig.Database = "smcbot"
	cfg.RedisConfig.Address = "localhost:6379"

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
