package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"mt5-smc-bot/config"
	"mt5-smc-bot/internal/ai/llm"
	"mt5-smc-bot/internal/api"
	"mt5-smc-bot/internal/bot"
	"mt5-smc-bot/internal/circuit"
	"mt5-smc-bot/internal/database"
	"mt5-smc-bot/internal/gates"
	"mt5-smc-bot/internal/notification"
	"mt5-smc-bot/internal/risk"
	"mt5-smc-bot/internal/smc"
	"mt5-smc-bot/internal/terminal"
	"mt5-smc-bot/internal/vault"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LoggingConfig)
	logger.Info().Msg("mt5-smc-bot starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Secrets come from Vault when it is enabled, otherwise from the
	// environment via the same lookup.
	secrets, err := vault.NewClient(vault.Config{
		Enabled:    cfg.VaultConfig.Enabled,
		Address:    cfg.VaultConfig.Address,
		Token:      cfg.VaultConfig.Token,
		MountPath:  cfg.VaultConfig.MountPath,
		SecretPath: cfg.VaultConfig.SecretPath,
		TLSEnabled: cfg.VaultConfig.TLSEnabled,
		CACert:     cfg.VaultConfig.CACert,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("vault client failed")
	}
	loadSecrets(ctx, secrets, cfg, logger)

	// MT5 bridge
	term := terminal.NewClient(cfg.TerminalConfig.BaseURL, cfg.TerminalConfig.APIKey)
	if err := term.Ping(ctx); err != nil {
		logger.Warn().Err(err).Str("bridge", cfg.TerminalConfig.BaseURL).
			Msg("bridge unreachable at startup, scan cycles will retry")
	}

	// Trade ledger
	db, err := database.NewDB(database.Config{
		Host:     cfg.DatabaseConfig.Host,
		Port:     cfg.DatabaseConfig.Port,
		User:     cfg.DatabaseConfig.User,
		Password: cfg.DatabaseConfig.Password,
		Database: cfg.DatabaseConfig.Database,
		SSLMode:  cfg.DatabaseConfig.SSLMode,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}
	repo := database.NewRepository(db)

	// Redis cooldown cache, optional
	var cache *database.CooldownCache
	if cfg.RedisConfig.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unreachable, gate lookups fall through to PostgreSQL")
		} else {
			cache = database.NewCooldownCache(rdb, logger)
			defer rdb.Close()
		}
	}
	ledger := database.NewCachedLedger(repo, cache)

	// Notifications
	notifier := notification.NewManager()
	if cfg.NotificationConfig.Enabled {
		if cfg.NotificationConfig.Telegram.Enabled {
			notifier.AddNotifier(notification.NewTelegramNotifier(notification.TelegramConfig{
				BotToken: cfg.NotificationConfig.Telegram.BotToken,
				ChatID:   cfg.NotificationConfig.Telegram.ChatID,
				Enabled:  true,
			}))
			logger.Info().Msg("telegram notifications enabled")
		}
		if cfg.NotificationConfig.Discord.Enabled {
			notifier.AddNotifier(notification.NewDiscordNotifier(notification.DiscordConfig{
				WebhookURL: cfg.NotificationConfig.Discord.WebhookURL,
				Enabled:    true,
			}))
			logger.Info().Msg("discord notifications enabled")
		}
	}

	// Risk and drawdown control
	riskManager := risk.NewManager(&risk.ManagerConfig{
		MaxOpenPositions: cfg.RiskConfig.MaxOpenPositions,
		MaxDailyDrawdown: cfg.RiskConfig.MaxDailyDrawdown,
	}, logger)

	breaker := circuit.NewBreaker(&circuit.BreakerConfig{
		Enabled:              cfg.CircuitConfig.Enabled,
		MaxDailyLossPercent:  cfg.CircuitConfig.MaxDailyLossPercent,
		MaxConsecutiveLosses: cfg.CircuitConfig.MaxConsecutiveLosses,
	}, logger)
	breaker.OnTrip(func(reason string) {
		notifier.SendBreakerTripped(reason)
	})

	// A restart must not forget drawdown already realized today.
	seedDailyDrawdown(ctx, repo, term, riskManager, breaker, logger)

	trailing := risk.NewTrailingStopManager(risk.DefaultTrailingSteps(), logger)

	// Trade approver
	approver := llm.NewApprover(newCompleter(cfg.AIConfig), cfg.AIConfig.Enabled, logger)

	// Pre-trade gate chain, cheapest checks first
	chain := gates.NewChain(logger,
		gates.SessionGate{},
		gates.BreakerGate{Breaker: breaker},
		gates.ExposureGate{Manager: riskManager},
		gates.MarginGate{MinMarginLevel: cfg.RiskConfig.MinMarginLevel},
		gates.CooldownGate{Ledger: ledger, Cooldown: cfg.TradingConfig.Cooldown()},
		gates.FingerprintGate{Ledger: ledger},
	)

	// Scan loop
	var entryCache bot.EntryCache
	if cache != nil {
		entryCache = cache
	}
	trader := bot.New(bot.Config{
		Symbols:        cfg.TradingConfig.Symbols,
		EntryTimeframe: cfg.TradingConfig.EntryTimeframe,
		BiasTimeframe:  cfg.TradingConfig.BiasTimeframe,
		EntryBars:      cfg.TradingConfig.EntryBars,
		BiasBars:       cfg.TradingConfig.BiasBars,
		ScanInterval:   cfg.TradingConfig.ScanInterval(),
		Cooldown:       cfg.TradingConfig.Cooldown(),
		Deviation:      cfg.TradingConfig.DeviationPoints,
		DryRun:         cfg.TradingConfig.DryRun,
		Setup: smc.SetupParams{
			SweepLookback:          cfg.StrategyConfig.SweepLookback,
			DisplacementThreshold:  cfg.StrategyConfig.DisplacementThreshold,
			ATRPeriod:              cfg.StrategyConfig.ATRPeriod,
			SwingLookback:          cfg.StrategyConfig.SwingLookback,
			InducementLookback:     cfg.StrategyConfig.InducementLookback,
			RecentBars:             cfg.StrategyConfig.RecentBars,
			SweepSearchBars:        cfg.StrategyConfig.SweepSearchBars,
			DisplacementSearchBars: cfg.StrategyConfig.DisplacementSearchBars,
		},
		Sizer: risk.SizerConfig{
			RiskPercent:            cfg.RiskConfig.RiskPercent,
			MaxRiskPercentOverride: cfg.RiskConfig.MaxRiskPercentOverride,
			RewardMultiple:         cfg.RiskConfig.RewardMultiple,
			NoiseBufferPoints:      cfg.RiskConfig.NoiseBufferPoints,
			MinStopPoints:          cfg.RiskConfig.MinStopPoints,
			MinLotSize:             cfg.RiskConfig.MinLotSize,
		},
	}, term, repo, entryCache, chain, approver, riskManager, breaker, trailing, notifier, logger)

	// Status API
	var server *api.Server
	if cfg.ServerConfig.Enabled {
		server = api.NewServer(api.ServerConfig{
			Host:           cfg.ServerConfig.Host,
			Port:           cfg.ServerConfig.Port,
			ProductionMode: cfg.ServerConfig.ProductionMode,
		}, repo, riskManager, breaker, trader, logger)
		go func() {
			if err := server.Start(); err != nil {
				logger.Error().Err(err).Msg("status API failed")
			}
		}()
	}

	trader.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("shutting down")

	trader.Stop()
	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("status API shutdown failed")
		}
	}
	logger.Info().Msg("mt5-smc-bot stopped")
}

// newLogger builds the process logger: JSON to stdout in production, a
// console writer when pretty logging is on.
func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

// loadSecrets overlays Vault secrets onto the config. Values already present
// (from config.json or the environment) stay when Vault has nothing better.
func loadSecrets(ctx context.Context, secrets *vault.Client, cfg *config.Config, logger zerolog.Logger) {
	lookup := func(name, current string) string {
		val, err := secrets.Secret(ctx, name)
		if err != nil {
			logger.Warn().Err(err).Str("secret", name).Msg("secret lookup failed")
			return current
		}
		if val == "" {
			return current
		}
		return val
	}

	cfg.TerminalConfig.APIKey = lookup("terminal_api_key", cfg.TerminalConfig.APIKey)
	cfg.DatabaseConfig.Password = lookup("db_password", cfg.DatabaseConfig.Password)
	cfg.RedisConfig.Password = lookup("redis_password", cfg.RedisConfig.Password)
	cfg.AIConfig.ClaudeAPIKey = lookup("ai_claude_api_key", cfg.AIConfig.ClaudeAPIKey)
	cfg.AIConfig.OpenAIAPIKey = lookup("ai_openai_api_key", cfg.AIConfig.OpenAIAPIKey)
	cfg.AIConfig.DeepSeekAPIKey = lookup("ai_deepseek_api_key", cfg.AIConfig.DeepSeekAPIKey)
	cfg.NotificationConfig.Telegram.BotToken = lookup("telegram_bot_token", cfg.NotificationConfig.Telegram.BotToken)
	cfg.NotificationConfig.Telegram.ChatID = lookup("telegram_chat_id", cfg.NotificationConfig.Telegram.ChatID)
	cfg.NotificationConfig.Discord.WebhookURL = lookup("discord_webhook_url", cfg.NotificationConfig.Discord.WebhookURL)
}

// seedDailyDrawdown primes the daily-loss counters from losses the ledger
// already holds for today, so the breaker and drawdown gate pick up where the
// previous process left off.
func seedDailyDrawdown(ctx context.Context, repo *database.Repository, term *terminal.Client, riskManager *risk.Manager, breaker *circuit.Breaker, logger zerolog.Logger) {
	dayStart := time.Now().UTC().Truncate(24 * time.Hour)
	loss, err := repo.RealizedLossSince(ctx, dayStart)
	if err != nil {
		logger.Warn().Err(err).Msg("could not read today's realized losses, counters start at zero")
		return
	}
	if loss >= 0 {
		return
	}
	riskManager.SeedDailyPnL(loss)

	account, err := term.Account(ctx)
	if err != nil || account == nil || account.Balance <= 0 {
		logger.Warn().Float64("realized_loss", loss).
			Msg("no account snapshot, breaker loss percent not seeded")
		return
	}
	breaker.SeedDailyLoss(-loss / account.Balance * 100)
	logger.Info().Float64("realized_loss", loss).Float64("balance", account.Balance).
		Msg("daily drawdown counters seeded from the ledger")
}

// newCompleter builds the LLM client for the configured provider.
func newCompleter(cfg config.AIConfig) *llm.Client {
	clientCfg := llm.DefaultClientConfig()
	clientCfg.Provider = llm.Provider(cfg.LLMProvider)
	clientCfg.Model = cfg.LLMModel

	switch clientCfg.Provider {
	case llm.ProviderOpenAI:
		clientCfg.APIKey = cfg.OpenAIAPIKey
	case llm.ProviderDeepSeek:
		clientCfg.APIKey = cfg.DeepSeekAPIKey
	default:
		clientCfg.Provider = llm.ProviderClaude
		clientCfg.APIKey = cfg.ClaudeAPIKey
	}
	return llm.NewClient(clientCfg)
}
