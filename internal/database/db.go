// Package database is the PostgreSQL trade ledger and its Redis cooldown
// cache. The ledger is the source of truth for what has been traded; the
// terminal is the source of truth for what is open.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool   *pgxpool.Pool
	logger zerolog.Logger
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewDB creates a new database connection
func NewDB(cfg Config, logger zerolog.Logger) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log := logger.With().Str("component", "Database").Logger()
	log.Info().Str("database", cfg.Database).Msg("connected to PostgreSQL")

	return &DB{Pool: pool, logger: log}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.logger.Info().Msg("database connection closed")
	}
}

// RunMigrations executes database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	db.logger.Info().Msg("running database migrations")

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id SERIAL PRIMARY KEY,
			cycle_id VARCHAR(36),
			ticket BIGINT,
			symbol VARCHAR(20) NOT NULL,
			side VARCHAR(4) NOT NULL,
			fingerprint VARCHAR(64) NOT NULL,
			entry_price DOUBLE PRECISION NOT NULL,
			close_price DOUBLE PRECISION,
			volume_lots DOUBLE PRECISION NOT NULL,
			order_size_usd DOUBLE PRECISION,
			commission DOUBLE PRECISION,
			stop_loss DOUBLE PRECISION,
			take_profit DOUBLE PRECISION,
			sweep_level DOUBLE PRECISION,
			fvg_midpoint DOUBLE PRECISION,
			htf_bias VARCHAR(12),
			displacement BOOLEAN DEFAULT FALSE,
			inducement_swept BOOLEAN DEFAULT FALSE,
			strategy VARCHAR(40),
			timeframe VARCHAR(8),
			entry_time TIMESTAMPTZ NOT NULL,
			close_time TIMESTAMPTZ,
			pnl DOUBLE PRECISION,
			pnl_gross DOUBLE PRECISION,
			closing_reason VARCHAR(64),
			status VARCHAR(10) NOT NULL DEFAULT 'OPEN',
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_status ON trades(status)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_fingerprint ON trades(fingerprint)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_entry_time ON trades(entry_time)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_trades_ticket ON trades(ticket) WHERE ticket IS NOT NULL`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}

	db.logger.Info().Msg("database migrations complete")
	return nil
}
