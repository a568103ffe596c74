package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CooldownCache fronts the ledger's hot gate lookups with Redis. Keys carry
// a TTL so the cache cannot answer stale yes/no questions; on any Redis
// failure callers fall through to PostgreSQL.
type CooldownCache struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

func NewCooldownCache(rdb *redis.Client, logger zerolog.Logger) *CooldownCache {
	return &CooldownCache{
		rdb:    rdb,
		logger: logger.With().Str("component", "CooldownCache").Logger(),
	}
}

func cooldownKey(symbol string) string { return "smc:cooldown:" + symbol }
func fingerprintKey(fp string) string  { return "smc:fingerprint:" + fp }

// MarkEntry records a dispatched entry. The cooldown key expires with the
// cooldown itself; the fingerprint key is kept for a day, long past any
// gap's useful life.
func (c *CooldownCache) MarkEntry(ctx context.Context, symbol, fingerprint string, entryTime time.Time, cooldown time.Duration) {
	if err := c.rdb.Set(ctx, cooldownKey(symbol), entryTime.Unix(), cooldown).Err(); err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Msg("cooldown cache write failed")
	}
	if err := c.rdb.Set(ctx, fingerprintKey(fingerprint), 1, 24*time.Hour).Err(); err != nil {
		c.logger.Warn().Err(err).Str("fingerprint", fingerprint).Msg("fingerprint cache write failed")
	}
}

// LastEntry returns the cached entry time for a symbol. found is false on a
// cache miss; the error is non-nil only for real Redis failures.
func (c *CooldownCache) LastEntry(ctx context.Context, symbol string) (time.Time, bool, error) {
	val, err := c.rdb.Get(ctx, cooldownKey(symbol)).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("malformed cooldown value %q: %w", val, err)
	}
	return time.Unix(unix, 0).UTC(), true, nil
}

// HasFingerprint reports whether the fingerprint is cached.
func (c *CooldownCache) HasFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	n, err := c.rdb.Exists(ctx, fingerprintKey(fingerprint)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CachedLedger layers the Redis cache over the PostgreSQL repository. It
// satisfies the gate chain's ledger interface: a cache hit answers
// immediately, a miss or a Redis failure falls through to the database.
type CachedLedger struct {
	repo  *Repository
	cache *CooldownCache
}

func NewCachedLedger(repo *Repository, cache *CooldownCache) *CachedLedger {
	return &CachedLedger{repo: repo, cache: cache}
}

func (l *CachedLedger) LastEntryTime(ctx context.Context, symbol string) (time.Time, bool, error) {
	if l.cache != nil {
		if last, found, err := l.cache.LastEntry(ctx, symbol); err == nil && found {
			return last, true, nil
		}
	}
	return l.repo.LastEntryTime(ctx, symbol)
}

func (l *CachedLedger) HasTradedFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	if l.cache != nil {
		if hit, err := l.cache.HasFingerprint(ctx, fingerprint); err == nil && hit {
			return true, nil
		}
	}
	return l.repo.HasTradedFingerprint(ctx, fingerprint)
}
