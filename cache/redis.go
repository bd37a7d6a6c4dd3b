/*
Package cache provides a Redis-backed bill-view cache.

PURPOSE:
  Implements ledger.BillCache over Redis. Bill views are expensive to
  recompute on every read (a full cycle query plus per-day grouping),
  and they only change when a transaction inside the cycle changes, so
  the ledger caches the serialized view and invalidates per card.

KEYS:
  bill:<cardID>:<year>-<month>  serialized BillView JSON

FAILURE MODE:
  The cache is best effort. Redis errors are logged and treated as
  misses; the ledger always falls back to recomputing from the store.

SEE ALSO:
  - ledger/bills.go: the BillCache contract and its call sites
*/
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultTTL bounds staleness if an invalidation is ever missed.
const DefaultTTL = 24 * time.Hour

// Redis implements ledger.BillCache.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRedis connects to the Redis instance at addr.
func NewRedis(addr string, log zerolog.Logger) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    DefaultTTL,
		log:    log,
	}
}

// Ping verifies connectivity, for use at startup.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Get returns the cached payload for key, or false on a miss. Errors
// are treated as misses.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	payload, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		return nil, false
	}
	return payload, true
}

// Set stores payload under key with the configured TTL.
func (r *Redis) Set(ctx context.Context, key string, payload []byte) {
	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

// InvalidateCard removes every cached bill view for the card. SCAN is
// used instead of KEYS so a large keyspace doesn't block Redis.
func (r *Redis) InvalidateCard(ctx context.Context, cardID string) {
	pattern := "bill:" + cardID + ":*"
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		r.log.Warn().Err(err).Str("card_id", cardID).Msg("cache scan failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.log.Warn().Err(err).Str("card_id", cardID).Msg("cache invalidation failed")
	}
}
